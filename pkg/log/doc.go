/*
Package log provides structured logging for the edge runtime using
zerolog.

Every package logs through a single package-level zerolog.Logger,
initialized once via Init, and never through fmt.Println or the
standard library's log package.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	poolLog := log.WithComponent("pool")
	poolLog.Info().Str("key", key.String()).Msg("worker created")

	keyLog := log.WithKey("pool", key.String())
	keyLog.Debug().Msg("dispatch forwarded")

# Output

JSON (production):

	{"level":"info","component":"pool","key":"3f2a1c...","time":"2026-08-01T10:30:00Z","message":"worker created"}

Console (development, JSONOutput: false):

	2026-08-01T10:30:00Z INF worker created component=pool key=3f2a1c...
*/
package log
