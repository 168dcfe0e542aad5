package pool

import (
	"net/http"

	"github.com/cuemby/edgerunner/pkg/connwatch"
)

// controlMsg is the tagged union of messages the pool controller's
// inbox accepts: Create, Created, Dispatch, Shutdown, Idle, Snapshot.
// Go has no native sum type, so this is realized as an unexported
// marker interface plus one concrete struct per variant, kept as
// distinct types since each variant carries different reply plumbing.
type controlMsg interface {
	isControlMsg()
}

type createMsg struct {
	opts  WorkerInitOptions
	reply chan<- CreateResult
}

func (createMsg) isControlMsg() {}

type createdMsg struct {
	key    Key
	handle WorkerHandle
}

func (createdMsg) isControlMsg() {}

type dispatchMsg struct {
	key            Key
	req            *http.Request
	responseReturn chan<- ResponseResult
	watch          *connwatch.Watch
}

func (dispatchMsg) isControlMsg() {}

type shutdownMsg struct {
	key Key
}

func (shutdownMsg) isControlMsg() {}

type idleMsg struct {
	key Key
}

func (idleMsg) isControlMsg() {}

type snapshotMsg struct {
	reply chan<- []WorkerInfo
}

func (snapshotMsg) isControlMsg() {}

// CreateResult is the reply on a Create request's channel:
// either the resolved key or the startup error verbatim.
type CreateResult struct {
	Key Key
	Err error
}
