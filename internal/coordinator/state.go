package coordinator

import (
	"time"

	apperrors "porthole/internal/errors"
)

// State is a step of the update lifecycle.
type State int

const (
	Idle State = iota
	Checking
	UpdateAvailable
	NoUpdateFound
	CheckFailed
	Downloading
	Downloaded
	RestartRequested
	AwaitingUserAck
	OpenedDownloadPage
	Deferred
)

var stateNames = map[State]string{
	Idle:               "idle",
	Checking:           "checking",
	UpdateAvailable:    "update-available",
	NoUpdateFound:      "no-update-found",
	CheckFailed:        "check-failed",
	Downloading:        "downloading",
	Downloaded:         "downloaded",
	RestartRequested:   "restart-requested",
	AwaitingUserAck:    "awaiting-user-ack",
	OpenedDownloadPage: "opened-download-page",
	Deferred:           "deferred",
}

// String returns the state's kebab-case name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// transitions lists the legal successors of each state.
var transitions = map[State][]State{
	Idle:            {Checking},
	Checking:        {UpdateAvailable, NoUpdateFound, CheckFailed},
	UpdateAvailable: {Downloading, AwaitingUserAck},
	NoUpdateFound:   {Idle},
	CheckFailed:     {Idle},
	Downloading:     {Downloaded, CheckFailed},
	Downloaded:      {RestartRequested, Deferred},
	AwaitingUserAck: {OpenedDownloadPage, Deferred},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition is one recorded state change.
type Transition struct {
	From    State
	To      State
	At      time.Time
	Code    apperrors.Code
	Message string
}
