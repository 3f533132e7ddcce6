package session

import "time"

// State is a session lifecycle state.
type State string

const (
	StateCreated   State = "created"
	StateRunning   State = "running"
	StateDraining  State = "draining"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition can happen.
func (st State) Terminal() bool {
	return st == StateCompleted || st == StateFailed
}

const (
	eventStart    = "start"
	eventDrain    = "drain"
	eventComplete = "complete"
	eventFail     = "fail"
)

// Transition is one recorded state change.
type Transition struct {
	From  State     `json:"from" yaml:"from"`
	To    State     `json:"to" yaml:"to"`
	Event string    `json:"event" yaml:"event"`
	At    time.Time `json:"at" yaml:"at"`
}
