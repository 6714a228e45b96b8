// file: internal/mcp/session.go
package mcp

import (
	"github.com/dkoosis/promptclinic/internal/fsm"
	"github.com/dkoosis/promptclinic/internal/logging"
)

// Session lifecycle states. A connection starts uninitialized, moves to
// initializing when the client sends initialize, becomes ready when the
// client acknowledges with notifications/initialized, and ends closed.
const (
	SessionUninitialized fsm.State = "uninitialized"
	SessionInitializing  fsm.State = "initializing"
	SessionReady         fsm.State = "ready"
	SessionClosed        fsm.State = "closed"
)

// Session lifecycle events.
const (
	SessionEventInitialize  fsm.Event = "initialize"
	SessionEventInitialized fsm.Event = "initialized"
	SessionEventClose       fsm.Event = "close"
)

// newSessionFSM builds the session lifecycle state machine.
func newSessionFSM(logger logging.Logger) (fsm.FSM, error) {
	machine := fsm.NewFSM(SessionUninitialized, logger)
	machine.AddTransition(fsm.Transition{
		From:  []fsm.State{SessionUninitialized},
		Event: SessionEventInitialize,
		To:    SessionInitializing,
	})
	machine.AddTransition(fsm.Transition{
		From:  []fsm.State{SessionInitializing},
		Event: SessionEventInitialized,
		To:    SessionReady,
	})
	machine.AddTransition(fsm.Transition{
		From:  []fsm.State{SessionUninitialized, SessionInitializing, SessionReady},
		Event: SessionEventClose,
		To:    SessionClosed,
	})
	if err := machine.Build(); err != nil {
		return nil, err
	}
	return machine, nil
}
