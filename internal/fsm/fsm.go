// Package fsm provides a small builder-style wrapper around looplab/fsm
// used to model the MCP session lifecycle.
// file: internal/fsm/fsm.go
package fsm

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/logging"
	lfsm "github.com/looplab/fsm"
)

// State represents a state in the FSM.
type State string

// Event represents an event that can trigger a state transition.
type Event string

// TransitionAction is executed when a transition fires. It receives the
// triggering event and optional event data.
type TransitionAction func(ctx context.Context, event Event, data interface{}) error

// GuardCondition is checked before a transition fires; returning false
// cancels the transition.
type GuardCondition func(ctx context.Context, event Event, data interface{}) bool

// Transition defines a transition rule between states. A single transition
// may name multiple source states.
type Transition struct {
	From      []State
	To        State
	Event     Event
	Action    TransitionAction
	Condition GuardCondition
}

// FSM is the interface for the state machine wrapper. Define transitions
// with AddTransition, then call Build before use.
type FSM interface {
	AddTransition(transition Transition) FSM
	Build() error
	CurrentState() State
	CanTransition(event Event) bool
	Transition(ctx context.Context, event Event, data interface{}) error
	// SetState bypasses transition rules. Use with caution.
	SetState(state State) error
	Reset() error
}

// loopFSM implements FSM using looplab/fsm.
type loopFSM struct {
	initialState State
	logger       logging.Logger
	transitions  []Transition
	fsm          *lfsm.FSM // nil until Build() succeeds.
	buildErr     error
	mu           sync.RWMutex
}

// NewFSM creates a new FSM builder with the given initial state.
func NewFSM(initialState State, logger logging.Logger) FSM {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &loopFSM{
		initialState: initialState,
		logger:       logger.WithField("component", "fsm"),
		transitions:  make([]Transition, 0),
	}
}

// AddTransition stores a transition definition to be used during Build().
func (l *loopFSM) AddTransition(t Transition) FSM {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fsm != nil {
		l.logger.Error("Cannot AddTransition after Build() has been called.")
		if l.buildErr == nil {
			l.buildErr = errors.New("cannot AddTransition after Build")
		}
		return l
	}
	if len(t.From) == 0 {
		l.logger.Error("Transition definition missing 'From' states.", "event", t.Event, "to", t.To)
		if l.buildErr == nil {
			l.buildErr = errors.New("transition definition missing 'From' states")
		}
		return l
	}
	l.transitions = append(l.transitions, t)
	return l
}

// Build finalizes the configuration and creates the underlying machine.
func (l *loopFSM) Build() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fsm != nil {
		l.logger.Warn("Build() called again on an already built FSM.")
		return l.buildErr
	}
	if l.buildErr != nil {
		return l.buildErr
	}

	callbacks := make(lfsm.Callbacks)
	eventDescs := make(map[string]lfsm.EventDesc)
	guardedEvents := make(map[Event]struct{})

	for i, t := range l.transitions {
		eventName := string(t.Event)
		fromStates := make([]string, len(t.From))
		for j, s := range t.From {
			fromStates[j] = string(s)
		}

		desc, exists := eventDescs[eventName]
		if !exists {
			desc = lfsm.EventDesc{Name: eventName, Dst: string(t.To)}
		} else if desc.Dst != string(t.To) {
			err := errors.Newf("conflicting destinations ('%s' and '%s') for event '%s'", desc.Dst, t.To, eventName)
			l.logger.Error("Invalid FSM configuration.", "error", err)
			l.buildErr = err
			return l.buildErr
		}
		desc.Src = append(desc.Src, fromStates...)
		eventDescs[eventName] = desc

		if t.Condition != nil {
			if _, seen := guardedEvents[t.Event]; !seen {
				callbacks["before_"+eventName] = l.createGuardCallback(t)
				guardedEvents[t.Event] = struct{}{}
			}
		}

		if t.Action != nil {
			enterName := "enter_" + string(t.To)
			callbacks[enterName] = l.createActionCallback(i, callbacks[enterName])
		}
	}

	finalEvents := make([]lfsm.EventDesc, 0, len(eventDescs))
	for _, desc := range eventDescs {
		seen := make(map[string]struct{}, len(desc.Src))
		deduped := make([]string, 0, len(desc.Src))
		for _, s := range desc.Src {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				deduped = append(deduped, s)
			}
		}
		desc.Src = deduped
		finalEvents = append(finalEvents, desc)
	}

	l.fsm = lfsm.NewFSM(string(l.initialState), finalEvents, callbacks)
	l.logger.Debug("FSM built.", "initialState", l.initialState, "transitions", len(l.transitions))
	return nil
}

// createGuardCallback wraps a guard condition as a looplab before_ callback.
func (l *loopFSM) createGuardCallback(t Transition) lfsm.Callback {
	return func(ctx context.Context, e *lfsm.Event) {
		if e.Event != string(t.Event) {
			return
		}
		relevant := false
		for _, srcState := range t.From {
			if e.Src == string(srcState) {
				relevant = true
				break
			}
		}
		if !relevant {
			return
		}

		var eventData interface{}
		if len(e.Args) > 0 {
			eventData = e.Args[0]
		}
		if !t.Condition(ctx, t.Event, eventData) {
			l.logger.Debug("Guard condition failed, cancelling transition.", "event", t.Event, "from", e.Src)
			e.Cancel(errors.Newf("guard condition for event '%s' from state '%s' failed", t.Event, e.Src))
		}
	}
}

// createActionCallback wraps a transition action as a looplab enter_ callback,
// chaining onto any action previously registered for the same destination state.
func (l *loopFSM) createActionCallback(transitionIndex int, nextCallback lfsm.Callback) lfsm.Callback {
	return func(ctx context.Context, e *lfsm.Event) {
		l.mu.RLock()
		var matched *Transition
		t := &l.transitions[transitionIndex]
		if string(t.Event) == e.Event && string(t.To) == e.Dst {
			for _, fromState := range t.From {
				if string(fromState) == e.Src {
					matched = t
					break
				}
			}
		}
		l.mu.RUnlock()

		if matched != nil && matched.Action != nil {
			var eventData interface{}
			if len(e.Args) > 0 {
				eventData = e.Args[0]
			}
			if err := matched.Action(ctx, matched.Event, eventData); err != nil {
				l.logger.Error("Error executing transition action.", "event", matched.Event, "to_state", matched.To, "error", err)
			}
		}

		if nextCallback != nil {
			nextCallback(ctx, e)
		}
	}
}

// CurrentState returns the current state. Requires Build().
func (l *loopFSM) CurrentState() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.fsm == nil {
		l.logger.Error("CurrentState() called before Build() or after build error.")
		return ""
	}
	return State(l.fsm.Current())
}

// CanTransition checks if the event is valid from the current state. Requires Build().
func (l *loopFSM) CanTransition(event Event) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.fsm == nil {
		return false
	}
	return l.fsm.Can(string(event))
}

// Transition triggers a state transition based on the event. Requires Build().
func (l *loopFSM) Transition(ctx context.Context, event Event, data interface{}) error {
	l.mu.RLock()
	if l.fsm == nil {
		l.mu.RUnlock()
		l.logger.Error("Transition() called before Build() or after build error.")
		if l.buildErr != nil {
			return l.buildErr
		}
		return errors.New("fsm not built")
	}
	fsmInstance := l.fsm
	currentState := State(fsmInstance.Current())
	l.mu.RUnlock()

	args := []interface{}{}
	if data != nil {
		args = append(args, data)
	}

	if err := fsmInstance.Event(ctx, string(event), args...); err != nil {
		var canceledErr lfsm.CanceledError
		if errors.As(err, &canceledErr) {
			l.logger.Debug("Transition canceled by guard condition.", "event", event, "from_state", currentState, "error", err)
		} else {
			l.logger.Debug("Transition failed.", "event", event, "from_state", currentState, "error", err)
		}
		return err
	}

	l.logger.Debug("Transition successful.", "event", event, "old_state", currentState, "new_state", fsmInstance.Current())
	return nil
}

// SetState manually sets the FSM state, bypassing transition rules. Requires Build().
func (l *loopFSM) SetState(state State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fsm == nil {
		if l.buildErr != nil {
			return l.buildErr
		}
		return errors.New("fsm not built")
	}
	l.fsm.SetState(string(state))
	return nil
}

// Reset sets the state back to the initial state. Requires Build().
func (l *loopFSM) Reset() error {
	return l.SetState(l.initialState)
}
