// file: internal/fsm/fsm_test.go
package fsm

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/dkoosis/promptclinic/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// States and events mirroring the session lifecycle this wrapper models.
const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateClosed        State = "closed"

	EventInitialize  Event = "initialize"
	EventInitialized Event = "initialized"
	EventClose       Event = "close"
)

// buildSessionFSM wires the lifecycle transitions used by the tests.
func buildSessionFSM(t *testing.T) FSM {
	t.Helper()
	builder := NewFSM(StateUninitialized, logging.GetNoopLogger())

	builder.AddTransition(Transition{From: []State{StateUninitialized}, Event: EventInitialize, To: StateInitializing})
	builder.AddTransition(Transition{From: []State{StateInitializing}, Event: EventInitialized, To: StateReady})
	builder.AddTransition(Transition{From: []State{StateUninitialized, StateInitializing, StateReady}, Event: EventClose, To: StateClosed})

	require.NoError(t, builder.Build(), "Failed to build test FSM.")
	return builder
}

func TestFSM_Build_IsIdempotent_When_CalledTwice(t *testing.T) {
	builder := NewFSM(StateUninitialized, logging.GetNoopLogger())
	require.NoError(t, builder.Build())
	require.NoError(t, builder.Build(), "Calling Build() again should not error.")
}

func TestFSM_Build_Fails_When_TransitionHasNoFromStates(t *testing.T) {
	builder := NewFSM(StateUninitialized, logging.GetNoopLogger())
	builder.AddTransition(Transition{Event: EventInitialize, To: StateInitializing})
	require.Error(t, builder.Build())
}

func TestFSM_Build_Fails_When_EventHasConflictingDestinations(t *testing.T) {
	builder := NewFSM(StateUninitialized, logging.GetNoopLogger())
	builder.AddTransition(Transition{From: []State{StateUninitialized}, Event: EventInitialize, To: StateInitializing})
	builder.AddTransition(Transition{From: []State{StateReady}, Event: EventInitialize, To: StateClosed})
	require.Error(t, builder.Build())
}

func TestFSM_Transition_Succeeds_When_PathIsValid(t *testing.T) {
	machine := buildSessionFSM(t)
	ctx := context.Background()

	assert.Equal(t, StateUninitialized, machine.CurrentState())

	require.NoError(t, machine.Transition(ctx, EventInitialize, nil))
	assert.Equal(t, StateInitializing, machine.CurrentState())

	require.NoError(t, machine.Transition(ctx, EventInitialized, nil))
	assert.Equal(t, StateReady, machine.CurrentState())

	require.NoError(t, machine.Transition(ctx, EventClose, nil))
	assert.Equal(t, StateClosed, machine.CurrentState())
}

func TestFSM_Transition_Fails_When_EventInvalidForState(t *testing.T) {
	machine := buildSessionFSM(t)
	ctx := context.Background()

	assert.False(t, machine.CanTransition(EventInitialized), "initialized is not valid from uninitialized.")
	err := machine.Transition(ctx, EventInitialized, nil)
	require.Error(t, err)
	assert.Equal(t, StateUninitialized, machine.CurrentState(), "State must not change on a failed transition.")
}

func TestFSM_Transition_ExecutesAction_When_Defined(t *testing.T) {
	builder := NewFSM(StateUninitialized, logging.GetNoopLogger())
	var actionRan atomic.Bool

	builder.AddTransition(Transition{
		From:  []State{StateUninitialized},
		Event: EventInitialize,
		To:    StateInitializing,
		Action: func(_ context.Context, event Event, data interface{}) error {
			actionRan.Store(true)
			assert.Equal(t, EventInitialize, event)
			assert.Equal(t, "client-info", data)
			return nil
		},
	})
	require.NoError(t, builder.Build())

	require.NoError(t, builder.Transition(context.Background(), EventInitialize, "client-info"))
	assert.True(t, actionRan.Load(), "Action should have executed.")
}

func TestFSM_Transition_IsCancelled_When_GuardFails(t *testing.T) {
	builder := NewFSM(StateUninitialized, logging.GetNoopLogger())
	allow := false

	builder.AddTransition(Transition{
		From:  []State{StateUninitialized},
		Event: EventInitialize,
		To:    StateInitializing,
		Condition: func(_ context.Context, _ Event, _ interface{}) bool {
			return allow
		},
	})
	require.NoError(t, builder.Build())
	ctx := context.Background()

	err := builder.Transition(ctx, EventInitialize, nil)
	require.Error(t, err, "Guard should cancel the transition.")
	assert.Equal(t, StateUninitialized, builder.CurrentState())

	allow = true
	require.NoError(t, builder.Transition(ctx, EventInitialize, nil))
	assert.Equal(t, StateInitializing, builder.CurrentState())
}

func TestFSM_SetStateAndReset_ControlStateDirectly(t *testing.T) {
	machine := buildSessionFSM(t)

	require.NoError(t, machine.SetState(StateReady))
	assert.Equal(t, StateReady, machine.CurrentState())

	require.NoError(t, machine.Reset())
	assert.Equal(t, StateUninitialized, machine.CurrentState())
}

func TestFSM_Methods_Fail_When_NotBuilt(t *testing.T) {
	builder := NewFSM(StateUninitialized, logging.GetNoopLogger())

	assert.Equal(t, State(""), builder.CurrentState())
	assert.False(t, builder.CanTransition(EventInitialize))
	assert.Error(t, builder.Transition(context.Background(), EventInitialize, nil))
	assert.Error(t, builder.SetState(StateReady))
}
