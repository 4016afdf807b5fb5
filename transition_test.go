package hfsm

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_Builder(t *testing.T) {
	machine := newLinearMachine("idle", "walk")
	tr, err := machine.AddTransition("idle", "walk")
	require.NoError(t, err)

	triggered := 0
	same := tr.When(always).
		Guard(always).
		OnEvent("move").
		WithPriority(4).
		WithCooldown(0.5).
		WithMinTime(0.1).
		Instant().
		OnTriggered(func(*Machine[string]) { triggered++ })

	assert.Same(t, tr, same)
	assert.Equal(t, "idle", tr.From())
	assert.Equal(t, "walk", tr.To())
	assert.Equal(t, "move", tr.Event())
	assert.Equal(t, 4, tr.Priority())
	assert.Equal(t, 0.5, tr.Cooldown().Duration())
	assert.True(t, tr.IsInstant())
	assert.False(t, tr.IsGlobal())
	assert.False(t, tr.IsReset())
	assert.Equal(t, 0.1, tr.effectiveMinTime(nil))

	tr.WithMinTime(-2)
	assert.Equal(t, 0.0, tr.effectiveMinTime(nil))
}

func TestTransition_EffectiveMinTimeFallsBackToState(t *testing.T) {
	machine := newLinearMachine("idle", "walk")
	idle, _ := machine.State("idle")
	idle.SetMinTime(0.75)
	tr, _ := idle.AddTransition("walk")

	assert.Equal(t, 0.75, tr.effectiveMinTime(idle))
	tr.WithMinTime(0)
	assert.Equal(t, 0.0, tr.effectiveMinTime(idle))
}

func TestTransition_Compare(t *testing.T) {
	machine := newLinearMachine("a", "b")
	first, _ := machine.AddTransition("a", "b")
	second, _ := machine.AddTransition("a", "b")
	third, _ := machine.AddTransition("a", "b")
	third.WithPriority(1)

	assert.Negative(t, Compare(first, second))
	assert.Positive(t, Compare(second, first))
	assert.Negative(t, Compare(third, first))
	assert.Zero(t, Compare(first, first))

	list := []*Transition[string]{first, second, third}
	slices.SortStableFunc(list, Compare[string])
	assert.Equal(t, []*Transition[string]{third, first, second}, list)
}

func TestTransition_ResetTargetsCurrentInitial(t *testing.T) {
	machine := newLinearMachine("a", "b", "c")
	tr, err := machine.AddResetTransition("c")
	require.NoError(t, err)

	assert.True(t, tr.IsReset())
	assert.Equal(t, "a", tr.To())
	require.NoError(t, machine.SetInitialState("b"))
	assert.Equal(t, "b", tr.To())
	assert.True(t, machine.HasTransition("c", "b"))
}

func TestTransition_GlobalTransitions(t *testing.T) {
	machine := newLinearMachine("a", "b")
	tr, err := machine.AddGlobalTransition("b")
	require.NoError(t, err)

	assert.True(t, tr.IsGlobal())
	assert.True(t, machine.HasGlobalTransition("b"))
	require.Len(t, machine.GlobalTransitions(), 1)

	assert.Equal(t, 1, machine.RemoveGlobalTransition("b"))
	assert.False(t, machine.HasGlobalTransition("b"))
}

func TestTransition_OnTriggeredRunsBeforeExit(t *testing.T) {
	machine := newLinearMachine("idle", "walk")
	var log []string
	idle, _ := machine.State("idle")
	idle.OnExit(recorder(&log, "exit"))
	tr, _ := idle.AddTransition("walk")
	tr.When(always).OnTriggered(recorder(&log, "triggered"))

	require.NoError(t, machine.Start())
	tick(machine, 1, 0.1)

	assert.Equal(t, []string{"triggered", "exit"}, log)
}

func TestTransition_PayloadIsLazy(t *testing.T) {
	machine := newLinearMachine("a", "b")
	tr, _ := machine.AddTransition("a", "b")

	assert.Nil(t, tr.payload)
	tr.Payload().Set("k", 1)
	assert.Equal(t, 1, GetAs[int](tr.Payload(), "k"))
}
