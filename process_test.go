package hfsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func always(*Machine[string]) bool { return true }

func never(*Machine[string]) bool { return false }

func newLinearMachine(ids ...string) *Machine[string] {
	m := newTestMachine()
	for _, id := range ids {
		_, _ = m.AddState(id)
	}
	return m
}

func TestProcess_NotStartedIsNoop(t *testing.T) {
	machine := CreateSimpleMachine()
	machine.Process(ProcessIdle, 1)
	_, ok := machine.CurrentID()
	assert.False(t, ok)
	assert.Equal(t, 0.0, machine.StateTime())
}

func TestProcess_UpdateReceivesDelta(t *testing.T) {
	machine := newLinearMachine("idle")
	idle, _ := machine.State("idle")

	var total float64
	idle.OnUpdate(func(_ *Machine[string], delta float64) { total += delta })

	require.NoError(t, machine.Start())
	tick(machine, 4, 0.25)

	assert.InDelta(t, 1.0, total, 1e-9)
	assert.InDelta(t, 1.0, machine.StateTime(), 1e-9)
}

func TestProcess_NegativeDeltaIsClamped(t *testing.T) {
	machine := newLinearMachine("idle")
	require.NoError(t, machine.Start())

	machine.Process(ProcessIdle, -1)
	assert.Equal(t, 0.0, machine.StateTime())
}

func TestProcess_ProcessModeSelectsLoop(t *testing.T) {
	machine := newLinearMachine("physics", "done")
	physics, _ := machine.State("physics")
	physics.SetProcessMode(ProcessFixed)
	tr, _ := physics.AddTransition("done")
	tr.When(always).WithMinTime(0.05)

	require.NoError(t, machine.Start())

	tick(machine, 10, 0.1)
	AssertState(t, machine, "physics")
	assert.Equal(t, 0.0, machine.StateTime(), "idle loop does not drive a fixed state")

	machine.Process(ProcessFixed, 0.1)
	AssertState(t, machine, "done")
}

func TestProcess_CooldownModeSelectsLoop(t *testing.T) {
	machine := newLinearMachine("a", "b")
	a, _ := machine.State("a")
	a.Cooldown().SetDuration(1)
	a.Cooldown().Start()

	require.NoError(t, machine.Start())

	machine.Process(ProcessFixed, 0.5)
	assert.InDelta(t, 1.0, a.Cooldown().Remaining(), 1e-9, "fixed loop does not advance idle cooldowns")

	machine.Process(ProcessIdle, 0.5)
	assert.InDelta(t, 0.5, a.Cooldown().Remaining(), 1e-9)
}

func TestProcess_CooldownsDecayForInactiveStates(t *testing.T) {
	machine := newLinearMachine("a", "b")
	b, _ := machine.State("b")
	b.SetCooldown(1)
	b.Cooldown().Start()

	require.NoError(t, machine.Start())
	tick(machine, 2, 0.25)

	assert.InDelta(t, 0.5, b.Cooldown().Remaining(), 1e-9)
}

func TestProcess_PriorityOrdering(t *testing.T) {
	machine := newLinearMachine("idle", "low", "high")
	low, _ := machine.AddTransition("idle", "low")
	low.When(always)
	high, _ := machine.AddTransition("idle", "high")
	high.When(always).WithPriority(5)

	require.NoError(t, machine.Start())
	tick(machine, 1, 0.1)

	AssertState(t, machine, "high")
}

func TestProcess_PriorityTiesBreakByInsertion(t *testing.T) {
	machine := newLinearMachine("idle", "first", "second")
	second, _ := machine.AddTransition("idle", "second")
	first, _ := machine.AddTransition("idle", "first")
	second.When(always).WithPriority(3)
	first.When(always).WithPriority(3)

	require.NoError(t, machine.Start())
	tick(machine, 1, 0.1)

	AssertState(t, machine, "second")
}

func TestProcess_PriorityChangeAfterStart(t *testing.T) {
	machine := newLinearMachine("idle", "a", "b")
	ta, _ := machine.AddTransition("idle", "a")
	ta.When(flag("go"))
	tb, _ := machine.AddTransition("idle", "b")
	tb.When(flag("go"))

	require.NoError(t, machine.Start())
	tick(machine, 1, 0.1)
	AssertState(t, machine, "idle")

	tb.WithPriority(1)
	machine.SetData("go", true)
	tick(machine, 1, 0.1)
	AssertState(t, machine, "b")
}

func TestProcess_MinTimeGate(t *testing.T) {
	machine := newLinearMachine("idle", "walk")
	idle, _ := machine.State("idle")
	idle.SetMinTime(0.1)

	evaluated := 0
	tr, _ := idle.AddTransition("walk")
	tr.When(func(*Machine[string]) bool {
		evaluated++
		return true
	})

	require.NoError(t, machine.Start())

	tick(machine, 2, 0.05)
	AssertState(t, machine, "idle")
	assert.Equal(t, 0, evaluated, "condition is not evaluated before min time")

	tick(machine, 1, 0.05)
	AssertState(t, machine, "walk")
	assert.Equal(t, 1, evaluated)
}

func TestProcess_InstantBypassesMinTime(t *testing.T) {
	machine := newLinearMachine("idle", "walk")
	idle, _ := machine.State("idle")
	idle.SetMinTime(10)
	tr, _ := idle.AddTransition("walk")
	tr.When(always).Instant()

	require.NoError(t, machine.Start())
	tick(machine, 1, 0.01)

	AssertState(t, machine, "walk")
}

func TestProcess_MinTimeOverride(t *testing.T) {
	machine := newLinearMachine("idle", "slow", "fast")
	idle, _ := machine.State("idle")
	idle.SetMinTime(10)
	slow, _ := idle.AddTransition("slow")
	slow.When(always).WithPriority(10)
	fast, _ := idle.AddTransition("fast")
	fast.When(always).WithMinTime(0.2)

	require.NoError(t, machine.Start())
	tick(machine, 2, 0.1)
	AssertState(t, machine, "idle")

	tick(machine, 1, 0.1)
	AssertState(t, machine, "fast")
}

func TestProcess_GuardRejectsBeforeCondition(t *testing.T) {
	machine := newLinearMachine("idle", "walk")
	evaluated := 0
	tr, _ := machine.AddTransition("idle", "walk")
	tr.Guard(flag("allowed")).When(func(*Machine[string]) bool {
		evaluated++
		return true
	})

	require.NoError(t, machine.Start())
	tick(machine, 3, 0.1)
	AssertState(t, machine, "idle")
	assert.Equal(t, 0, evaluated)

	machine.SetData("allowed", true)
	tick(machine, 1, 0.1)
	AssertState(t, machine, "walk")
}

func TestProcess_TransitionWithoutConditionNeverFires(t *testing.T) {
	machine := newLinearMachine("idle", "walk")
	_, _ = machine.AddTransition("idle", "walk")

	require.NoError(t, machine.Start())
	tick(machine, 5, 0.1)

	AssertState(t, machine, "idle")
}

func TestProcess_TransitionCooldown(t *testing.T) {
	machine := newLinearMachine("idle", "walk")
	toWalk, _ := machine.AddTransition("idle", "walk")
	toWalk.When(flag("moving")).WithCooldown(1)
	toIdle, _ := machine.AddTransition("walk", "idle")
	toIdle.When(not(flag("moving")))

	require.NoError(t, machine.Start())
	machine.SetData("moving", true)
	tick(machine, 1, 0.25)
	AssertState(t, machine, "walk")

	machine.SetData("moving", false)
	tick(machine, 1, 0.25)
	AssertState(t, machine, "idle")

	machine.SetData("moving", true)
	tick(machine, 2, 0.25)
	AssertState(t, machine, "idle")

	tick(machine, 1, 0.25)
	AssertState(t, machine, "walk")
}

func TestProcess_TargetCooldown(t *testing.T) {
	machine := newLinearMachine("idle", "walk")
	walk, _ := machine.State("walk")
	walk.SetCooldown(1)
	toWalk, _ := machine.AddTransition("idle", "walk")
	toWalk.When(flag("moving"))
	toIdle, _ := machine.AddTransition("walk", "idle")
	toIdle.When(not(flag("moving")))

	require.NoError(t, machine.Start())
	machine.SetData("moving", true)
	tick(machine, 1, 0.5)
	AssertState(t, machine, "walk")

	machine.SetData("moving", false)
	tick(machine, 1, 0.5)
	AssertState(t, machine, "idle")
	assert.True(t, walk.Cooldown().IsActive())

	machine.SetData("moving", true)
	ok, reason := machine.CanTransitionTo("walk")
	assert.False(t, ok)
	assert.Equal(t, BlockTargetCooldown, reason)

	tick(machine, 1, 0.5)
	AssertState(t, machine, "idle")
	tick(machine, 1, 0.5)
	AssertState(t, machine, "walk")
}

func TestProcess_LockTransitionAllowsTimeout(t *testing.T) {
	machine := newLinearMachine("idle", "walk", "run")
	observer := NewTestObserver()
	machine.AddObserver(observer)

	idle, _ := machine.State("idle")
	idle.SetLockMode(LockTransition).SetTimeout(0.5, "run")
	tr, _ := idle.AddTransition("walk")
	tr.When(always)

	require.NoError(t, machine.Start())
	tick(machine, 1, 0.25)
	AssertState(t, machine, "idle")

	ok, reason := machine.CanTransitionTo("walk")
	assert.False(t, ok)
	assert.Equal(t, BlockLocked, reason)

	tick(machine, 1, 0.25)
	AssertState(t, machine, "run")
	assert.Equal(t, []string{"idle"}, observer.Timeouts)
	assert.Equal(t, []string{"idle->run"}, observer.Triggered)
}

func TestProcess_LockFullBlocksTimeout(t *testing.T) {
	machine := newLinearMachine("idle", "run")
	observer := NewTestObserver()
	machine.AddObserver(observer)

	lockedCalls := 0
	idle, _ := machine.State("idle")
	idle.SetLockMode(LockFull).SetTimeout(0.5, "run").OnTimeoutLocked(func(*Machine[string]) {
		lockedCalls++
	})

	require.NoError(t, machine.Start())
	tick(machine, 6, 0.25)

	AssertState(t, machine, "idle")
	assert.Equal(t, 5, lockedCalls, "locked callback runs on every expired tick")
	assert.Equal(t, []BlockReason{BlockLocked}, observer.TimeoutBlocks, "notification is reported once")
	assert.Empty(t, observer.Timeouts)
	assert.Equal(t, 0.0, machine.RemainingTime())
	assert.Equal(t, 1.0, machine.TimeoutProgress())

	idle.SetLockMode(LockNone)
	tick(machine, 1, 0.25)
	AssertState(t, machine, "run")
	assert.Equal(t, []string{"idle"}, observer.Timeouts)
}

func TestProcess_TimeoutBlockedByEdgeCooldown(t *testing.T) {
	machine := newLinearMachine("idle", "walk")
	observer := NewTestObserver()
	machine.AddObserver(observer)

	idle, _ := machine.State("idle")
	idle.SetTimeout(0.5, "walk")
	idle.TimeoutTransition().WithCooldown(4.5)
	back, _ := machine.AddTransition("walk", "idle")
	back.When(always)

	require.NoError(t, machine.Start())

	tick(machine, 1, 0.5)
	AssertState(t, machine, "walk")

	tick(machine, 1, 0.5)
	AssertState(t, machine, "idle")

	// edge cooldown has 3.5s left once idle times out again
	tick(machine, 7, 0.5)
	AssertState(t, machine, "idle")
	assert.Equal(t, []BlockReason{BlockTransitionCooldown}, observer.TimeoutBlocks)
	assert.InDelta(t, 3.5, machine.StateTime(), 1e-9, "blocked timeout keeps the timer running")

	tick(machine, 1, 0.5)
	AssertState(t, machine, "walk")
	assert.Equal(t, []string{"idle", "idle"}, observer.Timeouts)
}

func TestProcess_TimeoutIntoParentResolvesLeaf(t *testing.T) {
	machine := newTestMachine()
	_, _ = machine.AddState("idle")
	_, _ = machine.AddState("combat")
	_, _ = machine.AddChildState("combat", "aim")
	idle, _ := machine.State("idle")
	idle.SetTimeout(1, "combat")

	require.NoError(t, machine.Start())
	assert.InDelta(t, 1.0, machine.RemainingTime(), 1e-9)

	tick(machine, 2, 0.5)
	AssertState(t, machine, "aim")
	assert.Equal(t, -1.0, machine.RemainingTime())
	assert.Equal(t, 0.0, machine.TimeoutProgress())
}

func TestProcess_TimeoutCallbackRunsBeforeJump(t *testing.T) {
	machine := newLinearMachine("idle", "next")
	var log []string
	idle, _ := machine.State("idle")
	idle.SetTimeout(0.1, "next").OnTimeout(recorder(&log, "timeout")).OnExit(recorder(&log, "exit"))
	next, _ := machine.State("next")
	next.OnEnter(recorder(&log, "enter"))

	require.NoError(t, machine.Start())
	tick(machine, 1, 0.1)

	assert.Equal(t, []string{"timeout", "exit", "enter"}, log)
}

func TestProcess_UpdateMayTransition(t *testing.T) {
	machine := newLinearMachine("idle", "walk", "run")
	idle, _ := machine.State("idle")
	idle.OnUpdate(func(m *Machine[string], _ float64) {
		_, _ = m.TransitionTo("walk")
	})
	tr, _ := idle.AddTransition("run")
	tr.When(always)

	require.NoError(t, machine.Start())
	tick(machine, 1, 0.1)

	AssertState(t, machine, "walk")
}

func TestProcess_AvailableTransitions(t *testing.T) {
	machine := newLinearMachine("idle", "walk", "run", "jump")
	walk, _ := machine.AddTransition("idle", "walk")
	walk.When(never)
	run, _ := machine.AddTransition("idle", "run")
	run.Guard(never)
	jump, _ := machine.AddTransition("idle", "jump")
	jump.WithPriority(2)
	_, _ = machine.AddGlobalTransition("idle")

	require.NoError(t, machine.Start())

	available := machine.AvailableTransitions()
	require.Len(t, available, 2)
	assert.Same(t, jump, available[0])
	assert.Same(t, walk, available[1])
}

func TestProcess_CallbackPanicIsRecovered(t *testing.T) {
	machine := newLinearMachine("idle", "walk")
	observer := NewTestObserver()
	machine.AddObserver(observer)

	tr, _ := machine.AddTransition("idle", "walk")
	tr.When(func(*Machine[string]) bool { panic("boom") })
	idle, _ := machine.State("idle")
	idle.OnUpdate(func(*Machine[string], float64) { panic("update boom") })

	require.NoError(t, machine.Start())
	assert.NotPanics(t, func() { tick(machine, 1, 0.1) })

	AssertState(t, machine, "idle")
	require.Len(t, observer.Errors, 2)
	assert.True(t, IsCallbackError(observer.Errors[0]))
	assert.Equal(t, ErrCodeCallbackPanic, GetErrorCode(observer.Errors[1]))
}

func TestProcess_CurrentMinTimePanicsWithoutState(t *testing.T) {
	machine := newLinearMachine("idle")
	idle, _ := machine.State("idle")
	idle.SetMinTime(0.3)

	assert.Panics(t, func() { machine.CurrentMinTime() })

	require.NoError(t, machine.Start())
	assert.Equal(t, 0.3, machine.CurrentMinTime())
}
