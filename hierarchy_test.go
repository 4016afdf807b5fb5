package hfsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCharacterMachine builds
//
//	alive
//	  ground: idle, walk
//	  air:    jump, fall
//	dead
//
// and records every enter and exit callback in log
func newCharacterMachine(log *[]string) *Machine[string] {
	m := newTestMachine(WithName("character"))
	_, _ = m.AddState("alive")
	_, _ = m.AddChildState("alive", "ground")
	_, _ = m.AddChildState("ground", "idle")
	_, _ = m.AddChildState("ground", "walk")
	_, _ = m.AddChildState("alive", "air")
	_, _ = m.AddChildState("air", "jump")
	_, _ = m.AddChildState("air", "fall")
	_, _ = m.AddState("dead")

	for _, id := range m.StateIDs() {
		s, _ := m.State(id)
		s.OnEnter(recorder(log, "enter:"+id)).OnExit(recorder(log, "exit:"+id))
	}
	return m
}

func TestHierarchy_StartEntersShallowestFirst(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)

	require.NoError(t, machine.Start())

	AssertState(t, machine, "idle")
	assert.Equal(t, []string{"enter:alive", "enter:ground", "enter:idle"}, log)
	assert.Equal(t, []string{"alive", "ground", "idle"}, machine.ActiveHierarchy())
}

func TestHierarchy_SiblingTransitionKeepsParent(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)
	require.NoError(t, machine.Start())
	log = nil

	ok, err := machine.TransitionTo("walk")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"exit:idle", "enter:walk"}, log)
}

func TestHierarchy_CrossBranchTransition(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)
	require.NoError(t, machine.Start())
	log = nil

	_, err := machine.TransitionTo("fall")
	require.NoError(t, err)

	assert.Equal(t, []string{"exit:idle", "exit:ground", "enter:air", "enter:fall"}, log)
	assert.True(t, machine.IsInState("air"))
	assert.True(t, machine.IsInState("alive"))
	assert.False(t, machine.IsInState("ground"))
}

func TestHierarchy_ExitToRootSibling(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)
	require.NoError(t, machine.Start())
	log = nil

	_, err := machine.TransitionTo("dead")
	require.NoError(t, err)

	assert.Equal(t, []string{"exit:idle", "exit:ground", "exit:alive", "enter:dead"}, log)
	assert.Equal(t, []string{"dead"}, machine.ActiveHierarchy())
}

func TestHierarchy_TargetingParentResolvesDefaultChild(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)
	require.NoError(t, machine.Start())

	_, err := machine.TransitionTo("air")
	require.NoError(t, err)
	AssertState(t, machine, "jump")

	air, _ := machine.State("air")
	require.NoError(t, air.SetDefaultChild("fall"))
	_, err = machine.TransitionTo("alive")
	require.NoError(t, err)
	AssertState(t, machine, "idle")

	_, err = machine.TransitionTo("air")
	require.NoError(t, err)
	AssertState(t, machine, "fall")
}

func TestHierarchy_SelfTransitionReentersLeafOnly(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)
	observer := NewTestObserver()
	machine.AddObserver(observer)
	require.NoError(t, machine.Start())
	log = nil

	tr, err := machine.AddSelfTransition("idle")
	require.NoError(t, err)
	tr.When(flag("blink"))
	machine.SetData("blink", true)
	tick(machine, 1, 0.1)

	assert.Equal(t, []string{"exit:idle", "enter:idle"}, log)
	assert.Equal(t, []string{"idle->idle"}, observer.Changes)
}

func TestHierarchy_AncestorTransitionsApplyToLeaf(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)
	tr, _ := machine.AddTransition("ground", "air")
	tr.When(flag("airborne"))

	require.NoError(t, machine.Start())
	tick(machine, 1, 0.1)
	AssertState(t, machine, "idle")

	machine.SetData("airborne", true)
	tick(machine, 1, 0.1)
	AssertState(t, machine, "jump")
	assert.True(t, machine.HasTransition("ground", "air"))
}

func TestHierarchy_OnlyLeafIsUpdated(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)
	updates := map[string]int{}
	for _, id := range []string{"alive", "ground", "idle"} {
		s, _ := machine.State(id)
		s.OnUpdate(func(*Machine[string], float64) { updates[id]++ })
	}

	require.NoError(t, machine.Start())
	tick(machine, 3, 0.1)

	assert.Equal(t, map[string]int{"idle": 3}, updates)
}

func TestHierarchy_TagsAcrossActiveHierarchy(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)
	ground, _ := machine.State("ground")
	ground.AddTag("grounded")

	require.NoError(t, machine.Start())
	assert.True(t, machine.IsInStateWithTag("grounded"))

	_, _ = machine.TransitionTo("jump")
	assert.False(t, machine.IsInStateWithTag("grounded"))
}

func TestHierarchy_GlobalTransitionFromNestedLeaf(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)
	death, _ := machine.AddGlobalTransition("dead")
	death.When(flag("killed"))
	respawn, _ := machine.AddResetTransition("dead")
	respawn.When(flag("respawn"))

	require.NoError(t, machine.Start())
	_, _ = machine.TransitionTo("fall")

	machine.SetData("killed", true)
	tick(machine, 1, 0.1)
	AssertState(t, machine, "dead")

	tick(machine, 3, 0.1)
	AssertState(t, machine, "dead")

	machine.SetData("killed", false)
	machine.SetData("respawn", true)
	tick(machine, 1, 0.1)
	AssertState(t, machine, "idle")
	assert.True(t, respawn.IsReset())
	assert.Equal(t, "alive", respawn.To())
}

func TestHierarchy_AddChildToActiveLeafRejected(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)
	require.NoError(t, machine.Start())

	_, err := machine.AddChildState("idle", "blink")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	_, err = machine.AddChildState("ghost", "blink")
	require.Error(t, err)
	assert.True(t, IsStateError(err))

	_, err = machine.AddChildState("walk", "stride")
	require.NoError(t, err, "inactive leaves may become parents")
	_, err = machine.TransitionTo("walk")
	require.NoError(t, err)
	AssertState(t, machine, "stride")
}

func TestHierarchy_SetDefaultChildMustBeChild(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)
	ground, _ := machine.State("ground")

	err := ground.SetDefaultChild("jump")
	require.Error(t, err)
	def, ok := ground.DefaultChild()
	assert.True(t, ok)
	assert.Equal(t, "idle", def)
}

func TestHierarchy_RemoveDefaultChildReassigns(t *testing.T) {
	var log []string
	machine := newCharacterMachine(&log)

	require.NoError(t, machine.RemoveState("jump"))
	air, _ := machine.State("air")
	def, ok := air.DefaultChild()
	require.True(t, ok)
	assert.Equal(t, "fall", def)
	assert.Len(t, air.Children(), 1)
}
