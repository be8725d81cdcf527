package hfsm_test

import (
	"errors"
	"strings"
	"testing"

	. "github.com/enetx/hfsm"
)

func TestDefinition_FirstDeclaredStateIsInitial(t *testing.T) {
	def := NewDefinition(0).
		State("boot").
		Transition("ready", "go", "boot").
		MustBuild()

	assertEqual(t, def.Initial(), State("boot"))
	assertEqual(t, def.States().Len(), 2)
	assertEqual(t, def.States()[1], State("ready"))
}

func TestDefinition_TargetsAreNotDeclared(t *testing.T) {
	def := NewDefinition(0).
		Transition("a", "go", "b").
		MustBuild()

	assertEqual(t, def.States().Len(), 1)
	assertTrue(t, def.State("a").IsSome())
	assertTrue(t, def.State("b").IsNone())
}

func TestDefinition_Empty(t *testing.T) {
	_, err := NewDefinition(0).Build()
	assertTrue(t, IsConfigError(err))
}

func TestDefinition_UndefinedParent(t *testing.T) {
	_, err := NewDefinition(0).
		Parent("child", "ghost").
		Build()

	var cfgErr *ErrConfig
	assertTrue(t, errors.As(err, &cfgErr))
	assertEqual(t, cfgErr.State, State("child"))
	assertEqual(t, cfgErr.Ref, State("ghost"))
}

func TestDefinition_ParentCycle(t *testing.T) {
	_, err := NewDefinition(0).
		Parent("a", "b").
		Parent("b", "c").
		Parent("c", "a").
		Build()

	assertTrue(t, IsConfigError(err))
	assertTrue(t, strings.Contains(err.Error(), "cycle"))

	_, err = NewDefinition(0).Parent("self", "self").Build()
	assertTrue(t, IsConfigError(err))
}

func TestDefinition_MustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()

	NewDefinition(0).Parent("a", "missing").MustBuild()
}

func TestDefinition_IsDescendant(t *testing.T) {
	def := NewDefinition(0).
		State("root").
		Parent("mid", "root").
		Parent("leaf", "mid").
		State("other").
		MustBuild()

	assertTrue(t, def.IsDescendant("leaf", "leaf"))
	assertTrue(t, def.IsDescendant("leaf", "mid"))
	assertTrue(t, def.IsDescendant("leaf", "root"))
	assertFalse(t, def.IsDescendant("leaf", "other"))
	assertFalse(t, def.IsDescendant("root", "leaf"))
	assertFalse(t, def.IsDescendant("unknown", "root"))
}

func TestDefinition_BuilderReuseDoesNotLeak(t *testing.T) {
	b := NewDefinition(0).Transition("a", "go", "b").State("b")
	def := b.MustBuild()

	b.Transition("a", "other", "b")

	m := def.New()
	assertNoError(t, m.Send("other"))
	assertEqual(t, m.Current(), State("a"))
}

func TestDefinition_CustomCloner(t *testing.T) {
	type box struct{ items map[string]int }

	clones := 0
	def := NewDefinition(box{items: map[string]int{"a": 1}}).
		Cloner(func(b box) box {
			clones++
			out := box{items: make(map[string]int, len(b.items))}
			for k, v := range b.items {
				out.items[k] = v
			}
			return out
		}).
		Internal("s", "ADD", func(b box, _ any) box {
			b.items["b"] = 2
			return b
		}).
		MustBuild()

	m := def.New()
	assertNoError(t, m.Send("ADD"))

	assertEqual(t, len(m.Context().items), 2)
	assertEqual(t, len(def.InitialContext().items), 1)
	assertTrue(t, clones > 0)
}
