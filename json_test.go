package hfsm_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/enetx/hfsm"
)

func TestMachine_Serialization(t *testing.T) {
	def := trafficLight(t)

	m := def.New()
	assertNoError(t, m.Send("NEXT"))
	assertNoError(t, m.Send("NEXT"))

	data, err := json.Marshal(m)
	assertNoError(t, err)

	restored := def.New()
	assertNoError(t, json.Unmarshal(data, restored))

	assertEqual(t, restored.Current(), State("yellow"))
	assertEqual(t, restored.Previous().Some(), State("green"))
	assertEqual(t, restored.Context(), light{Duration: 1000, Color: "yellow"})
	assertEqual(t, restored.History().Len(), 2)
	assertEqual(t, restored.History()[1].State, State("green"))

	assertNoError(t, restored.Send("NEXT"))
	assertEqual(t, restored.Current(), State("red"))
}

func TestMachine_SerializationShape(t *testing.T) {
	m := trafficLight(t).New()
	assertNoError(t, m.Send("EMERGENCY"))

	data, err := json.Marshal(m)
	assertNoError(t, err)

	var raw map[string]any
	assertNoError(t, json.Unmarshal(data, &raw))

	assertEqual(t, raw["state"], any("flashing"))
	assertEqual(t, raw["previous"], any("red"))
	assertTrue(t, raw["context"] != nil)
	assertEqual(t, len(raw["history"].([]any)), 1)
}

func TestMachine_SerializationUnknownState(t *testing.T) {
	m := trafficLight(t).New()

	cases := []string{
		`{"state": "unknown_state", "history": []}`,
		`{"state": "red", "previous": "blue"}`,
		`{"state": "red", "history": [{"state": "purple"}]}`,
		`{"history": []}`,
	}

	for _, data := range cases {
		err := json.Unmarshal([]byte(data), m)
		assertError(t, err)

		var unknown *ErrUnknownState
		assertTrue(t, errors.As(err, &unknown))
		assertTrue(t, strings.Contains(err.Error(), "unknown state"))
	}

	assertEqual(t, m.Current(), State("red"))
}

func TestMachine_SerializationInvalidJSON(t *testing.T) {
	m := trafficLight(t).New()

	err := m.UnmarshalJSON([]byte(`{"state":`))
	assertError(t, err)
	assertTrue(t, strings.Contains(err.Error(), "failed to unmarshal machine state"))
}

func TestMachine_SerializationRespectsHistoryLimit(t *testing.T) {
	def := trafficLight(t)

	m := def.New()
	for range 4 {
		assertNoError(t, m.Send("NEXT"))
	}

	data, err := json.Marshal(m)
	assertNoError(t, err)

	capped := def.New(WithHistoryLimit[light](1))
	assertNoError(t, json.Unmarshal(data, capped))

	assertEqual(t, capped.History().Len(), 1)
	// red, green, yellow, red were left; only the last record survives.
	assertEqual(t, capped.History()[0].State, State("red"))
}
