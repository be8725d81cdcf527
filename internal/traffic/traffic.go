// Package traffic defines the traffic light machine used by the hfsm command.
package traffic

import "github.com/enetx/hfsm"

// States.
const (
	Operating hfsm.State = "operating"
	Green     hfsm.State = "green"
	Yellow    hfsm.State = "yellow"
	Red       hfsm.State = "red"
	Flashing  hfsm.State = "flashing"
)

// Events.
const (
	Next      hfsm.Event = "NEXT"
	Emergency hfsm.Event = "EMERGENCY"
	Tick      hfsm.Event = "TICK"
	Clear     hfsm.Event = "CLEAR"
)

// Light is the context of the traffic light.
type Light struct {
	Cycles int    `json:"cycles" yaml:"cycles"`
	Blinks int    `json:"blinks" yaml:"blinks"`
	Reason string `json:"reason" yaml:"reason"`
}

// Definition returns the traffic light definition. Green, yellow and red are
// children of operating. An emergency from any of them switches to flashing,
// where TICK counts blinks until CLEAR returns the light to red.
func Definition() *hfsm.Definition[Light] {
	emergency := hfsm.EventDef[Light]{Target: Flashing, Reducer: hfsm.Assign[Light]()}

	return hfsm.NewDefinition(Light{}).
		Transition(Green, Next, Yellow).
		Transition(Yellow, Next, Red).
		Transition(Red, Next, Green).
		On(Green, Emergency, emergency).
		On(Yellow, Emergency, emergency).
		On(Red, Emergency, emergency).
		OnEnter(Green, func(l Light) Light {
			l.Cycles++
			return l
		}).
		Internal(Flashing, Tick, func(l Light, _ any) Light {
			l.Blinks++
			return l
		}).
		TransitionWhen(Flashing, Clear, Red, func(l Light) bool { return l.Blinks > 0 }).
		OnExit(Flashing, func(l Light) Light {
			l.Blinks = 0
			l.Reason = ""
			return l
		}).
		State(Operating).
		Parent(Green, Operating).
		Parent(Yellow, Operating).
		Parent(Red, Operating).
		MustBuild()
}
