package model

// Scenario is the label of one forecast path.
// Keep these values stable; they are written to output files and matched by the dashboard.
type Scenario string

const (
	ScenarioBase Scenario = "base"
	ScenarioUp   Scenario = "up"
	ScenarioDown Scenario = "down"
)

// Scenarios returns the labels in generation order.
func Scenarios() []Scenario {
	return []Scenario{ScenarioBase, ScenarioUp, ScenarioDown}
}

// Sign is the direction a shock is applied in for this scenario.
func (s Scenario) Sign() float64 {
	switch s {
	case ScenarioUp:
		return 1
	case ScenarioDown:
		return -1
	default:
		return 0
	}
}

func (s Scenario) Valid() bool {
	switch s {
	case ScenarioBase, ScenarioUp, ScenarioDown:
		return true
	default:
		return false
	}
}

// ParseScenario maps a user-supplied label to a Scenario; unknown labels fall back to base.
func ParseScenario(s string) (Scenario, bool) {
	sc := Scenario(s)
	if !sc.Valid() {
		return ScenarioBase, false
	}
	return sc, true
}
