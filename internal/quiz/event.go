package quiz

import "github.com/verte-zerg/adalan/internal/model"

// EventKind enumerates the stimuli a Session reacts to.
type EventKind int

// Event kinds.
const (
	EventTick EventKind = iota
	EventSubmit
	EventConfigChanged
	EventStartRequested
	EventSummaryDismissed
)

func (k EventKind) String() string {
	switch k {
	case EventTick:
		return "tick"
	case EventSubmit:
		return "submit"
	case EventConfigChanged:
		return "config-changed"
	case EventStartRequested:
		return "start-requested"
	case EventSummaryDismissed:
		return "summary-dismissed"
	default:
		return "unknown"
	}
}

// ConfigField names an editable configuration field.
type ConfigField int

// Editable fields.
const (
	FieldUpperBound ConfigField = iota
	FieldTotalQuestions
	FieldTimeLimit
	FieldOperator
	FieldOrientation
	FieldChart
	FieldFocusWeak
)

// Event is a single input to Session.Handle. Only the fields relevant to
// Kind (and Field, for config changes) are read.
type Event struct {
	Kind        EventKind
	Input       string
	Field       ConfigField
	Value       int
	Operator    model.Operator
	Enabled     bool
	Orientation model.Orientation
	Chart       model.ChartKind
}

// Tick returns a one-second tick event.
func Tick() Event { return Event{Kind: EventTick} }

// Submit returns an answer submission event.
func Submit(input string) Event { return Event{Kind: EventSubmit, Input: input} }

// Start returns a start request event.
func Start() Event { return Event{Kind: EventStartRequested} }

// DismissSummary returns a summary dismissal event.
func DismissSummary() Event { return Event{Kind: EventSummaryDismissed} }

// SetInt returns a change event for an integer field.
func SetInt(field ConfigField, value int) Event {
	return Event{Kind: EventConfigChanged, Field: field, Value: value}
}

// ToggleOperator returns a change event enabling or disabling op.
func ToggleOperator(op model.Operator, enabled bool) Event {
	return Event{Kind: EventConfigChanged, Field: FieldOperator, Operator: op, Enabled: enabled}
}

// SetOrientation returns a layout change event.
func SetOrientation(o model.Orientation) Event {
	return Event{Kind: EventConfigChanged, Field: FieldOrientation, Orientation: o}
}

// SetChart returns a summary chart change event.
func SetChart(c model.ChartKind) Event {
	return Event{Kind: EventConfigChanged, Field: FieldChart, Chart: c}
}

// SetFocusWeak returns a change event for weak-operator focus.
func SetFocusWeak(enabled bool) Event {
	return Event{Kind: EventConfigChanged, Field: FieldFocusWeak, Enabled: enabled}
}
