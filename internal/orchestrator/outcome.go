package orchestrator

// Kind tags how a stage produced its result.
type Kind string

const (
	// Resolved: the preferred path produced a usable insight.
	Resolved Kind = "resolved"
	// Degraded: the remote agent failed and the local engine was used.
	Degraded Kind = "degraded"
	// Absent: no insight, either because input was missing or analysis failed.
	Absent Kind = "absent"
)

// Outcome is the result of one pipeline stage. Value is nil only when Kind is Absent.
type Outcome[T any] struct {
	Kind   Kind
	Reason string
	Value  *T
}

func resolved[T any](v *T) Outcome[T] { return Outcome[T]{Kind: Resolved, Value: v} }

func degraded[T any](v *T, reason string) Outcome[T] {
	return Outcome[T]{Kind: Degraded, Reason: reason, Value: v}
}

func absent[T any](reason string) Outcome[T] { return Outcome[T]{Kind: Absent, Reason: reason} }

// Warning describes a non-resolved outcome for the response summary.
func (o Outcome[T]) Warning(stage string) string {
	switch o.Kind {
	case Degraded:
		return stage + ": remote agent unusable (" + o.Reason + "), used local engine"
	case Absent:
		return stage + ": " + o.Reason
	default:
		return ""
	}
}
