package wizard

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/formflow/mcp-form-wizard/internal/document"
	"github.com/formflow/mcp-form-wizard/internal/field"
	"github.com/formflow/mcp-form-wizard/internal/sequence"
	"github.com/formflow/mcp-form-wizard/internal/tracker"
)

// Action is the single button contract offered to the host UI in the
// current state. Enabled is false whenever the only available action is
// blocked by an incomplete or invalid current field. Invoke is attached by
// the service layer; it is nil on snapshots produced outside it.
type Action struct {
	Label    string       `json:"label"`
	ColorTag string       `json:"color_tag"`
	Enabled  bool         `json:"enabled"`
	Invoke   func() error `json:"-"`
}

// Snapshot is what the host UI receives on every state change. The engine
// never renders anything itself; this is the entire presentation contract.
type Snapshot struct {
	Phase            Phase            `json:"phase"`
	CurrentField     *field.Field     `json:"current_field,omitempty"`
	Progress         tracker.Progress `json:"progress"`
	Action           Action           `json:"action"`
	ValidationErrors []string         `json:"validation_errors,omitempty"`
}

// Session is the aggregate for one loaded document: the field set, the
// completion tracker and the wizard control state live together here, so
// there is no second store to fall out of sync with. Loading a new
// document replaces the whole session; the Token identifies it so async
// results from a replaced session can be recognized as stale.
type Session struct {
	Token    string
	Document *document.DocumentInfo

	tracker *tracker.Tracker
	state   State
}

// NewSession creates a session for a loaded document
func NewSession(doc *document.DocumentInfo, rules ...tracker.Rule) *Session {
	return &Session{
		Token:    uuid.NewString(),
		Document: doc,
		tracker:  tracker.New(rules...),
		state:    State{Phase: PhaseStart},
	}
}

// AddFields feeds one page extraction pass into the session. Re-running a
// page is harmless; already-known field IDs are ignored.
func (s *Session) AddFields(fields []field.Field) {
	s.tracker.AddFields(fields)
}

// Fields returns the session's fields in extraction order
func (s *Session) Fields() []field.Field {
	return s.tracker.Fields()
}

// Tracker exposes the completion tracker
func (s *Session) Tracker() *tracker.Tracker {
	return s.tracker
}

// State returns the current control state
func (s *Session) State() State {
	return s.state
}

// Phase returns the current phase
func (s *Session) Phase() Phase {
	return s.state.Phase
}

// CurrentField returns the field the wizard is positioned on, nil when no
// field is current.
func (s *Session) CurrentField() *field.Field {
	if s.state.CurrentFieldID == "" {
		return nil
	}
	f, ok := s.tracker.Get(s.state.CurrentFieldID)
	if !ok {
		return nil
	}
	return &f
}

// SetValue stores a field value and re-derives its completion state
func (s *Session) SetValue(fieldID string, value field.Value) error {
	return s.tracker.SetValue(fieldID, value)
}

// NextField returns the next incomplete field in traversal order
func (s *Session) NextField() *field.Field {
	return sequence.NextField(s.tracker.Fields(), s.tracker.CompletedIDs())
}

// AllComplete reports whether every required and signature field is done
func (s *Session) AllComplete() bool {
	return s.NextField() == nil
}

// Progress reports completion over the required subset
func (s *Session) Progress() tracker.Progress {
	return s.tracker.Progress()
}

// Apply runs one event through the state machine. Jump targets must refer
// to a field present in the session.
func (s *Session) Apply(ev Event) (State, error) {
	conditions := Conditions{
		Next:        s.NextField(),
		AllComplete: s.AllComplete(),
	}

	switch e := ev.(type) {
	case Jump:
		target, ok := s.tracker.Get(e.FieldID)
		if !ok {
			return s.state, fmt.Errorf("unknown field: %s", e.FieldID)
		}
		conditions.TargetSignature = target.InSignatureSet()
	case Back:
		if n := len(s.state.History); n > 0 {
			if target, ok := s.tracker.Get(s.state.History[n-1]); ok {
				conditions.TargetSignature = target.InSignatureSet()
			}
		}
	}

	s.state = Transition(s.state, ev, conditions)
	return s.state, nil
}

// Action derives the button contract for the current state. The service
// layer attaches Invoke before handing it to the host UI.
func (s *Session) Action() Action {
	switch s.state.Phase {
	case PhaseStart:
		return Action{Label: "Start", ColorTag: "primary", Enabled: true}
	case PhaseNext:
		return Action{Label: "Next", ColorTag: "primary", Enabled: s.currentFieldReady()}
	case PhaseSign:
		return Action{Label: "Sign", ColorTag: "accent", Enabled: s.currentFieldReady()}
	case PhaseSubmit:
		return Action{Label: "Submit", ColorTag: "success", Enabled: true}
	case PhaseComplete:
		return Action{Label: "Done", ColorTag: "neutral", Enabled: false}
	default:
		return Action{Label: "Load a document", ColorTag: "neutral", Enabled: false}
	}
}

// currentFieldReady reports whether the current field allows advancing:
// it must be complete and free of validation errors.
func (s *Session) currentFieldReady() bool {
	id := s.state.CurrentFieldID
	if id == "" {
		return true
	}
	return s.tracker.IsComplete(id) && !s.tracker.HasValidationErrors(id)
}

// Snapshot assembles the host UI state for the current moment
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:        s.state.Phase,
		CurrentField: s.CurrentField(),
		Progress:     s.Progress(),
		Action:       s.Action(),
	}
	if snap.CurrentField != nil {
		snap.ValidationErrors = s.tracker.ValidationErrors(snap.CurrentField.ID)
	}
	return snap
}

// SubmissionPayload splits the session's values into the value map and the
// signature map the sink consumes.
func (s *Session) SubmissionPayload() (values map[string]field.Value, signatures map[string]string) {
	values = make(map[string]field.Value)
	signatures = make(map[string]string)

	for _, f := range s.tracker.Fields() {
		if !f.Interactive() {
			continue
		}
		if f.InSignatureSet() {
			if f.Value.Text != "" {
				signatures[f.ID] = f.Value.Text
			}
			continue
		}
		if !f.Value.IsZero() {
			values[f.ID] = f.Value
		}
	}
	return values, signatures
}
