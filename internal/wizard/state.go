// Package wizard derives the guided completion flow: the current phase,
// the current field, and the single action offered to the host UI, from
// the outputs of the sequencer and the tracker.
package wizard

import (
	"github.com/formflow/mcp-form-wizard/internal/field"
)

// Phase is the wizard's position in the start → next → sign → submit →
// complete flow. next re-enters itself after each field completion until
// no incomplete required field remains.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseStart    Phase = "start"
	PhaseNext     Phase = "next"
	PhaseSign     Phase = "sign"
	PhaseSubmit   Phase = "submit"
	PhaseComplete Phase = "complete"
)

// State is the wizard's control state. Transitions produce a new State
// and never mutate the input.
type State struct {
	Phase          Phase    `json:"phase"`
	CurrentFieldID string   `json:"current_field_id,omitempty"`
	History        []string `json:"history,omitempty"`
}

// Event is a wizard input. The concrete types below are the only events.
type Event interface {
	isEvent()
}

// Start begins the guided flow from the start phase
type Start struct{}

// Advance moves to the next incomplete field in traversal order
type Advance struct{}

// Back returns to the previously visited field
type Back struct{}

// Jump navigates directly to a field, bypassing sequencing
type Jump struct {
	FieldID string
}

// SubmitSucceeded reports that the submission sink accepted the payload
type SubmitSucceeded struct{}

// SubmitFailed reports a failed submission attempt; the wizard stays in
// the submit phase so the user can retry.
type SubmitFailed struct {
	Failures []string
}

// Reset discards the flow, returning to idle
type Reset struct{}

func (Start) isEvent()           {}
func (Advance) isEvent()         {}
func (Back) isEvent()            {}
func (Jump) isEvent()            {}
func (SubmitSucceeded) isEvent() {}
func (SubmitFailed) isEvent()    {}
func (Reset) isEvent()           {}

// Conditions carries the sequencer and tracker outputs a transition needs.
// The caller computes them against the live field set; Transition itself
// stays pure.
type Conditions struct {
	// Next is the next incomplete field in traversal order (required
	// subset first, then signatures), nil when both subsets are complete.
	Next *field.Field
	// AllComplete reports that every required and signature field is done
	AllComplete bool
	// TargetSignature reports whether the Jump/Back target belongs to the
	// signature subset, which decides the recomputed phase.
	TargetSignature bool
}

// Transition computes the successor state for an event. Unhandled
// event/phase combinations return the state unchanged.
func Transition(s State, ev Event, c Conditions) State {
	switch e := ev.(type) {
	case Start:
		if s.Phase != PhaseStart && s.Phase != PhaseIdle {
			return s
		}
		return advanceTo(s, c, false)

	case Advance:
		if s.Phase != PhaseNext && s.Phase != PhaseSign {
			return s
		}
		return advanceTo(s, c, true)

	case Back:
		if len(s.History) == 0 {
			return s
		}
		next := s
		next.History = append([]string(nil), s.History[:len(s.History)-1]...)
		next.CurrentFieldID = s.History[len(s.History)-1]
		next.Phase = phaseForTarget(c.TargetSignature)
		return next

	case Jump:
		next := s
		next.History = pushHistory(s.History, s.CurrentFieldID)
		next.CurrentFieldID = e.FieldID
		next.Phase = phaseForTarget(c.TargetSignature)
		return next

	case SubmitSucceeded:
		// complete is only reachable with every required and signature
		// field done; a sink reporting success early does not override
		// the completion invariant.
		if s.Phase != PhaseSubmit || !c.AllComplete {
			return s
		}
		next := s
		next.Phase = PhaseComplete
		next.CurrentFieldID = ""
		return next

	case SubmitFailed:
		return s

	case Reset:
		return State{Phase: PhaseIdle}
	}
	return s
}

// advanceTo selects the next field from the conditions and derives the
// phase from its classification, falling through to submit when nothing is
// left to fill.
func advanceTo(s State, c Conditions, pushCurrent bool) State {
	next := s
	if pushCurrent {
		next.History = pushHistory(s.History, s.CurrentFieldID)
	}

	if c.Next == nil {
		next.Phase = PhaseSubmit
		next.CurrentFieldID = ""
		return next
	}

	next.CurrentFieldID = c.Next.ID
	next.Phase = phaseForTarget(c.Next.InSignatureSet())
	return next
}

// phaseForTarget maps a navigation target onto the phase it belongs to
func phaseForTarget(signature bool) Phase {
	if signature {
		return PhaseSign
	}
	return PhaseNext
}

// pushHistory appends an ID to a copied history stack, skipping empties
func pushHistory(history []string, id string) []string {
	out := append([]string(nil), history...)
	if id != "" {
		out = append(out, id)
	}
	return out
}
