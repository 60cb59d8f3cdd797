package wizard

import (
	"context"
	"fmt"
	"sync"

	"github.com/formflow/mcp-form-wizard/internal/document"
	"github.com/formflow/mcp-form-wizard/internal/field"
	"github.com/formflow/mcp-form-wizard/internal/geometry"
	"github.com/formflow/mcp-form-wizard/internal/nav"
	"github.com/formflow/mcp-form-wizard/internal/sequence"
	"github.com/formflow/mcp-form-wizard/internal/submit"
	"github.com/formflow/mcp-form-wizard/internal/tracker"
)

// DefaultScale is the render scale used when the host does not choose one
const DefaultScale = 1.5

// Service orchestrates the wizard engine: it owns the current session and
// wires the extractor, sequencer, tracker, state machine, navigation
// coordinator, renderer and submission sink together. All mutations are
// synchronous; only renders run in the background.
type Service struct {
	renderer      document.Renderer
	sink          submit.Sink
	coordinator   *nav.Coordinator
	pathValidator *document.PathValidator
	extractor     *field.Extractor
	rules         []tracker.Rule
	scale         float64
	debugMode     bool

	mu        sync.Mutex
	session   *Session
	listeners []func(Snapshot)
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithPathValidator restricts document loading to a directory
func WithPathValidator(v *document.PathValidator) ServiceOption {
	return func(s *Service) { s.pathValidator = v }
}

// WithScale sets the render scale used for navigation renders
func WithScale(scale float64) ServiceOption {
	return func(s *Service) { s.scale = scale }
}

// WithRules overrides the validation rules applied to new sessions
func WithRules(rules ...tracker.Rule) ServiceOption {
	return func(s *Service) { s.rules = rules }
}

// WithDebug enables extraction debug output
func WithDebug(debug bool) ServiceOption {
	return func(s *Service) { s.debugMode = debug }
}

// NewService creates the wizard service
func NewService(renderer document.Renderer, sink submit.Sink, coordinator *nav.Coordinator, opts ...ServiceOption) *Service {
	s := &Service{
		renderer:    renderer,
		sink:        sink,
		coordinator: coordinator,
		rules:       tracker.DefaultRules(),
		scale:       DefaultScale,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.extractor = field.NewExtractor(s.debugMode)
	return s
}

// Subscribe registers a host UI callback invoked with a fresh snapshot
// after every state change.
func (s *Service) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Request and result types, one pair per operation

type LoadDocumentRequest struct {
	Path string `json:"path"`
}

type LoadDocumentResult struct {
	Document   *document.DocumentInfo `json:"document"`
	FieldCount int                    `json:"field_count"`
	Snapshot   Snapshot               `json:"snapshot"`
}

type StateResult struct {
	Snapshot Snapshot `json:"snapshot"`
}

type SetValueRequest struct {
	FieldID  string   `json:"field_id"`
	Text     string   `json:"text,omitempty"`
	Checked  *bool    `json:"checked,omitempty"`
	Selected []string `json:"selected,omitempty"`
}

type SetValueResult struct {
	Complete         bool     `json:"complete"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
	Snapshot         Snapshot `json:"snapshot"`
}

type JumpRequest struct {
	FieldID string `json:"field_id"`
}

type FieldsResult struct {
	Fields []field.Field `json:"fields"`
}

type SubmitResult struct {
	Outcome  *submit.Outcome `json:"outcome"`
	Snapshot Snapshot        `json:"snapshot"`
}

// LoadDocument opens a document and replaces the current session. Any
// in-flight render or pending highlight of the previous session is
// cancelled before the new session becomes visible.
func (s *Service) LoadDocument(req LoadDocumentRequest) (*LoadDocumentResult, error) {
	if s.pathValidator != nil {
		if err := s.pathValidator.ValidatePath(req.Path); err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
	}

	info, err := s.renderer.LoadDocument(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	session := NewSession(info, s.rules...)
	for page := 1; page <= info.PageCount; page++ {
		raw, err := s.renderer.Annotations(page)
		if err != nil {
			// Extraction errors never abort document load
			continue
		}
		session.AddFields(s.extractor.ExtractFields(raw, page))
	}

	s.mu.Lock()
	s.session = session
	s.coordinator.BindSession(session.Token)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	return &LoadDocumentResult{
		Document:   info,
		FieldCount: len(session.Fields()),
		Snapshot:   snap,
	}, nil
}

// Start begins the guided flow and navigates to the first field
func (s *Service) Start() (*StateResult, error) {
	return s.applyAndNavigate(Start{})
}

// Next advances to the next incomplete field. It fails without advancing
// when the current field is incomplete or carries validation errors.
func (s *Service) Next() (*StateResult, error) {
	s.mu.Lock()
	session := s.session
	if session == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("no document loaded")
	}
	if current := session.CurrentField(); current != nil {
		if !session.Tracker().IsComplete(current.ID) {
			s.mu.Unlock()
			return nil, fmt.Errorf("field %s is not complete", current.ID)
		}
		if session.Tracker().HasValidationErrors(current.ID) {
			s.mu.Unlock()
			return nil, fmt.Errorf("field %s has validation errors", current.ID)
		}
	}
	s.mu.Unlock()

	return s.applyAndNavigate(Advance{})
}

// Back returns to the previously visited field
func (s *Service) Back() (*StateResult, error) {
	return s.applyAndNavigate(Back{})
}

// Jump navigates directly to a field, from any state
func (s *Service) Jump(req JumpRequest) (*StateResult, error) {
	return s.applyAndNavigate(Jump{FieldID: req.FieldID})
}

// SetValue stores a field value and returns its derived state
func (s *Service) SetValue(req SetValueRequest) (*SetValueResult, error) {
	s.mu.Lock()
	session := s.session
	if session == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("no document loaded")
	}

	value := field.Value{Text: req.Text, Selected: req.Selected}
	if req.Checked != nil {
		value.Checked = *req.Checked
	}
	if err := session.SetValue(req.FieldID, value); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	result := &SetValueResult{
		Complete:         session.Tracker().IsComplete(req.FieldID),
		ValidationErrors: session.Tracker().ValidationErrors(req.FieldID),
	}
	result.Snapshot = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(result.Snapshot)
	return result, nil
}

// Fields returns the session's fields in traversal order
func (s *Service) Fields() (*FieldsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	return &FieldsResult{Fields: sequence.OrderFields(s.session.Fields())}, nil
}

// Progress reports completion over the required subset
func (s *Service) Progress() (tracker.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return tracker.Progress{}, fmt.Errorf("no document loaded")
	}
	return s.session.Progress(), nil
}

// State returns the current snapshot without mutating anything
func (s *Service) State() (*StateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	return &StateResult{Snapshot: s.snapshotLocked()}, nil
}

// Submit hands the payload to the submission sink. Success completes the
// wizard; failure keeps it in the submit phase with the failures surfaced,
// and a retry does not re-validate already-valid fields.
func (s *Service) Submit(ctx context.Context) (*SubmitResult, error) {
	s.mu.Lock()
	session := s.session
	if session == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("no document loaded")
	}
	if session.Phase() != PhaseSubmit {
		s.mu.Unlock()
		return nil, fmt.Errorf("wizard is in phase %s, not ready to submit", session.Phase())
	}
	values, signatures := session.SubmissionPayload()
	source := session.Document.Source
	s.mu.Unlock()

	outcome, err := s.sink.Submit(ctx, source, values, signatures)
	if err != nil {
		return nil, fmt.Errorf("failed to submit: %w", err)
	}

	s.mu.Lock()
	if s.session != session {
		// Session replaced while submitting; the outcome is stale
		s.mu.Unlock()
		return nil, fmt.Errorf("session replaced during submission")
	}
	if outcome.Success {
		session.Apply(SubmitSucceeded{})
	} else {
		session.Apply(SubmitFailed{Failures: outcome.Failures})
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	return &SubmitResult{Outcome: outcome, Snapshot: snap}, nil
}

// applyAndNavigate runs one event through the session and navigates to
// the resulting current field.
func (s *Service) applyAndNavigate(ev Event) (*StateResult, error) {
	s.mu.Lock()
	session := s.session
	if session == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("no document loaded")
	}
	if _, err := session.Apply(ev); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	target := session.CurrentField()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if target != nil {
		s.navigate(session, *target)
	}
	s.notify(snap)
	return &StateResult{Snapshot: snap}, nil
}

// navigate renders the target's page and requests focus on its screen
// element. The handle registry for the page is repopulated once the
// render lands.
func (s *Service) navigate(session *Session, target field.Field) {
	info, ok := session.Document.PageInfoFor(target.Page)
	if !ok {
		return
	}
	vp := geometry.Viewport{
		Width:    info.Width,
		Height:   info.Height,
		Scale:    s.scale,
		Rotation: info.Rotation,
	}

	fields := session.Fields()
	s.coordinator.RenderPage(context.Background(), target.Page, vp, func(surface *document.PageSurface) {
		s.coordinator.RegisterFields(fields, target.Page, vp)
	})
	s.coordinator.NavigateTo(context.Background(), target)
}

// snapshotLocked builds the host UI snapshot and attaches the action's
// Invoke hook. Callers must hold s.mu.
func (s *Service) snapshotLocked() Snapshot {
	if s.session == nil {
		return Snapshot{Phase: PhaseIdle, Action: Action{Label: "Load a document", ColorTag: "neutral"}}
	}
	snap := s.session.Snapshot()

	switch snap.Phase {
	case PhaseStart:
		snap.Action.Invoke = func() error { _, err := s.Start(); return err }
	case PhaseNext, PhaseSign:
		snap.Action.Invoke = func() error { _, err := s.Next(); return err }
	case PhaseSubmit:
		snap.Action.Invoke = func() error { _, err := s.Submit(context.Background()); return err }
	}
	return snap
}

// notify fans a snapshot out to subscribed host UIs
func (s *Service) notify(snap Snapshot) {
	s.mu.Lock()
	listeners := append(([]func(Snapshot))(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}
