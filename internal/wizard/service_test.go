package wizard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/mcp-form-wizard/internal/document"
	"github.com/formflow/mcp-form-wizard/internal/field"
	"github.com/formflow/mcp-form-wizard/internal/geometry"
	"github.com/formflow/mcp-form-wizard/internal/nav"
	"github.com/formflow/mcp-form-wizard/internal/submit"
)

// stubRenderer serves a fixed two-page form without touching any PDF
type stubRenderer struct {
	annotations map[int][]document.RawAnnotation
}

func newStubRenderer() *stubRenderer {
	return &stubRenderer{
		annotations: map[int][]document.RawAnnotation{
			1: {
				{
					Index: 0, Name: "Full Name", FieldType: "Tx", Required: true,
					Rect: &geometry.DocRect{X1: 72, Y1: 680, X2: 300, Y2: 700},
				},
				{
					Index: 1, Name: "Email", FieldType: "Tx", Required: true,
					Rect: &geometry.DocRect{X1: 72, Y1: 640, X2: 300, Y2: 660},
				},
			},
			2: {
				{
					Index: 0, Name: "Signature", FieldType: "Sig",
					Rect: &geometry.DocRect{X1: 72, Y1: 100, X2: 300, Y2: 140},
				},
			},
		},
	}
}

func (r *stubRenderer) LoadDocument(source string) (*document.DocumentInfo, error) {
	return &document.DocumentInfo{
		Source:    source,
		PageCount: 2,
		Pages: []document.PageInfo{
			{Number: 1, Width: 612, Height: 792},
			{Number: 2, Width: 612, Height: 792},
		},
	}, nil
}

func (r *stubRenderer) RenderPage(ctx context.Context, pageNumber int, vp geometry.Viewport) (*document.PageSurface, error) {
	w, h := vp.ScreenSize()
	return &document.PageSurface{Page: pageNumber, Width: w, Height: h}, nil
}

func (r *stubRenderer) Annotations(pageNumber int) ([]document.RawAnnotation, error) {
	return r.annotations[pageNumber], nil
}

func (r *stubRenderer) Close() error { return nil }

// stubSink records submissions and can be told to fail
type stubSink struct {
	mu       sync.Mutex
	fail     bool
	attempts int
	values   map[string]field.Value
}

func (s *stubSink) Submit(ctx context.Context, source string, values map[string]field.Value, signatures map[string]string) (*submit.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.fail {
		return &submit.Outcome{Success: false, Failures: []string{"sink offline"}}, nil
	}
	s.values = values
	return &submit.Outcome{Success: true, Receipt: "receipt-1"}, nil
}

func newTestService() (*Service, *stubSink) {
	renderer := newStubRenderer()
	sink := &stubSink{}
	coordinator := nav.NewCoordinator(renderer, nav.NewRegistry(),
		nav.WithRetryPolicy(3, time.Millisecond),
		nav.WithHighlightDuration(time.Millisecond))
	return NewService(renderer, sink, coordinator), sink
}

func loadTestDocument(t *testing.T, s *Service) {
	t.Helper()
	result, err := s.LoadDocument(LoadDocumentRequest{Path: "/forms/application.pdf"})
	require.NoError(t, err)
	require.Equal(t, 3, result.FieldCount)
	require.Equal(t, PhaseStart, result.Snapshot.Phase)
}

func TestServiceRequiresLoadedDocument(t *testing.T) {
	s, _ := newTestService()

	_, err := s.Start()
	assert.Error(t, err)
	_, err = s.Fields()
	assert.Error(t, err)
	_, err = s.State()
	assert.Error(t, err)
	_, err = s.SetValue(SetValueRequest{FieldID: "x"})
	assert.Error(t, err)
	_, err = s.Submit(context.Background())
	assert.Error(t, err)
}

func TestServiceFullFlow(t *testing.T) {
	s, sink := newTestService()
	loadTestDocument(t, s)

	state, err := s.Start()
	require.NoError(t, err)
	require.NotNil(t, state.Snapshot.CurrentField)
	assert.Equal(t, "p1_a0_full_name", state.Snapshot.CurrentField.ID)

	// Next is refused while the current field is empty
	_, err = s.Next()
	assert.Error(t, err)

	_, err = s.SetValue(SetValueRequest{FieldID: "p1_a0_full_name", Text: "Ada Lovelace"})
	require.NoError(t, err)
	state, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, "p1_a1_email", state.Snapshot.CurrentField.ID)

	// Next is refused while the current value is invalid
	_, err = s.SetValue(SetValueRequest{FieldID: "p1_a1_email", Text: "broken"})
	require.NoError(t, err)
	_, err = s.Next()
	assert.Error(t, err)

	_, err = s.SetValue(SetValueRequest{FieldID: "p1_a1_email", Text: "ada@example.com"})
	require.NoError(t, err)
	state, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, PhaseSign, state.Snapshot.Phase)
	assert.Equal(t, "p2_a0_signature", state.Snapshot.CurrentField.ID)

	_, err = s.SetValue(SetValueRequest{FieldID: "p2_a0_signature", Text: "sig-payload"})
	require.NoError(t, err)
	state, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmit, state.Snapshot.Phase)

	result, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Outcome.Success)
	assert.Equal(t, PhaseComplete, result.Snapshot.Phase)
	assert.Equal(t, "Ada Lovelace", sink.values["p1_a0_full_name"].Text)
}

func TestServiceSubmitOutsideSubmitPhase(t *testing.T) {
	s, _ := newTestService()
	loadTestDocument(t, s)

	_, err := s.Submit(context.Background())
	assert.Error(t, err)
}

func TestServiceSubmitRetryAfterFailure(t *testing.T) {
	s, sink := newTestService()
	loadTestDocument(t, s)

	fillEverything(t, s)

	sink.fail = true
	result, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Outcome.Success)
	assert.Equal(t, PhaseSubmit, result.Snapshot.Phase)

	// Retry succeeds without re-entering the field flow
	sink.fail = false
	result, err = s.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Outcome.Success)
	assert.Equal(t, PhaseComplete, result.Snapshot.Phase)
	assert.Equal(t, 2, sink.attempts)
}

func TestServiceJumpAndBack(t *testing.T) {
	s, _ := newTestService()
	loadTestDocument(t, s)
	_, err := s.Start()
	require.NoError(t, err)

	state, err := s.Jump(JumpRequest{FieldID: "p2_a0_signature"})
	require.NoError(t, err)
	assert.Equal(t, PhaseSign, state.Snapshot.Phase)

	state, err = s.Back()
	require.NoError(t, err)
	assert.Equal(t, PhaseNext, state.Snapshot.Phase)
	assert.Equal(t, "p1_a0_full_name", state.Snapshot.CurrentField.ID)

	_, err = s.Jump(JumpRequest{FieldID: "missing"})
	assert.Error(t, err)
}

func TestServiceFieldsOrdered(t *testing.T) {
	s, _ := newTestService()
	loadTestDocument(t, s)

	result, err := s.Fields()
	require.NoError(t, err)
	require.Len(t, result.Fields, 3)
	assert.Equal(t, "p1_a0_full_name", result.Fields[0].ID)
	assert.Equal(t, "p1_a1_email", result.Fields[1].ID)
	assert.Equal(t, "p2_a0_signature", result.Fields[2].ID)
}

func TestServiceProgress(t *testing.T) {
	s, _ := newTestService()
	loadTestDocument(t, s)

	progress, err := s.Progress()
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Completed)
	assert.Equal(t, 2, progress.Total)

	_, err = s.SetValue(SetValueRequest{FieldID: "p1_a0_full_name", Text: "Ada"})
	require.NoError(t, err)

	progress, err = s.Progress()
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Completed)
	assert.Equal(t, 50, progress.Percentage)
}

func TestServiceNotifiesSubscribers(t *testing.T) {
	s, _ := newTestService()

	var mu sync.Mutex
	var phases []Phase
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		phases = append(phases, snap.Phase)
		mu.Unlock()
	})

	loadTestDocument(t, s)
	_, err := s.Start()
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, phases)
	assert.Equal(t, PhaseStart, phases[0])
	assert.Equal(t, PhaseNext, phases[len(phases)-1])
}

func TestServiceLoadReplacesSession(t *testing.T) {
	s, _ := newTestService()
	loadTestDocument(t, s)
	_, err := s.Start()
	require.NoError(t, err)
	_, err = s.SetValue(SetValueRequest{FieldID: "p1_a0_full_name", Text: "Ada"})
	require.NoError(t, err)

	// Loading again starts a fresh session with no carried-over values
	loadTestDocument(t, s)
	state, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, PhaseStart, state.Snapshot.Phase)

	progress, err := s.Progress()
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Completed)
}

func fillEverything(t *testing.T, s *Service) {
	t.Helper()
	_, err := s.Start()
	require.NoError(t, err)
	_, err = s.SetValue(SetValueRequest{FieldID: "p1_a0_full_name", Text: "Ada"})
	require.NoError(t, err)
	_, err = s.Next()
	require.NoError(t, err)
	_, err = s.SetValue(SetValueRequest{FieldID: "p1_a1_email", Text: "ada@example.com"})
	require.NoError(t, err)
	_, err = s.Next()
	require.NoError(t, err)
	_, err = s.SetValue(SetValueRequest{FieldID: "p2_a0_signature", Text: "sig"})
	require.NoError(t, err)
	_, err = s.Next()
	require.NoError(t, err)
}
