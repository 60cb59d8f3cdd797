package nav

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
)

// fakeRenderer renders instantly unless a delay is set
type fakeRenderer struct {
	delay time.Duration

	mu      sync.Mutex
	renders []int
}

func (r *fakeRenderer) LoadDocument(source string) (*document.DocumentInfo, error) {
	return &document.DocumentInfo{Source: source, PageCount: 1}, nil
}

func (r *fakeRenderer) RenderPage(ctx context.Context, pageNumber int, vp geometry.Viewport) (*document.PageSurface, error) {
	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	r.mu.Lock()
	r.renders = append(r.renders, pageNumber)
	r.mu.Unlock()

	w, h := vp.ScreenSize()
	return &document.PageSurface{Page: pageNumber, Width: w, Height: h}, nil
}

func (r *fakeRenderer) Annotations(pageNumber int) ([]document.RawAnnotation, error) {
	return nil, nil
}

func (r *fakeRenderer) Close() error { return nil }

// recordingEvents collects navigation outcomes for assertions
type recordingEvents struct {
	mu         sync.Mutex
	rendered   []int
	focused    []string
	cleared    []string
	failures   []string
	failureIDs []string
}

func (e *recordingEvents) PageRendered(surface *document.PageSurface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rendered = append(e.rendered, surface.Page)
}

func (e *recordingEvents) FieldFocused(fieldID string, handle ScreenHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focused = append(e.focused, fieldID)
}

func (e *recordingEvents) FieldHighlightCleared(fieldID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleared = append(e.cleared, fieldID)
}

func (e *recordingEvents) NavigationFailed(fieldID, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureIDs = append(e.failureIDs, fieldID)
	e.failures = append(e.failures, reason)
}

func (e *recordingEvents) snapshot() (rendered []int, focused, cleared, failureIDs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.rendered...),
		append([]string(nil), e.focused...),
		append([]string(nil), e.cleared...),
		append([]string(nil), e.failureIDs...)
}

// eventually polls a condition instead of sleeping a fixed long time
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func testViewport() geometry.Viewport {
	return geometry.Viewport{Width: 612, Height: 792, Scale: 1}
}

func TestNavigateToFocusesRegisteredField(t *testing.T) {
	events := &recordingEvents{}
	c := NewCoordinator(&fakeRenderer{}, NewRegistry(),
		WithEvents(events),
		WithRetryPolicy(5, 5*time.Millisecond),
		WithHighlightDuration(20*time.Millisecond))
	c.BindSession("session-1")

	target := field.Field{ID: "name", Page: 1, Rect: geometry.DocRect{X1: 10, Y1: 700, X2: 110, Y2: 720}}
	c.RegisterFields([]field.Field{target}, 1, testViewport())
	c.NavigateTo(context.Background(), target)

	eventually(t, func() bool {
		_, focused, _, _ := events.snapshot()
		return len(focused) == 1
	}, "field was never focused")

	_, focused, _, _ := events.snapshot()
	assert.Equal(t, []string{"name"}, focused)

	// The highlight expires on its own
	eventually(t, func() bool {
		_, _, cleared, _ := events.snapshot()
		return len(cleared) == 1
	}, "highlight was never cleared")
}

func TestNavigateToRetriesUntilHandleAppears(t *testing.T) {
	events := &recordingEvents{}
	registry := NewRegistry()
	c := NewCoordinator(&fakeRenderer{}, registry,
		WithEvents(events),
		WithRetryPolicy(20, 5*time.Millisecond),
		WithHighlightDuration(time.Minute))
	c.BindSession("session-1")

	target := field.Field{ID: "late", Page: 1, Rect: geometry.DocRect{X1: 0, Y1: 0, X2: 10, Y2: 10}}
	c.NavigateTo(context.Background(), target)

	// The handle shows up while the lookup is still retrying
	time.Sleep(15 * time.Millisecond)
	c.RegisterFields([]field.Field{target}, 1, testViewport())

	eventually(t, func() bool {
		_, focused, _, _ := events.snapshot()
		return len(focused) == 1
	}, "late-registered field was never focused")
}

func TestNavigateToExhaustsRetryBudget(t *testing.T) {
	events := &recordingEvents{}
	c := NewCoordinator(&fakeRenderer{}, NewRegistry(),
		WithEvents(events),
		WithRetryPolicy(3, time.Millisecond))
	c.BindSession("session-1")

	c.NavigateTo(context.Background(), field.Field{ID: "ghost", Page: 1})

	eventually(t, func() bool {
		_, _, _, failureIDs := events.snapshot()
		return len(failureIDs) == 1
	}, "exhausted navigation never reported failure")

	_, focused, _, failureIDs := events.snapshot()
	assert.Empty(t, focused)
	assert.Equal(t, []string{"ghost"}, failureIDs)
}

func TestRenderPageAppliesResult(t *testing.T) {
	events := &recordingEvents{}
	renderer := &fakeRenderer{}
	c := NewCoordinator(renderer, NewRegistry(), WithEvents(events))
	c.BindSession("session-1")

	var gotSurface *document.PageSurface
	var mu sync.Mutex
	c.RenderPage(context.Background(), 1, testViewport(), func(surface *document.PageSurface) {
		mu.Lock()
		gotSurface = surface
		mu.Unlock()
	})

	eventually(t, func() bool {
		rendered, _, _, _ := events.snapshot()
		return len(rendered) == 1
	}, "render result was never applied")

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, gotSurface)
	assert.Equal(t, 1, gotSurface.Page)
	assert.Equal(t, 612.0, gotSurface.Width)
}

func TestRenderPageLastWins(t *testing.T) {
	events := &recordingEvents{}
	renderer := &fakeRenderer{delay: 50 * time.Millisecond}
	c := NewCoordinator(renderer, NewRegistry(), WithEvents(events))
	c.BindSession("session-1")

	// The second render for the same page cancels the first
	c.RenderPage(context.Background(), 1, geometry.Viewport{Width: 612, Height: 792, Scale: 1}, nil)
	c.RenderPage(context.Background(), 1, geometry.Viewport{Width: 612, Height: 792, Scale: 2}, nil)

	eventually(t, func() bool {
		rendered, _, _, _ := events.snapshot()
		return len(rendered) >= 1
	}, "no render result arrived")

	// Give the cancelled render a chance to surface if it wrongly applied
	time.Sleep(80 * time.Millisecond)
	rendered, _, _, _ := events.snapshot()
	assert.Len(t, rendered, 1)
}

func TestBindSessionDropsStaleResults(t *testing.T) {
	events := &recordingEvents{}
	renderer := &fakeRenderer{delay: 30 * time.Millisecond}
	c := NewCoordinator(renderer, NewRegistry(), WithEvents(events))
	c.BindSession("session-1")

	c.RenderPage(context.Background(), 1, testViewport(), nil)

	// The document is swapped while the render is in flight
	c.BindSession("session-2")

	time.Sleep(80 * time.Millisecond)
	rendered, _, _, _ := events.snapshot()
	assert.Empty(t, rendered, "stale render result must not be applied")
}

func TestBindSessionCancelsPendingHighlight(t *testing.T) {
	events := &recordingEvents{}
	registry := NewRegistry()
	c := NewCoordinator(&fakeRenderer{}, registry,
		WithEvents(events),
		WithRetryPolicy(5, time.Millisecond),
		WithHighlightDuration(40*time.Millisecond))
	c.BindSession("session-1")

	target := field.Field{ID: "sig", Page: 1, Rect: geometry.DocRect{X1: 0, Y1: 0, X2: 10, Y2: 10}}
	c.RegisterFields([]field.Field{target}, 1, testViewport())
	c.NavigateTo(context.Background(), target)

	eventually(t, func() bool {
		_, focused, _, _ := events.snapshot()
		return len(focused) == 1
	}, "field was never focused")

	// Swapping the session before the highlight expires must swallow the
	// pending clear and empty the registry.
	c.BindSession("session-2")

	time.Sleep(80 * time.Millisecond)
	_, _, cleared, _ := events.snapshot()
	assert.Empty(t, cleared, "no residual highlight event may cross sessions")

	_, ok := registry.Lookup("sig")
	assert.False(t, ok)
}
