package nav

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/formflow/mcp-form-wizard/internal/document"
	"github.com/formflow/mcp-form-wizard/internal/field"
	"github.com/formflow/mcp-form-wizard/internal/geometry"
)

// Defaults for the retry and highlight policies
const (
	DefaultMaxAttempts       = 5
	DefaultRetryBackoff      = 50 * time.Millisecond
	DefaultHighlightDuration = 2 * time.Second
)

// Events receives navigation outcomes. All methods may be called from a
// background goroutine; implementations must be safe for that. A nil
// Events on the coordinator drops all notifications.
type Events interface {
	// PageRendered fires when a scheduled render finishes and its result
	// was applied (not stale, not cancelled).
	PageRendered(surface *document.PageSurface)
	// FieldFocused fires when navigation found the target's screen handle
	FieldFocused(fieldID string, handle ScreenHandle)
	// FieldHighlightCleared fires when a time-bounded highlight expires
	FieldHighlightCleared(fieldID string)
	// NavigationFailed fires after the retry budget is exhausted. It is a
	// non-fatal report; wizard state is unaffected.
	NavigationFailed(fieldID string, reason string)
}

// Coordinator executes navigateTo requests against the rendering
// collaborator. Renders are asynchronous; a new render for a page cancels
// the in-flight one (last-requested-scale-wins) and cancellation is a
// non-error outcome. Results carrying a stale session token are dropped.
type Coordinator struct {
	renderer document.Renderer
	registry *Registry
	events   Events

	maxAttempts       int
	retryBackoff      time.Duration
	highlightDuration time.Duration

	mu              sync.Mutex
	sessionToken    string
	renderCancels   map[int]context.CancelFunc
	highlightTimers map[string]*time.Timer
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithEvents sets the navigation event receiver
func WithEvents(events Events) Option {
	return func(c *Coordinator) { c.events = events }
}

// WithRetryPolicy overrides the lookup retry budget
func WithRetryPolicy(maxAttempts int, backoff time.Duration) Option {
	return func(c *Coordinator) {
		c.maxAttempts = maxAttempts
		c.retryBackoff = backoff
	}
}

// WithHighlightDuration overrides how long a navigation highlight lives
func WithHighlightDuration(d time.Duration) Option {
	return func(c *Coordinator) { c.highlightDuration = d }
}

// NewCoordinator creates a navigation coordinator over a renderer
func NewCoordinator(renderer document.Renderer, registry *Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		renderer:          renderer,
		registry:          registry,
		maxAttempts:       DefaultMaxAttempts,
		retryBackoff:      DefaultRetryBackoff,
		highlightDuration: DefaultHighlightDuration,
		renderCancels:     make(map[int]context.CancelFunc),
		highlightTimers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BindSession ties the coordinator to a new document session. Everything
// belonging to the previous session is torn down: in-flight renders are
// cancelled, highlight timers stopped, and the handle registry cleared, so
// no stale highlight can surface on the new document.
func (c *Coordinator) BindSession(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessionToken = token
	for page, cancel := range c.renderCancels {
		cancel()
		delete(c.renderCancels, page)
	}
	for id, timer := range c.highlightTimers {
		timer.Stop()
		delete(c.highlightTimers, id)
	}
	c.registry.Clear()
}

// RenderPage schedules an asynchronous render of a page, cancelling any
// in-flight render of the same page first. onDone runs with the surface
// once the render finishes, unless the render was cancelled or the session
// changed in the meantime.
func (c *Coordinator) RenderPage(ctx context.Context, pageNumber int, vp geometry.Viewport, onDone func(*document.PageSurface)) {
	c.mu.Lock()
	token := c.sessionToken
	if cancel, ok := c.renderCancels[pageNumber]; ok {
		cancel()
	}
	renderCtx, cancel := context.WithCancel(ctx)
	c.renderCancels[pageNumber] = cancel
	c.mu.Unlock()

	c.registry.DropPage(pageNumber)

	go func() {
		defer cancel()

		surface, err := c.renderer.RenderPage(renderCtx, pageNumber, vp)
		if err != nil {
			// A superseded render is expected, not a failure
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			c.notifyNavigationFailed("", fmt.Sprintf("render of page %d failed: %v", pageNumber, err))
			return
		}
		if c.stale(token) {
			return
		}
		if onDone != nil {
			onDone(surface)
		}
		if c.events != nil {
			c.events.PageRendered(surface)
		}
	}()
}

// RegisterFields populates the screen-handle registry for one rendered
// page by mapping each field rectangle through the viewport transform.
func (c *Coordinator) RegisterFields(fields []field.Field, pageNumber int, vp geometry.Viewport) {
	for _, f := range fields {
		if f.Page != pageNumber {
			continue
		}
		c.registry.Register(ScreenHandle{
			FieldID: f.ID,
			Page:    pageNumber,
			Rect:    geometry.ToScreenRect(f.Rect, vp),
		})
	}
}

// NavigateTo resolves the target field's screen handle and requests
// focus plus a time-bounded highlight. The lookup retries a handful of
// times with a short backoff while the renderer materializes the page;
// exhausting the budget produces a non-fatal NavigationFailed event.
// NavigateTo never returns an error and never blocks the caller.
func (c *Coordinator) NavigateTo(ctx context.Context, target field.Field) {
	c.mu.Lock()
	token := c.sessionToken
	c.mu.Unlock()

	go func() {
		for attempt := 0; attempt < c.maxAttempts; attempt++ {
			if ctx.Err() != nil || c.stale(token) {
				return
			}
			if handle, ok := c.registry.Lookup(target.ID); ok {
				c.focus(token, handle)
				return
			}
			time.Sleep(c.retryBackoff)
		}
		if !c.stale(token) {
			c.notifyNavigationFailed(target.ID,
				fmt.Sprintf("no screen element for field %s after %d attempts", target.ID, c.maxAttempts))
		}
	}()
}

// focus reports the found handle and arms the highlight timer
func (c *Coordinator) focus(token string, handle ScreenHandle) {
	c.mu.Lock()
	if c.sessionToken != token {
		c.mu.Unlock()
		return
	}
	if timer, ok := c.highlightTimers[handle.FieldID]; ok {
		timer.Stop()
	}
	fieldID := handle.FieldID
	c.highlightTimers[fieldID] = time.AfterFunc(c.highlightDuration, func() {
		c.mu.Lock()
		stale := c.sessionToken != token
		delete(c.highlightTimers, fieldID)
		c.mu.Unlock()
		if !stale && c.events != nil {
			c.events.FieldHighlightCleared(fieldID)
		}
	})
	c.mu.Unlock()

	if c.events != nil {
		c.events.FieldFocused(fieldID, handle)
	}
}

// stale reports whether the token belongs to a replaced session
func (c *Coordinator) stale(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken != token
}

func (c *Coordinator) notifyNavigationFailed(fieldID, reason string) {
	if c.events != nil {
		c.events.NavigationFailed(fieldID, reason)
	}
}
