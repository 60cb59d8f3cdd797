// Package nav executes wizard navigation: it resolves a target field's
// page, schedules renders with last-wins cancellation, and drives
// scroll/focus/highlight requests through a screen-handle registry.
package nav

import (
	"sync"

	"github.com/formflow/mcp-form-wizard/internal/geometry"
)

// ScreenHandle is the on-screen presence of one field: its page and its
// pixel box at the viewport the page was last rendered at.
type ScreenHandle struct {
	FieldID string              `json:"field_id"`
	Page    int                 `json:"page"`
	Rect    geometry.ScreenRect `json:"rect"`
}

// Registry maps field IDs to screen handles. The renderer side populates
// it at render time; the coordinator looks handles up by exact key, never
// by guessing.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]ScreenHandle
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]ScreenHandle)}
}

// Register records or replaces the handle for a field
func (r *Registry) Register(handle ScreenHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[handle.FieldID] = handle
}

// Lookup returns the handle for a field ID
func (r *Registry) Lookup(fieldID string) (ScreenHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.handles[fieldID]
	return handle, ok
}

// DropPage removes every handle on the given page, used before the page is
// re-rendered at a different viewport.
func (r *Registry) DropPage(page int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, handle := range r.handles {
		if handle.Page == page {
			delete(r.handles, id)
		}
	}
}

// Clear removes all handles
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = make(map[string]ScreenHandle)
}
