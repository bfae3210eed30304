package services

import "sync"

// ViewportService resolves per-viewport reference context for annotations
// that carry no image reference of their own.
type ViewportService interface {
	// GetCurrentImageID returns the image id currently displayed in a
	// viewport, or "" when the viewport is unknown or empty.
	GetCurrentImageID(viewportID string) string

	// GetDisplaySetUID returns the display set shown in a viewport, or "".
	GetDisplaySetUID(viewportID string) string
}

// Viewports is a trivial in-memory ViewportService.
type Viewports struct {
	mu       sync.RWMutex
	imageIDs map[string]string
	dsUIDs   map[string]string
}

// NewViewports builds an empty viewport service.
func NewViewports() *Viewports {
	return &Viewports{
		imageIDs: make(map[string]string),
		dsUIDs:   make(map[string]string),
	}
}

// SetViewport records what a viewport currently displays.
func (v *Viewports) SetViewport(viewportID, imageID, displaySetUID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.imageIDs[viewportID] = imageID
	v.dsUIDs[viewportID] = displaySetUID
}

func (v *Viewports) GetCurrentImageID(viewportID string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.imageIDs[viewportID]
}

func (v *Viewports) GetDisplaySetUID(viewportID string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dsUIDs[viewportID]
}
