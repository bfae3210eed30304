// Package services defines the external collaborator surface the measurement
// core depends on (display sets, measurements, viewports, customization,
// dialogs, SOP attribute resolution) together with in-memory reference
// implementations used by the CLI and the tests.
package services

import (
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Instance is the per-image metadata the core needs from a display set.
type Instance struct {
	SOPInstanceUID      string
	SeriesInstanceUID   string
	StudyInstanceUID    string
	FrameOfReferenceUID string
	InstanceNumber      int
	NumberOfFrames      int
	ImageID             string
	Modality            string
}

// DisplaySet groups the instances of one series presentation.
type DisplaySet struct {
	DisplaySetInstanceUID string
	SeriesInstanceUID     string
	StudyInstanceUID      string
	SeriesNumber          string
	Modality              string
	IsMultiFrame          bool
	Instances             []Instance

	// Structured-report display sets only.
	IsRehydratable bool
	IsHydrated     bool
	SRDatasetPath  string
}

// DisplaySetService is the owning-display-set lookup surface.
type DisplaySetService interface {
	GetDisplaySetForSOPInstanceUID(sopInstanceUID, seriesInstanceUID string, frameNumber int) *DisplaySet
	GetDisplaySetsForSeries(seriesInstanceUID string) []*DisplaySet
	GetDisplaySetByUID(displaySetInstanceUID string) *DisplaySet
	GetActiveDisplaySets() []*DisplaySet
}

// sopKey identifies one instance within a series for cache lookups.
type sopKey struct {
	sop    string
	series string
}

// DisplaySets is an in-memory DisplaySetService with an LRU-cached
// SOP-to-display-set index.
type DisplaySets struct {
	mu    sync.RWMutex
	byUID map[string]*DisplaySet
	order []string

	cache *lru.Cache
}

// NewDisplaySets builds an empty in-memory display set service.
func NewDisplaySets() (*DisplaySets, error) {
	cache, err := lru.New(512)
	if err != nil {
		return nil, fmt.Errorf("create sop cache: %w", err)
	}
	return &DisplaySets{
		byUID: make(map[string]*DisplaySet),
		cache: cache,
	}, nil
}

// Add registers a display set. Re-adding the same UID replaces it and drops
// stale cache entries.
func (d *DisplaySets) Add(ds *DisplaySet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byUID[ds.DisplaySetInstanceUID]; !exists {
		d.order = append(d.order, ds.DisplaySetInstanceUID)
	}
	d.byUID[ds.DisplaySetInstanceUID] = ds
	d.cache.Purge()
}

// GetDisplaySetForSOPInstanceUID resolves the display set owning an instance.
// The frame number is accepted for interface parity with multiframe viewers
// but does not influence ownership.
func (d *DisplaySets) GetDisplaySetForSOPInstanceUID(sopInstanceUID, seriesInstanceUID string, frameNumber int) *DisplaySet {
	key := sopKey{sop: sopInstanceUID, series: seriesInstanceUID}
	if cached, ok := d.cache.Get(key); ok {
		return cached.(*DisplaySet)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, uid := range d.order {
		ds := d.byUID[uid]
		if seriesInstanceUID != "" && ds.SeriesInstanceUID != seriesInstanceUID {
			continue
		}
		for _, inst := range ds.Instances {
			if inst.SOPInstanceUID == sopInstanceUID {
				d.cache.Add(key, ds)
				return ds
			}
		}
	}
	return nil
}

// GetDisplaySetsForSeries returns display sets for a series in insertion
// order.
func (d *DisplaySets) GetDisplaySetsForSeries(seriesInstanceUID string) []*DisplaySet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*DisplaySet
	for _, uid := range d.order {
		if ds := d.byUID[uid]; ds.SeriesInstanceUID == seriesInstanceUID {
			out = append(out, ds)
		}
	}
	return out
}

// GetDisplaySetByUID returns a display set by its own UID.
func (d *DisplaySets) GetDisplaySetByUID(displaySetInstanceUID string) *DisplaySet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byUID[displaySetInstanceUID]
}

// GetActiveDisplaySets returns every registered display set, ordered by UID
// for deterministic output.
func (d *DisplaySets) GetActiveDisplaySets() []*DisplaySet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*DisplaySet, 0, len(d.byUID))
	for _, ds := range d.byUID {
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DisplaySetInstanceUID < out[j].DisplaySetInstanceUID
	})
	return out
}

// InstanceForSOP finds an instance by SOPInstanceUID within a display set.
// Returns nil when the display set holds no matching instance.
func (ds *DisplaySet) InstanceForSOP(sopInstanceUID string) *Instance {
	for i := range ds.Instances {
		if ds.Instances[i].SOPInstanceUID == sopInstanceUID {
			return &ds.Instances[i]
		}
	}
	return nil
}
