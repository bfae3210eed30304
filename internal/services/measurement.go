package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/mrsinham/measurelink/internal/measure"
)

// MapFunc converts one raw annotation event into a normalized measurement.
type MapFunc func(*measure.AnnotationEvent) (*measure.Measurement, error)

// MeasurementService owns normalized measurements after mapping.
type MeasurementService interface {
	// AddRawMeasurement maps a raw annotation through mapFn and registers the
	// result. Returns the measurement UID.
	AddRawMeasurement(source, toolName string, evt *measure.AnnotationEvent, mapFn MapFunc) (string, error)
	GetMeasurements() []*measure.Measurement
	Remove(uid string)
	ClearMeasurements()
}

// Measurements is the in-memory MeasurementService.
type Measurements struct {
	mu    sync.RWMutex
	byUID map[string]*measure.Measurement
	order []string
}

// NewMeasurements builds an empty measurement service.
func NewMeasurements() *Measurements {
	return &Measurements{byUID: make(map[string]*measure.Measurement)}
}

// AddRawMeasurement maps and registers one measurement. A nil measurement
// with a nil error never occurs; mapper soft failures surface as errors the
// caller logs and skips.
func (m *Measurements) AddRawMeasurement(source, toolName string, evt *measure.AnnotationEvent, mapFn MapFunc) (string, error) {
	if mapFn == nil {
		return "", fmt.Errorf("no mapping function for tool %q from source %q", toolName, source)
	}
	measurement, err := mapFn(evt)
	if err != nil {
		return "", fmt.Errorf("map %s annotation: %w", toolName, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byUID[measurement.UID]; !exists {
		m.order = append(m.order, measurement.UID)
	}
	m.byUID[measurement.UID] = measurement
	return measurement.UID, nil
}

// GetMeasurements returns measurements in registration order.
func (m *Measurements) GetMeasurements() []*measure.Measurement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*measure.Measurement, 0, len(m.order))
	for _, uid := range m.order {
		if mm, ok := m.byUID[uid]; ok {
			out = append(out, mm)
		}
	}
	return out
}

// Remove drops one measurement.
func (m *Measurements) Remove(uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byUID, uid)
	for i, u := range m.order {
		if u == uid {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// ClearMeasurements drops everything.
func (m *Measurements) ClearMeasurements() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUID = make(map[string]*measure.Measurement)
	m.order = nil
}

// hashedMeasurement is the stable subset of a measurement that participates
// in content hashing. Function fields and presentation text are excluded.
type hashedMeasurement struct {
	UID                string
	ReferenceSeriesUID string
	ReferenceStudyUID  string
	Label              string
	Type               measure.ValueType
	Points             []measure.Point
	Data               map[string]measure.Stats
}

// ContentHash returns a hash of the current measurement set. The tracking
// workflow compares it against the last saved-report baseline to verify its
// dirty flag.
func (m *Measurements) ContentHash() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hashed := make([]hashedMeasurement, 0, len(m.order))
	uids := append([]string(nil), m.order...)
	sort.Strings(uids)
	for _, uid := range uids {
		mm, ok := m.byUID[uid]
		if !ok {
			continue
		}
		hashed = append(hashed, hashedMeasurement{
			UID:                mm.UID,
			ReferenceSeriesUID: mm.ReferenceSeriesUID,
			ReferenceStudyUID:  mm.ReferenceStudyUID,
			Label:              mm.Label,
			Type:               mm.Type,
			Points:             mm.Points,
			Data:               mm.Data,
		})
	}
	h, err := hashstructure.Hash(hashed, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("hash measurements: %w", err)
	}
	return h, nil
}
