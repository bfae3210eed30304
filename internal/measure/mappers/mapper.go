// Package mappers converts raw third-party annotation events into normalized
// measurements, one mapper per tool, and exposes the registry binding each
// tool name to its mapping functions.
package mappers

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mrsinham/measurelink/internal/measure"
	"github.com/mrsinham/measurelink/internal/services"
)

// Mapping failure taxonomy. ErrToolNotSupported and ErrNonAcquisitionPlane
// are hard failures indicating a registry misconfiguration or an unsupported
// geometry; ErrMissingData and ErrNoDisplaySet are soft failures the caller
// logs and skips.
var (
	ErrToolNotSupported      = errors.New("tool not supported")
	ErrMissingData           = errors.New("annotation event missing metadata or data")
	ErrNonAcquisitionPlane   = errors.New("non-acquisition plane measurement mapping not supported")
	ErrNoDisplaySet          = errors.New("no display set resolvable for measurement")
	ErrMappingNotImplemented = errors.New("mapping not implemented")
)

// FlagSource supplies lock/visibility flags per annotation UID.
type FlagSource interface {
	IsLocked(annotationUID string) bool
	IsVisible(annotationUID string) bool
}

// Deps bundles the collaborators every mapper reads from. Mappers are pure
// functions of their event plus these lookups.
type Deps struct {
	DisplaySets   services.DisplaySetService
	Viewports     services.ViewportService
	SOP           services.SOPResolver
	Customization services.CustomizationService
	Flags         FlagSource
	Log           *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

// validate applies the shared input contract: a nil event, absent metadata or
// absent data is a soft failure; a tool name outside the mapper's supported
// list is a hard one.
func validate(evt *measure.AnnotationEvent, supported ...string) (*measure.RawAnnotation, error) {
	if evt == nil || evt.Annotation == nil {
		return nil, ErrMissingData
	}
	ann := evt.Annotation
	if ann.Metadata.ToolName == "" || ann.Data == nil {
		return nil, ErrMissingData
	}
	for _, tool := range supported {
		if ann.Metadata.ToolName == tool {
			return ann, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrToolNotSupported, ann.Metadata.ToolName)
}

// reference is the resolved identity context of an annotation event.
type reference struct {
	attrs      services.SOPInstanceAttributes
	displaySet *services.DisplaySet
}

// resolveReference resolves SOP attributes and the owning display set for an
// annotation. Tools that only measure on an acquisition plane pass
// requirePlane and receive ErrNonAcquisitionPlane for volume-referenced
// annotations. An unresolvable display set is always the soft
// ErrNoDisplaySet, logged by the caller.
func (d Deps) resolveReference(ann *measure.RawAnnotation, requirePlane bool) (reference, error) {
	var ref reference
	ref.attrs = d.SOP.Resolve(ann.Metadata.ReferencedImageID, d.Viewports, ann)

	if ref.attrs.SOPInstanceUID == "" && requirePlane {
		return ref, ErrNonAcquisitionPlane
	}

	if ref.attrs.SOPInstanceUID != "" {
		ref.displaySet = d.DisplaySets.GetDisplaySetForSOPInstanceUID(
			ref.attrs.SOPInstanceUID, ref.attrs.SeriesInstanceUID, ref.attrs.FrameNumber)
	}
	if ref.displaySet == nil && ref.attrs.SeriesInstanceUID != "" {
		if sets := d.DisplaySets.GetDisplaySetsForSeries(ref.attrs.SeriesInstanceUID); len(sets) > 0 {
			ref.displaySet = sets[0]
		}
	}
	if ref.displaySet == nil {
		return ref, ErrNoDisplaySet
	}
	return ref, nil
}

// imageIDPrefix marks per-image target keys inside cached stats.
const imageIDPrefix = "imageId:"

// volumeIDPrefix marks volume target keys inside cached stats.
const volumeIDPrefix = "volumeId:"

// targetsFromStats builds one mapped annotation per target present in the
// annotation's cached stats. unitFor resolves the tool-specific unit for a
// target from its stats and the owning display set's modality.
func (d Deps) targetsFromStats(ann *measure.RawAnnotation, unitFor func(measure.Stats, string) string) []measure.MappedAnnotation {
	keys := make([]string, 0, len(ann.Data.CachedStats))
	for key := range ann.Data.CachedStats {
		keys = append(keys, key)
	}
	// Stable target order keeps display text lines and report columns
	// deterministic across runs.
	sort.Strings(keys)

	var out []measure.MappedAnnotation
	for _, key := range keys {
		stats := ann.Data.CachedStats[key]
		imageID := ""
		switch {
		case strings.HasPrefix(key, imageIDPrefix):
			imageID = strings.TrimPrefix(key, imageIDPrefix)
		case strings.HasPrefix(key, volumeIDPrefix):
			// Volume targets resolve through the annotation's own reference.
		default:
			continue
		}

		attrs := d.SOP.Resolve(imageID, d.Viewports, ann)
		target := d.newTarget(ann, attrs, stats, unitFor)
		out = append(out, target)
	}
	return out
}

// singleTarget synthesizes the one implicit target of tools whose stats are
// not keyed per image (contours, probes, simple length).
func (d Deps) singleTarget(ann *measure.RawAnnotation, ref reference, stats measure.Stats, unitFor func(measure.Stats, string) string) []measure.MappedAnnotation {
	return []measure.MappedAnnotation{d.newTarget(ann, ref.attrs, stats, unitFor)}
}

func (d Deps) newTarget(ann *measure.RawAnnotation, attrs services.SOPInstanceAttributes, stats measure.Stats, unitFor func(measure.Stats, string) string) measure.MappedAnnotation {
	target := measure.MappedAnnotation{
		SOPInstanceUID:    attrs.SOPInstanceUID,
		SeriesInstanceUID: attrs.SeriesInstanceUID,
		FrameNumber:       attrs.FrameNumber,
		Stats:             stats,
	}
	if target.FrameNumber == 0 {
		target.FrameNumber = 1
	}

	modality := ""
	if attrs.SeriesInstanceUID != "" {
		var ds *services.DisplaySet
		if attrs.SOPInstanceUID != "" {
			ds = d.DisplaySets.GetDisplaySetForSOPInstanceUID(attrs.SOPInstanceUID, attrs.SeriesInstanceUID, target.FrameNumber)
		}
		if ds == nil {
			if sets := d.DisplaySets.GetDisplaySetsForSeries(attrs.SeriesInstanceUID); len(sets) > 0 {
				ds = sets[0]
			}
		}
		if ds != nil {
			target.SeriesNumber = ds.SeriesNumber
			target.IsMultiFrame = ds.IsMultiFrame
			modality = ds.Modality
			if inst := ds.InstanceForSOP(attrs.SOPInstanceUID); inst != nil {
				target.InstanceNumber = inst.InstanceNumber
			}
		}
	}
	target.Unit = unitFor(stats, modality)
	return target
}

// secondaryText renders the location line of each mapped annotation.
func secondaryText(targets []measure.MappedAnnotation) []string {
	var out []string
	for _, t := range targets {
		if line := measure.SecondaryLine(t.SeriesNumber, t.InstanceNumber, t.FrameNumber, t.IsMultiFrame); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// base assembles the measurement fields every tool shares. Lock and
// visibility flags come from the annotation-state store when one is wired.
func (d Deps) base(ann *measure.RawAnnotation, ref reference, valueType measure.ValueType) *measure.Measurement {
	frameNumber := ref.attrs.FrameNumber
	if frameNumber == 0 {
		frameNumber = 1
	}
	m := &measure.Measurement{
		UID:                   ann.AnnotationUID,
		SOPInstanceUID:        ref.attrs.SOPInstanceUID,
		FrameOfReferenceUID:   ref.attrs.FrameOfReferenceUID,
		ReferenceSeriesUID:    ref.attrs.SeriesInstanceUID,
		ReferenceStudyUID:     ref.attrs.StudyInstanceUID,
		ReferencedImageID:     ann.Metadata.ReferencedImageID,
		FrameNumber:           frameNumber,
		DisplaySetInstanceUID: ref.displaySet.DisplaySetInstanceUID,
		Label:                 ann.Data.Label,
		Data:                  ann.Data.CachedStats,
		Type:                  valueType,
		TextBox:               ann.Data.Handles.TextBox,
		IsVisible:             true,
	}
	if d.Flags != nil {
		m.IsLocked = d.Flags.IsLocked(ann.AnnotationUID)
		m.IsVisible = d.Flags.IsVisible(ann.AnnotationUID)
	}
	return m
}

// prologue runs the shared head of every mapper: input validation, value
// type resolution and reference resolution. Soft failures are logged here so
// tool bodies stay about geometry and statistics.
func (d Deps) prologue(evt *measure.AnnotationEvent, requirePlane bool, supported ...string) (*measure.RawAnnotation, measure.ValueType, reference, error) {
	ann, err := validate(evt, supported...)
	if err != nil {
		if errors.Is(err, ErrMissingData) {
			d.logger().Warn("annotation event missing metadata or data, skipped")
		}
		return nil, "", reference{}, err
	}
	vt, err := requireValueType(ann.Metadata.ToolName)
	if err != nil {
		return nil, "", reference{}, err
	}
	ref, err := d.resolveReference(ann, requirePlane)
	if err != nil {
		if errors.Is(err, ErrNoDisplaySet) {
			d.logger().Warn("no display set resolvable for annotation",
				"tool", ann.Metadata.ToolName, "annotationUID", ann.AnnotationUID)
		}
		return nil, "", reference{}, err
	}
	return ann, vt, ref, nil
}

// requireValueType resolves the value type for a tool name; an unregistered
// name is a hard failure (registry/config mismatch).
func requireValueType(toolName string) (measure.ValueType, error) {
	vt, ok := measure.ValueTypeForTool(toolName)
	if !ok {
		return "", fmt.Errorf("%w: no value type for %s", ErrToolNotSupported, toolName)
	}
	return vt, nil
}

// statUnit resolves a stats unit with a default. Tools that carry their own
// calibrated unit keep it; everything else falls back.
func statUnit(unit, fallback string) string {
	if unit != "" {
		return unit
	}
	return fallback
}

// contourPoints returns the geometry of contour tools, preferring the contour
// polyline over handles.
func contourPoints(ann *measure.RawAnnotation) []measure.Point {
	if ann.Data.Contour != nil && len(ann.Data.Contour.PolylinePoints) > 0 {
		return ann.Data.Contour.PolylinePoints
	}
	return ann.Data.Handles.Points
}

// firstStats returns the stats of the first target, or the zero value when
// no cached stats exist. Contour and point tools keep their single payload
// under any key.
func firstStats(ann *measure.RawAnnotation) measure.Stats {
	for _, stats := range ann.Data.CachedStats {
		return stats
	}
	return measure.Stats{}
}

// roiStatsComplete reports whether a target carries the full ROI stat set
// (mean, unit, max, area all truthy). Report columns are silently skipped for
// incomplete targets.
func roiStatsComplete(s measure.Stats) bool {
	return s.Mean != nil && *s.Mean != 0 &&
		s.Max != nil && *s.Max != 0 &&
		s.Area != nil && *s.Area != 0 &&
		s.Unit != ""
}

// orZero substitutes 0 for an absent statistic (area-family display policy).
func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
