package sr

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/measurelink/internal/measure"
)

// Concept names used by the measurement report template.
const (
	conceptImagingMeasurements = "Imaging Measurements"
	conceptMeasurementGroup    = "Measurement Group"
	conceptTrackingIdentifier  = "Tracking Identifier"
	conceptFinding             = "Finding"
	conceptFindingSite         = "Finding Site"
)

// Parser extracts stored findings from a structured-report dataset.
type Parser struct {
	Log *slog.Logger
}

func (p *Parser) logger() *slog.Logger {
	if p == nil || p.Log == nil {
		return slog.Default()
	}
	return p.Log
}

// Findings walks the report's content sequence: the "Imaging Measurements"
// container holds one "Measurement Group" per stored measurement. Groups
// without a usable tracking identifier are dropped with a warning; legacy
// tracking tags are upgraded in place.
func (p *Parser) Findings(ds *dicom.Dataset) ([]Finding, error) {
	root := sequenceItems(ds.Elements, tag.ContentSequence)
	if root == nil {
		return nil, fmt.Errorf("structured report has no content sequence")
	}

	var imaging [][]*dicom.Element
	for _, item := range root {
		if conceptName(item) == conceptImagingMeasurements {
			imaging = sequenceItems(item, tag.ContentSequence)
			break
		}
	}
	if imaging == nil {
		return nil, fmt.Errorf("structured report has no %q container", conceptImagingMeasurements)
	}

	var findings []Finding
	for _, group := range imaging {
		if conceptName(group) != conceptMeasurementGroup {
			continue
		}
		finding, ok := p.parseGroup(group)
		if !ok {
			continue
		}
		findings = append(findings, finding)
	}
	return findings, nil
}

func (p *Parser) parseGroup(group []*dicom.Element) (Finding, bool) {
	finding := Finding{
		FrameNumber: 1,
		Values:      make(map[string]float64),
		Units:       make(map[string]string),
	}

	content := sequenceItems(group, tag.ContentSequence)
	for _, item := range content {
		name := conceptName(item)
		switch name {
		case conceptTrackingIdentifier:
			identifier := elementString(item, tag.TextValue)
			normalized, toolName, ok := normalizeTrackingIdentifier(identifier)
			if !ok {
				p.logger().Warn("measurement group with malformed tracking identifier dropped", "identifier", identifier)
				return Finding{}, false
			}
			finding.TrackingIdentifier = normalized
			finding.ToolName = toolName
		case conceptFinding:
			if code := codeFromSequence(item, tag.ConceptCodeSequence); code != nil {
				finding.FindingCode = code
			}
		case conceptFindingSite:
			if code := codeFromSequence(item, tag.ConceptCodeSequence); code != nil {
				finding.FindingSites = append(finding.FindingSites, *code)
			}
		default:
			p.parseContentItem(&finding, name, item)
		}
	}

	if finding.ToolName == "" {
		return Finding{}, false
	}
	if finding.Label == "" {
		finding.Label = finding.ToolName
	}
	return finding, true
}

// parseContentItem handles NUM and TEXT content: numeric values land in the
// Values/Units maps, free text becomes the finding label, and nested SCOORD
// content supplies geometry and the image reference.
func (p *Parser) parseContentItem(finding *Finding, name string, item []*dicom.Element) {
	if measured := sequenceItems(item, tag.MeasuredValueSequence); len(measured) > 0 {
		if v, ok := numericValue(measured[0]); ok && name != "" {
			finding.Values[name] = v
			if unit := codeValueFromSequence(measured[0], tag.MeasurementUnitsCodeSequence); unit != "" {
				finding.Units[name] = unit
			}
		}
	} else if text := elementString(item, tag.TextValue); text != "" && name != "" {
		finding.Label = text
	}

	for _, nested := range sequenceItems(item, tag.ContentSequence) {
		if points := graphicPoints(nested); len(points) > 0 {
			finding.Points = points
			finding.GraphicType = elementString(nested, tag.GraphicType)
		}
		for _, ref := range sequenceItems(nested, tag.ReferencedSOPSequence) {
			if sop := elementString(ref, tag.ReferencedSOPInstanceUID); sop != "" {
				finding.SOPInstanceUID = sop
			}
			if frame, ok := intValue(ref, tag.ReferencedFrameNumber); ok && frame > 0 {
				finding.FrameNumber = frame
			}
		}
	}
}

// conceptName returns the CodeMeaning of an item's concept-name sequence.
func conceptName(item []*dicom.Element) string {
	items := sequenceItems(item, tag.ConceptNameCodeSequence)
	if len(items) == 0 {
		return ""
	}
	return elementString(items[0], tag.CodeMeaning)
}

// codeFromSequence reads a coded concept out of a nested code sequence.
func codeFromSequence(item []*dicom.Element, t tag.Tag) *measure.Code {
	items := sequenceItems(item, t)
	if len(items) == 0 {
		return nil
	}
	code := &measure.Code{
		CodeValue:              elementString(items[0], tag.CodeValue),
		CodingSchemeDesignator: elementString(items[0], tag.CodingSchemeDesignator),
		CodeMeaning:            elementString(items[0], tag.CodeMeaning),
	}
	if code.CodeValue == "" && code.CodeMeaning == "" {
		return nil
	}
	return code
}

func codeValueFromSequence(item []*dicom.Element, t tag.Tag) string {
	items := sequenceItems(item, t)
	if len(items) == 0 {
		return ""
	}
	return elementString(items[0], tag.CodeValue)
}

// graphicPoints decodes SCOORD graphic data into 3D points; planar graphic
// data carries x/y pairs with z fixed at 0.
func graphicPoints(item []*dicom.Element) []measure.Point {
	elem := findElement(item, tag.GraphicData)
	if elem == nil {
		return nil
	}
	floats := floatValues(elem)
	if len(floats) < 2 {
		return nil
	}
	points := make([]measure.Point, 0, len(floats)/2)
	for i := 0; i+1 < len(floats); i += 2 {
		points = append(points, measure.Point{floats[i], floats[i+1], 0})
	}
	return points
}

// sequenceItems resolves a sequence element into its per-item element
// lists.
func sequenceItems(elems []*dicom.Element, t tag.Tag) [][]*dicom.Element {
	elem := findElement(elems, t)
	if elem == nil {
		return nil
	}
	items, ok := elem.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		return nil
	}
	out := make([][]*dicom.Element, 0, len(items))
	for _, item := range items {
		if inner, ok := item.GetValue().([]*dicom.Element); ok {
			out = append(out, inner)
		}
	}
	return out
}

func findElement(elems []*dicom.Element, t tag.Tag) *dicom.Element {
	for _, elem := range elems {
		if elem != nil && elem.Tag == t {
			return elem
		}
	}
	return nil
}

// elementString extracts a single string value, tolerating the library's
// bracketed string rendering for unusual VRs.
func elementString(elems []*dicom.Element, t tag.Tag) string {
	elem := findElement(elems, t)
	if elem == nil {
		return ""
	}
	if vals, ok := elem.Value.GetValue().([]string); ok && len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return strings.Trim(elem.Value.String(), " []")
}

// numericValue reads the NumericValue of a measured-value item. DS values
// arrive as decimal strings.
func numericValue(elems []*dicom.Element) (float64, bool) {
	elem := findElement(elems, tag.NumericValue)
	if elem == nil {
		return 0, false
	}
	switch vals := elem.Value.GetValue().(type) {
	case []string:
		if len(vals) > 0 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64); err == nil {
				return v, true
			}
		}
	case []float64:
		if len(vals) > 0 {
			return vals[0], true
		}
	}
	return 0, false
}

func intValue(elems []*dicom.Element, t tag.Tag) (int, bool) {
	elem := findElement(elems, t)
	if elem == nil {
		return 0, false
	}
	switch vals := elem.Value.GetValue().(type) {
	case []int:
		if len(vals) > 0 {
			return vals[0], true
		}
	case []string:
		if len(vals) > 0 {
			if v, err := strconv.Atoi(strings.TrimSpace(vals[0])); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func floatValues(elem *dicom.Element) []float64 {
	switch vals := elem.Value.GetValue().(type) {
	case []float64:
		return vals
	case []float32:
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = float64(v)
		}
		return out
	case []string:
		out := make([]float64, 0, len(vals))
		for _, s := range vals {
			if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				out = append(out, v)
			}
		}
		return out
	}
	return nil
}
