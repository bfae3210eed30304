package sr

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/uuid"
	"github.com/suyashkumar/dicom"

	"github.com/mrsinham/measurelink/internal/annotations"
	"github.com/mrsinham/measurelink/internal/measure"
	"github.com/mrsinham/measurelink/internal/measure/mappers"
	"github.com/mrsinham/measurelink/internal/services"
)

// SourceName identifies measurements imported from structured reports.
const SourceName = "Cornerstone3DTools"

// ErrMultiStudyReport rejects reports whose findings span more than one
// study. Multi-study reports are unsupported; failing beats silently
// dropping every study but the first.
var ErrMultiStudyReport = errors.New("sr: report spans multiple studies")

// Result is the tracking context a hydration merges in.
type Result struct {
	StudyInstanceUID   string
	SeriesInstanceUIDs []string
}

// DatasetLoader loads the report dataset behind an SR display set.
type DatasetLoader func(ds *services.DisplaySet) (*dicom.Dataset, error)

// FileDatasetLoader reads the report from the display set's dataset path.
func FileDatasetLoader(ds *services.DisplaySet) (*dicom.Dataset, error) {
	if ds.SRDatasetPath == "" {
		return nil, fmt.Errorf("sr: display set %s has no report dataset", ds.DisplaySetInstanceUID)
	}
	parsed, err := dicom.ParseFile(ds.SRDatasetPath, nil)
	if err != nil {
		return nil, fmt.Errorf("sr: parse %s: %w", ds.SRDatasetPath, err)
	}
	return &parsed, nil
}

// Hydrator converts a saved structured report back into raw annotations and
// normalized measurements.
type Hydrator struct {
	DisplaySets   services.DisplaySetService
	Measurements  services.MeasurementService
	Annotations   *annotations.Store
	Mappings      map[string]mappers.Mapping
	Customization services.CustomizationService
	Parser        *Parser
	LoadDataset   DatasetLoader
	Log           *slog.Logger
}

func (h *Hydrator) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

// Hydrate loads the structured report shown by a display set, filters its
// findings to supported tools, re-creates each finding as a fresh raw
// annotation in the annotation store, maps it to a normalized measurement and
// registers it. Marking the display set hydrated is the terminal side
// effect.
func (h *Hydrator) Hydrate(displaySetInstanceUID string) (Result, error) {
	displaySet := h.DisplaySets.GetDisplaySetByUID(displaySetInstanceUID)
	if displaySet == nil {
		return Result{}, fmt.Errorf("sr: display set %s not found", displaySetInstanceUID)
	}
	if len(h.Mappings) == 0 {
		return Result{}, fmt.Errorf("sr: no mappings registered, hydration impossible")
	}

	dataset, err := h.LoadDataset(displaySet)
	if err != nil {
		return Result{}, fmt.Errorf("sr: load report dataset: %w", err)
	}
	findings, err := h.Parser.Findings(dataset)
	if err != nil {
		return Result{}, fmt.Errorf("sr: parse report: %w", err)
	}

	// Unsupported finding types are dropped silently; the report may contain
	// content written by other tools.
	supported := findings[:0]
	for _, f := range findings {
		if _, ok := h.Mappings[f.ToolName]; ok && f.ToolName != measure.ToolCrosshairs {
			supported = append(supported, f)
		}
	}

	resolved := make([]resolvedFinding, 0, len(supported))
	study := ""
	var seriesUIDs []string
	for _, f := range supported {
		instance, ds := h.findInstance(f.SOPInstanceUID)
		if instance == nil {
			h.logger().Warn("finding references unknown instance, dropped", "sop", f.SOPInstanceUID, "tool", f.ToolName)
			continue
		}
		if study == "" {
			study = instance.StudyInstanceUID
		} else if study != instance.StudyInstanceUID {
			return Result{}, fmt.Errorf("%w: %s and %s", ErrMultiStudyReport, study, instance.StudyInstanceUID)
		}
		if !containsString(seriesUIDs, instance.SeriesInstanceUID) {
			seriesUIDs = append(seriesUIDs, instance.SeriesInstanceUID)
		}
		resolved = append(resolved, resolvedFinding{finding: f, instance: instance, displaySet: ds})
	}

	codingValues := h.codingValues()
	lock := services.BoolCustomization(h.Customization, services.CustomizationDisableEditing)

	for _, rf := range resolved {
		if err := h.hydrateFinding(rf, codingValues, lock); err != nil {
			return Result{}, err
		}
	}

	displaySet.IsHydrated = true
	return Result{StudyInstanceUID: study, SeriesInstanceUIDs: seriesUIDs}, nil
}

type resolvedFinding struct {
	finding    Finding
	instance   *services.Instance
	displaySet *services.DisplaySet
}

func (h *Hydrator) hydrateFinding(rf resolvedFinding, codingValues map[string]measure.Code, lock bool) error {
	f := rf.finding
	imageID := rf.instance.ImageID

	annotationUID := uuid.Must(uuid.NewV4()).String()
	ann := &measure.RawAnnotation{
		AnnotationUID: annotationUID,
		Metadata: measure.AnnotationMetadata{
			ToolName:            f.ToolName,
			ReferencedImageID:   imageID,
			FrameOfReferenceUID: rf.instance.FrameOfReferenceUID,
		},
		Data: &measure.AnnotationData{
			Handles:     measure.Handles{Points: f.Points},
			CachedStats: map[string]measure.Stats{"imageId:" + imageID: f.stats()},
			Label:       f.Label,
			FrameNumber: f.FrameNumber,
			Finding:     convertCode(codingValues, f.FindingCode),
		},
	}
	for _, site := range f.FindingSites {
		if converted := convertCode(codingValues, &site); converted != nil {
			ann.Data.FindingSites = append(ann.Data.FindingSites, *converted)
		}
	}

	if err := h.Annotations.Append(imageID, f.ToolName, ann); err != nil {
		return fmt.Errorf("sr: store finding: %w", err)
	}

	mapping := h.Mappings[f.ToolName]
	evt := &measure.AnnotationEvent{Annotation: ann}
	if _, err := h.Measurements.AddRawMeasurement(SourceName, f.ToolName, evt, mapping.ToMeasurement); err != nil {
		return fmt.Errorf("sr: register finding measurement: %w", err)
	}

	if lock {
		if err := h.Annotations.SetLocked(annotationUID, true); err != nil {
			return fmt.Errorf("sr: lock hydrated annotation: %w", err)
		}
	}
	return nil
}

// findInstance locates the instance and display set owning a referenced SOP
// instance.
func (h *Hydrator) findInstance(sopInstanceUID string) (*services.Instance, *services.DisplaySet) {
	if sopInstanceUID == "" {
		return nil, nil
	}
	ds := h.DisplaySets.GetDisplaySetForSOPInstanceUID(sopInstanceUID, "", 0)
	if ds == nil {
		return nil, nil
	}
	return ds.InstanceForSOP(sopInstanceUID), ds
}

// codingValues merges the customization-supplied coding table.
func (h *Hydrator) codingValues() map[string]measure.Code {
	raw := h.Customization.GetCustomization(services.CustomizationCodingValues)
	table, _ := raw.(map[string]measure.Code)
	if table == nil {
		table = map[string]measure.Code{}
	}
	return table
}

// convertCode enriches a finding code from the coding-values table. Codes
// written by the annotation toolkit itself carry no clinical meaning and are
// dropped.
func convertCode(codingValues map[string]measure.Code, code *measure.Code) *measure.Code {
	if code == nil || code.CodingSchemeDesignator == "CORNERSTONEJS" {
		return nil
	}
	ref := code.CodingSchemeDesignator + ":" + code.CodeValue
	out := codingValues[ref]
	if out.CodeValue == "" {
		out = *code
	}
	out.Ref = ref
	if out.Text == "" {
		out.Text = code.CodeMeaning
	}
	return &out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
