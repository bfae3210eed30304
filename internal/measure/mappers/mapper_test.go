package mappers

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mrsinham/measurelink/internal/measure"
	"github.com/mrsinham/measurelink/internal/services"
)

// Shared fixture: one study with one series of one instance, indexed both in
// the metadata store and as a display set.
const (
	testStudyUID  = "1.2.840.1"
	testSeriesUID = "1.2.840.1.2"
	testSOPUID    = "1.2.840.1.2.3"
	testFrameUID  = "1.2.840.9"
	testImageID   = "wadors:/studies/1.2.840.1/series/1.2.840.1.2/instances/1.2.840.1.2.3"
	testDSUID     = "ds-1"
)

func f64(v float64) *float64 { return &v }

func testDeps(t *testing.T, modality string) Deps {
	t.Helper()

	displaySets, err := services.NewDisplaySets()
	if err != nil {
		t.Fatalf("NewDisplaySets: %v", err)
	}
	instance := services.Instance{
		SOPInstanceUID:      testSOPUID,
		SeriesInstanceUID:   testSeriesUID,
		StudyInstanceUID:    testStudyUID,
		FrameOfReferenceUID: testFrameUID,
		InstanceNumber:      12,
		ImageID:             testImageID,
		Modality:            modality,
	}
	displaySets.Add(&services.DisplaySet{
		DisplaySetInstanceUID: testDSUID,
		SeriesInstanceUID:     testSeriesUID,
		StudyInstanceUID:      testStudyUID,
		SeriesNumber:          "3",
		Modality:              modality,
		Instances:             []services.Instance{instance},
	})
	metadata := services.NewMetadataStore()
	metadata.AddInstance(instance)

	return Deps{
		DisplaySets:   displaySets,
		Viewports:     services.NewViewports(),
		SOP:           services.NewResolver(metadata),
		Customization: services.NewCustomizations(nil),
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testEvent(toolName string, stats measure.Stats, points ...measure.Point) *measure.AnnotationEvent {
	return &measure.AnnotationEvent{
		Annotation: &measure.RawAnnotation{
			AnnotationUID: "ann-1",
			Metadata: measure.AnnotationMetadata{
				ToolName:            toolName,
				ReferencedImageID:   testImageID,
				FrameOfReferenceUID: testFrameUID,
			},
			Data: &measure.AnnotationData{
				Handles:     measure.Handles{Points: points},
				CachedStats: map[string]measure.Stats{"imageId:" + testImageID: stats},
			},
		},
	}
}

func TestValidateMissingData(t *testing.T) {
	tests := []struct {
		name string
		evt  *measure.AnnotationEvent
	}{
		{"nil event", nil},
		{"nil annotation", &measure.AnnotationEvent{}},
		{"no tool name", &measure.AnnotationEvent{
			Annotation: &measure.RawAnnotation{Data: &measure.AnnotationData{}},
		}},
		{"no data", &measure.AnnotationEvent{
			Annotation: &measure.RawAnnotation{
				Metadata: measure.AnnotationMetadata{ToolName: measure.ToolLength},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validate(tt.evt, measure.ToolLength)
			if !errors.Is(err, ErrMissingData) {
				t.Errorf("validate() error = %v, want ErrMissingData", err)
			}
		})
	}
}

func TestValidateWrongTool(t *testing.T) {
	evt := testEvent(measure.ToolProbe, measure.Stats{}, measure.Point{1, 2, 3})
	_, err := validate(evt, measure.ToolLength)
	if !errors.Is(err, ErrToolNotSupported) {
		t.Errorf("validate() error = %v, want ErrToolNotSupported", err)
	}
}

func TestResolveReferenceNoDisplaySet(t *testing.T) {
	deps := testDeps(t, "CT")
	evt := testEvent(measure.ToolLength, measure.Stats{Length: f64(5)},
		measure.Point{0, 0, 0}, measure.Point{5, 0, 0})
	evt.Annotation.Metadata.ReferencedImageID = "unknown-image"
	evt.Annotation.Data.CachedStats = nil

	_, err := Build(deps)[measure.ToolLength].ToMeasurement(evt)
	if !errors.Is(err, ErrNoDisplaySet) {
		t.Errorf("ToMeasurement() error = %v, want ErrNoDisplaySet", err)
	}
}

func TestResolveReferenceNonAcquisitionPlane(t *testing.T) {
	// Volume-referenced annotation with no viewport to resolve through: tools
	// requiring an acquisition plane must hard-fail.
	deps := testDeps(t, "CT")
	evt := testEvent(measure.ToolEllipticalROI, measure.Stats{},
		measure.Point{0, 0, 0}, measure.Point{1, 0, 0}, measure.Point{0, 1, 0}, measure.Point{1, 1, 0})
	evt.Annotation.Metadata.ReferencedImageID = ""
	evt.Annotation.Metadata.VolumeID = "vol-1"

	_, err := Build(deps)[measure.ToolEllipticalROI].ToMeasurement(evt)
	if !errors.Is(err, ErrNonAcquisitionPlane) {
		t.Errorf("ToMeasurement() error = %v, want ErrNonAcquisitionPlane", err)
	}
}

func TestVolumeAnnotationResolvesThroughViewport(t *testing.T) {
	deps := testDeps(t, "CT")
	deps.Viewports.(*services.Viewports).SetViewport("viewport-1", testImageID, testDSUID)

	evt := testEvent(measure.ToolLength, measure.Stats{Length: f64(7.5)},
		measure.Point{0, 0, 0}, measure.Point{7.5, 0, 0})
	evt.Annotation.Metadata.ReferencedImageID = ""
	evt.Annotation.Metadata.VolumeID = "viewport-1"
	evt.Annotation.Data.CachedStats = map[string]measure.Stats{
		"volumeId:vol-1": {Length: f64(7.5)},
	}

	m, err := Build(deps)[measure.ToolLength].ToMeasurement(evt)
	if err != nil {
		t.Fatalf("ToMeasurement() error = %v", err)
	}
	if m.SOPInstanceUID != testSOPUID {
		t.Errorf("SOPInstanceUID = %q, want %q", m.SOPInstanceUID, testSOPUID)
	}
	if m.DisplaySetInstanceUID != testDSUID {
		t.Errorf("DisplaySetInstanceUID = %q, want %q", m.DisplaySetInstanceUID, testDSUID)
	}
}

func TestBaseFlagsFromStore(t *testing.T) {
	deps := testDeps(t, "CT")
	deps.Flags = staticFlags{locked: true, visible: false}

	evt := testEvent(measure.ToolLength, measure.Stats{Length: f64(3)},
		measure.Point{0, 0, 0}, measure.Point{3, 0, 0})
	m, err := Build(deps)[measure.ToolLength].ToMeasurement(evt)
	if err != nil {
		t.Fatalf("ToMeasurement() error = %v", err)
	}
	if !m.IsLocked {
		t.Error("IsLocked = false, want true")
	}
	if m.IsVisible {
		t.Error("IsVisible = true, want false")
	}
}

func TestMultiTargetOrderIsDeterministic(t *testing.T) {
	deps := testDeps(t, "MR")
	evt := testEvent(measure.ToolLength, measure.Stats{},
		measure.Point{0, 0, 0}, measure.Point{10, 0, 0})
	evt.Annotation.Data.CachedStats = map[string]measure.Stats{
		"imageId:axial-image":    {Length: f64(10.46), Unit: "mm"},
		"imageId:coronal-image":  {Length: f64(7.5), Unit: "mm"},
		"imageId:sagittal-image": {Length: f64(3.25), Unit: "mm"},
	}
	want := []string{"10.46 mm", "7.5 mm", "3.25 mm"}

	// Map iteration order varies between runs; the target order must not.
	for run := 0; run < 20; run++ {
		m, err := Build(deps)[measure.ToolLength].ToMeasurement(evt)
		if err != nil {
			t.Fatalf("ToMeasurement() error = %v", err)
		}
		if len(m.DisplayText.Primary) != len(want) {
			t.Fatalf("Primary = %v, want %d lines", m.DisplayText.Primary, len(want))
		}
		for i, line := range want {
			if m.DisplayText.Primary[i] != line {
				t.Fatalf("run %d: Primary = %v, want %v", run, m.DisplayText.Primary, want)
			}
		}
	}
}

type staticFlags struct {
	locked  bool
	visible bool
}

func (s staticFlags) IsLocked(string) bool  { return s.locked }
func (s staticFlags) IsVisible(string) bool { return s.visible }
