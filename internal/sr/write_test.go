package sr

import (
	"strings"
	"testing"

	"github.com/mrsinham/measurelink/internal/measure"
)

func TestNewUID(t *testing.T) {
	a, b := NewUID(), NewUID()
	if !strings.HasPrefix(a, "2.25.") {
		t.Errorf("NewUID() = %q, want 2.25 root", a)
	}
	if a == b {
		t.Error("consecutive UIDs must differ")
	}
	if len(a) > 64 {
		t.Errorf("UID length %d exceeds the DICOM limit", len(a))
	}
}

func TestBuildReportRoundTrip(t *testing.T) {
	length := 23.456
	width := 12.3
	in := Finding{
		ToolName:       measure.ToolBidirectional,
		Label:          "target lesion",
		SOPInstanceUID: "1.2.840.1.2.3",
		FrameNumber:    3,
		GraphicType:    "POLYLINE",
		Points:         []measure.Point{{0, 0, 0}, {23.456, 0, 0}, {11, -6, 0}, {11, 6, 0}},
		Values:         map[string]float64{"Length": length, "Width": width},
		Units:          map[string]string{"Length": "mm", "Width": "mm"},
		FindingCode:    &measure.Code{CodeValue: "RID5741", CodingSchemeDesignator: "RADLEX", CodeMeaning: "Mass"},
		FindingSites:   []measure.Code{{CodeValue: "T-28000", CodingSchemeDesignator: "SRT", CodeMeaning: "Lung"}},
	}

	ds, err := BuildReport(NewReportInfo("1.2.840.1"), []Finding{in})
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}

	findings, err := (&Parser{}).Findings(ds)
	if err != nil {
		t.Fatalf("Findings() on generated report: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("round trip returned %d findings, want 1", len(findings))
	}
	out := findings[0]
	if out.ToolName != measure.ToolBidirectional {
		t.Errorf("ToolName = %q", out.ToolName)
	}
	if out.TrackingIdentifier != TrackingTag+":"+measure.ToolBidirectional {
		t.Errorf("TrackingIdentifier = %q", out.TrackingIdentifier)
	}
	if out.Label != "target lesion" {
		t.Errorf("Label = %q, want target lesion", out.Label)
	}
	if out.SOPInstanceUID != "1.2.840.1.2.3" || out.FrameNumber != 3 {
		t.Errorf("reference = %q frame %d", out.SOPInstanceUID, out.FrameNumber)
	}
	if out.Values["Length"] != length || out.Values["Width"] != width {
		t.Errorf("Values = %v", out.Values)
	}
	if out.Units["Length"] != "mm" {
		t.Errorf("Units = %v", out.Units)
	}
	if len(out.Points) != 4 || out.Points[1][0] != 23.456 {
		t.Errorf("Points = %v", out.Points)
	}
	if out.FindingCode == nil || out.FindingCode.CodeMeaning != "Mass" {
		t.Errorf("FindingCode = %+v", out.FindingCode)
	}
	if len(out.FindingSites) != 1 || out.FindingSites[0].CodeValue != "T-28000" {
		t.Errorf("FindingSites = %+v", out.FindingSites)
	}
}

func TestBuildReportRoundTripTextOnly(t *testing.T) {
	in := Finding{
		ToolName:       measure.ToolArrowAnnotate,
		Label:          "nodule, follow up",
		SOPInstanceUID: "1.2.840.1.2.9",
		FrameNumber:    1,
		GraphicType:    "POINT",
		Points:         []measure.Point{{18, 42, 0}},
	}

	ds, err := BuildReport(NewReportInfo("1.2.840.1"), []Finding{in})
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}

	findings, err := (&Parser{}).Findings(ds)
	if err != nil {
		t.Fatalf("Findings() on generated report: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("round trip returned %d findings, want 1", len(findings))
	}
	out := findings[0]
	if out.ToolName != measure.ToolArrowAnnotate {
		t.Errorf("ToolName = %q", out.ToolName)
	}
	if out.Label != "nodule, follow up" {
		t.Errorf("Label = %q", out.Label)
	}
	if out.SOPInstanceUID != "1.2.840.1.2.9" {
		t.Errorf("SOPInstanceUID = %q, the image reference must survive without numeric values", out.SOPInstanceUID)
	}
	if len(out.Points) != 1 || out.Points[0][0] != 18 || out.Points[0][1] != 42 {
		t.Errorf("Points = %v", out.Points)
	}
	if out.GraphicType != "POINT" {
		t.Errorf("GraphicType = %q", out.GraphicType)
	}
	if len(out.Values) != 0 {
		t.Errorf("Values = %v, want none", out.Values)
	}
}

func TestBuildReportRequiresStudy(t *testing.T) {
	if _, err := BuildReport(ReportInfo{}, nil); err == nil {
		t.Fatal("BuildReport without a study expected an error")
	}
}

func TestBuildReportRejectsAnonymousFinding(t *testing.T) {
	_, err := BuildReport(NewReportInfo("1.2.840.1"), []Finding{{Label: "nameless"}})
	if err == nil {
		t.Fatal("finding without a tool name expected an error")
	}
}

func TestFindingFromAnnotation(t *testing.T) {
	ann := &measure.RawAnnotation{
		AnnotationUID: "ann-1",
		Metadata:      measure.AnnotationMetadata{ToolName: measure.ToolEllipticalROI},
		Data: &measure.AnnotationData{
			Label:       "cyst",
			FrameNumber: 2,
			Handles:     measure.Handles{Points: []measure.Point{{0, 1, 0}, {4, 1, 0}, {2, 0, 0}, {2, 2, 0}}},
			CachedStats: map[string]measure.Stats{
				"imageId:image-1": {
					Mean:     f64stat(42.125),
					Max:      f64stat(80.5),
					StdDev:   f64stat(3.75),
					Area:     f64stat(12.5),
					Unit:     "HU",
					AreaUnit: "mm2",
				},
			},
			Finding: &measure.Code{CodeValue: "123", CodingSchemeDesignator: "SCT", CodeMeaning: "Cyst"},
		},
	}

	f := FindingFromAnnotation(ann, "1.2.840.1.2.3")
	if f.ToolName != measure.ToolEllipticalROI || f.SOPInstanceUID != "1.2.840.1.2.3" {
		t.Errorf("identity = %q/%q", f.ToolName, f.SOPInstanceUID)
	}
	if f.Label != "cyst" || f.FrameNumber != 2 {
		t.Errorf("Label = %q frame %d", f.Label, f.FrameNumber)
	}
	if f.Values["Mean"] != 42.125 || f.Values["Maximum"] != 80.5 || f.Values["Standard Deviation"] != 3.75 {
		t.Errorf("Values = %v", f.Values)
	}
	if f.Units["Mean"] != "HU" || f.Units["Area"] != "mm2" {
		t.Errorf("Units = %v", f.Units)
	}
	if _, ok := f.Values["Length"]; ok {
		t.Error("absent stats must not produce values")
	}
	if f.FindingCode == nil || f.FindingCode.CodeMeaning != "Cyst" {
		t.Errorf("FindingCode = %+v", f.FindingCode)
	}
}

func f64stat(v float64) *float64 { return &v }
