package sr

import (
	"fmt"
	"math/big"
	"os"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/measurelink/internal/measure"
)

// comprehensiveSRStorage is the SOP class of the generated reports.
const comprehensiveSRStorage = "1.2.840.10008.5.1.4.1.1.88.33"

// ReportInfo identifies a generated report instance.
type ReportInfo struct {
	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPInstanceUID    string
	SeriesNumber      string
	SeriesDescription string
}

// NewReportInfo builds report identity for a study, with fresh series and
// instance UIDs.
func NewReportInfo(studyInstanceUID string) ReportInfo {
	return ReportInfo{
		StudyInstanceUID:  studyInstanceUID,
		SeriesInstanceUID: NewUID(),
		SOPInstanceUID:    NewUID(),
		SeriesNumber:      "999",
		SeriesDescription: "Measurement Report",
	}
}

// NewUID derives a DICOM UID from a random UUID under the 2.25 root.
func NewUID() string {
	var n big.Int
	n.SetBytes(uuid.Must(uuid.NewV4()).Bytes())
	return "2.25." + n.String()
}

// BuildReport serializes findings into a comprehensive SR dataset shaped the
// way Findings reads it back: one "Imaging Measurements" container holding a
// "Measurement Group" per finding.
func BuildReport(info ReportInfo, findings []Finding) (*dicom.Dataset, error) {
	if info.StudyInstanceUID == "" {
		return nil, fmt.Errorf("sr: report needs a study instance uid")
	}
	groups := make([][]*dicom.Element, 0, len(findings))
	for i, f := range findings {
		group, err := buildGroup(f)
		if err != nil {
			return nil, fmt.Errorf("sr: finding %d: %w", i, err)
		}
		groups = append(groups, group)
	}
	imaging := append(conceptItem(conceptImagingMeasurements),
		mustNewElement(tag.ContentSequence, groups))

	now := time.Now()
	ds := &dicom.Dataset{Elements: []*dicom.Element{
		mustNewElement(tag.MediaStorageSOPClassUID, []string{comprehensiveSRStorage}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{info.SOPInstanceUID}),
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.SOPClassUID, []string{comprehensiveSRStorage}),
		mustNewElement(tag.SOPInstanceUID, []string{info.SOPInstanceUID}),
		mustNewElement(tag.StudyInstanceUID, []string{info.StudyInstanceUID}),
		mustNewElement(tag.SeriesInstanceUID, []string{info.SeriesInstanceUID}),
		mustNewElement(tag.SeriesNumber, []string{info.SeriesNumber}),
		mustNewElement(tag.SeriesDescription, []string{info.SeriesDescription}),
		mustNewElement(tag.Modality, []string{"SR"}),
		mustNewElement(tag.ContentDate, []string{now.Format("20060102")}),
		mustNewElement(tag.ContentTime, []string{now.Format("150405")}),
		mustNewElement(tag.ContentSequence, [][]*dicom.Element{imaging}),
	}}
	return ds, nil
}

// WriteReport builds the report dataset and writes it to a file.
func WriteReport(path string, info ReportInfo, findings []Finding) error {
	ds, err := BuildReport(info, findings)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sr: create %s: %w", path, err)
	}
	defer f.Close()
	if err := dicom.Write(f, *ds); err != nil {
		return fmt.Errorf("sr: write %s: %w", path, err)
	}
	return nil
}

// FindingFromAnnotation rebuilds the report-level view of a stored raw
// annotation, the inverse of what hydration produces. The stats are taken
// from the annotation's first cached-stats entry.
func FindingFromAnnotation(ann *measure.RawAnnotation, sopInstanceUID string) Finding {
	f := Finding{
		TrackingIdentifier: TrackingTag + ":" + ann.Metadata.ToolName,
		ToolName:           ann.Metadata.ToolName,
		SOPInstanceUID:     sopInstanceUID,
		FrameNumber:        1,
		Values:             make(map[string]float64),
		Units:              make(map[string]string),
	}
	if ann.Data == nil {
		return f
	}
	f.Label = ann.Data.Label
	f.Points = ann.Data.Handles.Points
	if ann.Data.FrameNumber > 0 {
		f.FrameNumber = ann.Data.FrameNumber
	}
	f.FindingCode = ann.Data.Finding
	f.FindingSites = ann.Data.FindingSites

	var stats measure.Stats
	for _, s := range ann.Data.CachedStats {
		stats = s
		break
	}
	unit := stats.Unit
	set := func(name string, v *float64, u string) {
		if v == nil {
			return
		}
		f.Values[name] = *v
		if u != "" {
			f.Units[name] = u
		}
	}
	set("Length", stats.Length, unit)
	set("Width", stats.Width, unit)
	set("Area", stats.Area, stats.AreaUnit)
	set("Mean", stats.Mean, unit)
	set("Maximum", stats.Max, unit)
	set("Standard Deviation", stats.StdDev, unit)
	set("Angle", stats.Angle, "deg")
	set("Radius", stats.Radius, unit)
	set("Value", stats.Value, unit)
	return f
}

func buildGroup(f Finding) ([]*dicom.Element, error) {
	if f.ToolName == "" {
		return nil, fmt.Errorf("finding has no tool name")
	}

	content := [][]*dicom.Element{
		append(conceptItem(conceptTrackingIdentifier),
			mustNewElement(tag.TextValue, []string{TrackingTag + ":" + f.ToolName})),
	}
	if f.Label != "" && f.Label != f.ToolName {
		content = append(content, append(conceptItem("Finding Note"),
			mustNewElement(tag.TextValue, []string{f.Label})))
	}
	if f.FindingCode != nil {
		content = append(content, append(conceptItem(conceptFinding),
			mustNewElement(tag.ConceptCodeSequence, [][]*dicom.Element{codeElements(*f.FindingCode)})))
	}
	for _, site := range f.FindingSites {
		content = append(content, append(conceptItem(conceptFindingSite),
			mustNewElement(tag.ConceptCodeSequence, [][]*dicom.Element{codeElements(site)})))
	}

	names := make([]string, 0, len(f.Values))
	for name := range f.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	hasGeometry := len(f.Points) > 0 || f.SOPInstanceUID != ""
	for i, name := range names {
		item := append(conceptItem(name),
			mustNewElement(tag.MeasuredValueSequence, [][]*dicom.Element{
				measuredValue(f.Values[name], f.Units[name]),
			}))
		// The geometry rides on the first numeric item, mirroring how the
		// measurement templates nest SCOORD content under NUM.
		if i == 0 && hasGeometry {
			item = append(item, mustNewElement(tag.ContentSequence, [][]*dicom.Element{scoordElements(f)}))
		}
		content = append(content, item)
	}
	if len(names) == 0 && hasGeometry {
		// Text-only findings still need their geometry and image reference;
		// without a NUM item the SCOORD gets its own content item.
		content = append(content, append(conceptItem("Image Region"),
			mustNewElement(tag.ContentSequence, [][]*dicom.Element{scoordElements(f)})))
	}

	return append(conceptItem(conceptMeasurementGroup),
		mustNewElement(tag.ContentSequence, content)), nil
}

func measuredValue(value float64, unit string) []*dicom.Element {
	item := []*dicom.Element{
		mustNewElement(tag.NumericValue, []string{formatDS(value)}),
	}
	if unit != "" {
		item = append(item, mustNewElement(tag.MeasurementUnitsCodeSequence, [][]*dicom.Element{{
			mustNewElement(tag.CodeValue, []string{unit}),
			mustNewElement(tag.CodingSchemeDesignator, []string{"UCUM"}),
			mustNewElement(tag.CodeMeaning, []string{unit}),
		}}))
	}
	return item
}

func scoordElements(f Finding) []*dicom.Element {
	var item []*dicom.Element
	if len(f.Points) > 0 {
		graphicType := f.GraphicType
		if graphicType == "" {
			graphicType = "POLYLINE"
		}
		data := make([]float64, 0, len(f.Points)*2)
		for _, p := range f.Points {
			data = append(data, p[0], p[1])
		}
		item = append(item,
			mustNewElement(tag.GraphicType, []string{graphicType}),
			mustNewElement(tag.GraphicData, data))
	}
	if f.SOPInstanceUID != "" {
		ref := []*dicom.Element{
			mustNewElement(tag.ReferencedSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
			mustNewElement(tag.ReferencedSOPInstanceUID, []string{f.SOPInstanceUID}),
		}
		if f.FrameNumber > 1 {
			ref = append(ref, mustNewElement(tag.ReferencedFrameNumber, []int{f.FrameNumber}))
		}
		item = append(item, mustNewElement(tag.ReferencedSOPSequence, [][]*dicom.Element{ref}))
	}
	return item
}

// conceptItem starts a content item with a concept-name sequence carrying the
// given meaning.
func conceptItem(meaning string) []*dicom.Element {
	return []*dicom.Element{
		mustNewElement(tag.ConceptNameCodeSequence, [][]*dicom.Element{
			codeElements(measure.Code{CodeValue: "125007", CodingSchemeDesignator: "DCM", CodeMeaning: meaning}),
		}),
	}
}

func codeElements(code measure.Code) []*dicom.Element {
	return []*dicom.Element{
		mustNewElement(tag.CodeValue, []string{code.CodeValue}),
		mustNewElement(tag.CodingSchemeDesignator, []string{code.CodingSchemeDesignator}),
		mustNewElement(tag.CodeMeaning, []string{code.CodeMeaning}),
	}
}

func formatDS(v float64) string {
	s := fmt.Sprintf("%g", v)
	if len(s) > 16 {
		s = s[:16]
	}
	return s
}

func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("NewElement(%v): %v", t, err))
	}
	return elem
}
