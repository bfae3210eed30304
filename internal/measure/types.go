// Package measure defines the normalized measurement data model shared by the
// tool mappers, the tracking workflow and the structured-report hydrator.
package measure

// Point is a 3D coordinate (x, y, z). 2D tools carry z = 0.
type Point []float64

// TextBox is the optional label anchor attached to an annotation.
type TextBox struct {
	Hasmoved      bool    `yaml:"has_moved,omitempty"`
	WorldPosition Point   `yaml:"world_position,omitempty"`
	WorldBounds   []Point `yaml:"world_bounds,omitempty"`
}

// Handles holds the geometry handles of a raw annotation.
type Handles struct {
	Points  []Point
	TextBox *TextBox
}

// Contour holds contour-based geometry (freehand, spline, livewire).
type Contour struct {
	PolylinePoints []Point
	ClosedContour  bool
}

// Stats is the per-target cached statistics payload of a raw annotation.
// Values are pointers so that an absent statistic is distinguishable from a
// zero one; mappers have tool-specific policies for absent values.
type Stats struct {
	Mean      *float64
	StdDev    *float64
	Max       *float64
	Min       *float64
	Area      *float64
	Perimeter *float64
	Length    *float64
	Width     *float64
	Radius    *float64
	Angle     *float64
	Value     *float64

	// Ultrasound directional tools measure along two calibrated axes.
	XValues []float64
	YValues []float64
	Units   []string

	Unit        string
	AreaUnit    string
	Modality    string
	IsEmptyArea bool
}

// Code is a coded concept (finding or finding site) attached to an annotation.
type Code struct {
	CodeValue              string
	CodingSchemeDesignator string
	CodeMeaning            string
	Ref                    string
	Text                   string
}

// AnnotationMetadata is the read-only metadata block of a raw annotation.
type AnnotationMetadata struct {
	ToolName            string
	ReferencedImageID   string
	FrameOfReferenceUID string
	VolumeID            string
}

// AnnotationData is the mutable data block of a raw annotation.
type AnnotationData struct {
	Handles      Handles
	CachedStats  map[string]Stats
	Label        string
	Text         string
	Contour      *Contour
	FrameNumber  int
	Finding      *Code
	FindingSites []Code
}

// RawAnnotation is the third-party toolkit's annotation shape, normalized at
// the event boundary so mapper bodies never branch on legacy field layouts.
type RawAnnotation struct {
	AnnotationUID string
	Metadata      AnnotationMetadata
	Data          *AnnotationData
}

// AnnotationEvent is the normalized annotation event delivered to a mapper.
type AnnotationEvent struct {
	Annotation *RawAnnotation
	ViewportID string
}

// MappedAnnotation is one resolved target inside a multi-target annotation
// (e.g. the long and short axis of a bidirectional measurement). Entries are
// rebuilt on every mapping call and never persisted.
type MappedAnnotation struct {
	SOPInstanceUID    string
	SeriesInstanceUID string
	SeriesNumber      string
	InstanceNumber    int
	FrameNumber       int
	IsMultiFrame      bool
	Unit              string
	Stats             Stats
}

// DisplayText is the two-tier human readable summary of a measurement.
type DisplayText struct {
	Primary   []string
	Secondary []string
}

// Measurement is the normalized record produced by a tool mapper. It is owned
// by the measurement service once created.
type Measurement struct {
	UID string

	SOPInstanceUID      string
	FrameOfReferenceUID string
	ReferenceSeriesUID  string
	ReferenceStudyUID   string
	ReferencedImageID   string
	FrameNumber         int

	DisplaySetInstanceUID string

	Label       string
	DisplayText DisplayText
	Type        ValueType

	Points  []Point
	TextBox *TextBox

	// Data keeps the raw per-target statistics keyed the same way the
	// annotation's cached stats were keyed. Reports read from here, so report
	// values stay unrounded.
	Data map[string]Stats

	// GetReport lazily produces the tabular export fragment.
	GetReport func() Report

	IsLocked  bool
	IsVisible bool
}
