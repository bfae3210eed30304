package measure

// ValueType classifies the geometric value a measurement carries.
type ValueType string

const (
	ValueTypePolyline      ValueType = "POLYLINE"
	ValueTypePoint         ValueType = "POINT"
	ValueTypeEllipse       ValueType = "ELLIPSE"
	ValueTypeCircle        ValueType = "CIRCLE"
	ValueTypeRectangle     ValueType = "RECTANGLE"
	ValueTypeBidirectional ValueType = "BIDIRECTIONAL"
	ValueTypeAngle         ValueType = "ANGLE"
)

// Tool names understood by the mapper registry.
const (
	ToolLength                = "Length"
	ToolBidirectional         = "Bidirectional"
	ToolEllipticalROI         = "EllipticalROI"
	ToolCircleROI             = "CircleROI"
	ToolRectangleROI          = "RectangleROI"
	ToolAngle                 = "Angle"
	ToolCobbAngle             = "CobbAngle"
	ToolArrowAnnotate         = "ArrowAnnotate"
	ToolPlanarFreehandROI     = "PlanarFreehandROI"
	ToolSplineROI             = "SplineROI"
	ToolLivewireContour       = "LivewireContour"
	ToolProbe                 = "Probe"
	ToolUltrasoundDirectional = "UltrasoundDirectional"
	ToolUltrasoundPleuraBLine = "UltrasoundPleuraBLine"
	ToolSegmentBidirectional  = "SegmentBidirectional"
	ToolCrosshairs            = "Crosshairs"
)

// valueTypeByTool is the static tool name to value type table. An unknown tool
// name is a hard mapping failure for every consumer.
var valueTypeByTool = map[string]ValueType{
	ToolLength:                ValueTypePolyline,
	ToolBidirectional:         ValueTypeBidirectional,
	ToolSegmentBidirectional:  ValueTypeBidirectional,
	ToolEllipticalROI:         ValueTypeEllipse,
	ToolCircleROI:             ValueTypeCircle,
	ToolRectangleROI:          ValueTypeRectangle,
	ToolAngle:                 ValueTypeAngle,
	ToolCobbAngle:             ValueTypeAngle,
	ToolArrowAnnotate:         ValueTypePoint,
	ToolProbe:                 ValueTypePoint,
	ToolPlanarFreehandROI:     ValueTypePolyline,
	ToolSplineROI:             ValueTypePolyline,
	ToolLivewireContour:       ValueTypePolyline,
	ToolUltrasoundDirectional: ValueTypePolyline,
	ToolUltrasoundPleuraBLine: ValueTypePolyline,
}

// ValueTypeForTool returns the value type for a tool name. The second result
// is false for unregistered tool names, which callers must treat as a mapping
// failure.
func ValueTypeForTool(toolName string) (ValueType, bool) {
	vt, ok := valueTypeByTool[toolName]
	return vt, ok
}

// AllTools returns the tool names with a registered value type.
func AllTools() []string {
	return []string{
		ToolLength,
		ToolBidirectional,
		ToolEllipticalROI,
		ToolCircleROI,
		ToolRectangleROI,
		ToolAngle,
		ToolCobbAngle,
		ToolArrowAnnotate,
		ToolPlanarFreehandROI,
		ToolSplineROI,
		ToolLivewireContour,
		ToolProbe,
		ToolUltrasoundDirectional,
		ToolUltrasoundPleuraBLine,
		ToolSegmentBidirectional,
	}
}
