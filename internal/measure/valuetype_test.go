package measure

import "testing"

func TestValueTypeForTool(t *testing.T) {
	tests := []struct {
		tool string
		want ValueType
	}{
		{ToolLength, ValueTypePolyline},
		{ToolBidirectional, ValueTypeBidirectional},
		{ToolSegmentBidirectional, ValueTypeBidirectional},
		{ToolEllipticalROI, ValueTypeEllipse},
		{ToolCircleROI, ValueTypeCircle},
		{ToolRectangleROI, ValueTypeRectangle},
		{ToolAngle, ValueTypeAngle},
		{ToolCobbAngle, ValueTypeAngle},
		{ToolArrowAnnotate, ValueTypePoint},
		{ToolProbe, ValueTypePoint},
		{ToolPlanarFreehandROI, ValueTypePolyline},
		{ToolSplineROI, ValueTypePolyline},
		{ToolLivewireContour, ValueTypePolyline},
		{ToolUltrasoundDirectional, ValueTypePolyline},
		{ToolUltrasoundPleuraBLine, ValueTypePolyline},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			vt, ok := ValueTypeForTool(tt.tool)
			if !ok {
				t.Fatalf("ValueTypeForTool(%q) not registered", tt.tool)
			}
			if vt != tt.want {
				t.Errorf("ValueTypeForTool(%q) = %q, want %q", tt.tool, vt, tt.want)
			}
		})
	}
}

func TestValueTypeForToolUnknown(t *testing.T) {
	for _, tool := range []string{"", "Crosshairs", "Magnify", "length"} {
		if _, ok := ValueTypeForTool(tool); ok {
			t.Errorf("ValueTypeForTool(%q) = ok, want unregistered", tool)
		}
	}
}

func TestAllToolsRegistered(t *testing.T) {
	tools := AllTools()
	if len(tools) != 15 {
		t.Fatalf("AllTools() returned %d tools, want 15", len(tools))
	}
	seen := make(map[string]bool, len(tools))
	for _, tool := range tools {
		if seen[tool] {
			t.Errorf("AllTools() lists %q twice", tool)
		}
		seen[tool] = true
		if _, ok := ValueTypeForTool(tool); !ok {
			t.Errorf("AllTools() lists %q but it has no value type", tool)
		}
	}
}
