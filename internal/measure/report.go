package measure

import "strings"

// Report is the tabular export fragment of one measurement.
type Report struct {
	Columns []string
	Values  []any
}

// NewReport starts a report fragment for a tool. The first column pair is
// always the annotation type in "Cornerstone:<ToolName>" form.
func NewReport(toolName string) *Report {
	return &Report{
		Columns: []string{"AnnotationType"},
		Values:  []any{"Cornerstone:" + toolName},
	}
}

// Add appends one column/value pair.
func (r *Report) Add(column string, value any) {
	r.Columns = append(r.Columns, column)
	r.Values = append(r.Values, value)
}

// AddFrameOfReference appends the frame of reference column when the UID is
// present.
func (r *Report) AddFrameOfReference(uid string) {
	if uid != "" {
		r.Add("FrameOfReferenceUID", uid)
	}
}

// AddPoints appends the points column as "x y z;x y z;..." when points exist.
func (r *Report) AddPoints(points []Point) {
	if len(points) == 0 {
		return
	}
	r.Add("points", FormatPoints(points))
}

// FormatPoints renders points semicolon-joined, space-joined per point.
func FormatPoints(points []Point) string {
	rendered := make([]string, len(points))
	for i, p := range points {
		coords := make([]string, len(p))
		for j, c := range p {
			coords[j] = FormatNumber(c)
		}
		rendered[i] = strings.Join(coords, " ")
	}
	return strings.Join(rendered, ";")
}
