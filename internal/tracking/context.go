// Package tracking implements the finite-state machine that governs when
// measurements are tracked across series and studies, when the user is
// prompted, and when structured reports are hydrated or saved.
package tracking

// Context is the machine's working memory. It is mutated exclusively by named
// actions fired on transitions; callers only ever see copies.
type Context struct {
	ActiveViewportID string

	TrackedStudy  string
	TrackedSeries []string

	// Session-scoped denylists. They grow monotonically and are only dropped
	// by the full context reset on idle entry.
	IgnoredSeries               []string
	IgnoredSRSeriesForHydration []string

	PrevTrackedStudy  string
	PrevTrackedSeries []string
	PrevIgnoredSeries []string

	IsDirty   bool
	PrevState State
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func union(list []string, extra []string) []string {
	for _, v := range extra {
		if !contains(list, v) {
			list = append(list, v)
		}
	}
	return list
}

// clone returns a deep copy safe to hand to callers and prompt functions.
func (c Context) clone() Context {
	out := c
	out.TrackedSeries = append([]string(nil), c.TrackedSeries...)
	out.IgnoredSeries = append([]string(nil), c.IgnoredSeries...)
	out.IgnoredSRSeriesForHydration = append([]string(nil), c.IgnoredSRSeriesForHydration...)
	out.PrevTrackedSeries = append([]string(nil), c.PrevTrackedSeries...)
	out.PrevIgnoredSeries = append([]string(nil), c.PrevIgnoredSeries...)
	return out
}

// rememberPrevious snapshots the tracked context before it is replaced.
func (c *Context) rememberPrevious() {
	c.PrevTrackedStudy = c.TrackedStudy
	c.PrevTrackedSeries = append([]string(nil), c.TrackedSeries...)
	c.PrevIgnoredSeries = append([]string(nil), c.IgnoredSeries...)
}

// setTrackedStudyAndSeries replaces the tracked context with a new study and
// series set.
func (c *Context) setTrackedStudyAndSeries(study string, series []string) {
	c.rememberPrevious()
	c.TrackedStudy = study
	c.TrackedSeries = append([]string(nil), series...)
}

// addTrackedSeries appends a series when not already tracked.
func (c *Context) addTrackedSeries(series string) {
	if !contains(c.TrackedSeries, series) {
		c.TrackedSeries = append(c.TrackedSeries, series)
	}
}

// removeTrackedSeries drops a series from the tracked set.
func (c *Context) removeTrackedSeries(series string) {
	c.TrackedSeries = remove(c.TrackedSeries, series)
}

// ignoreSeries adds a series to the "do not ask again" denylist.
func (c *Context) ignoreSeries(series string) {
	if !contains(c.IgnoredSeries, series) {
		c.IgnoredSeries = append(c.IgnoredSeries, series)
	}
}

// ignoreSRSeriesForHydration suppresses future hydration prompts for an SR
// series. Prompts raised for a display set alone carry no series UID; a
// blank entry would match every later series-less prompt, so it is skipped.
func (c *Context) ignoreSRSeriesForHydration(series string) {
	if series == "" {
		return
	}
	if !contains(c.IgnoredSRSeriesForHydration, series) {
		c.IgnoredSRSeriesForHydration = append(c.IgnoredSRSeriesForHydration, series)
	}
}
