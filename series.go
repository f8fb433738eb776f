package goflot

// The three line types flot knows about. A series may enable any combination
// of them.
var lineTypes = []string{"bars", "lines", "points"}

// series is one registered dataset. data is either []Point (canonical pairs)
// or a bare float64 for single-value chart types such as pie slices.
type series struct {
	data  any
	label string
	hints map[string]Options
	extra Options
}

// points returns the canonical pair data, or nil for scalar series.
func (s *series) points() []Point {
	pts, _ := s.data.([]Point)
	return pts
}

// view renders the series as the plain structure flot expects: data, label
// and line type hints as their own keys, extra options flattened alongside
// them (applied last, so they win key collisions). The returned map is
// freshly built on every call so that preparation never mutates the stored
// entry.
func (s *series) view() map[string]any {
	out := make(map[string]any, 2+len(s.hints)+len(s.extra))
	out["data"] = s.data
	if s.label != "" {
		out["label"] = s.label
	}
	for lineType, hint := range s.hints {
		out[lineType] = hint.clone()
	}
	for k, v := range s.extra {
		out[k] = v
	}
	return out
}

// seriesConfig accumulates the optional arguments of AddSeries.
type seriesConfig struct {
	label string
	hints map[string]Options
	extra Options
}

// SeriesOption configures a single series as it is added to a graph.
type SeriesOption func(*seriesConfig)

// WithLabel sets the series label. Labels must be unique within one graph.
func WithLabel(label string) SeriesOption {
	return func(c *seriesConfig) {
		c.label = label
	}
}

func withLineType(lineType string, opts Options) SeriesOption {
	return func(c *seriesConfig) {
		if c.hints == nil {
			c.hints = make(map[string]Options, len(lineTypes))
		}
		if opts == nil {
			c.hints[lineType] = Options{"show": true}
			return
		}
		c.hints[lineType] = opts
	}
}

// WithBars enables bar rendering for the series. A nil opts enables bars
// with flot defaults ({"show": true}); a non-nil opts is stored verbatim as
// the flot bars options for this series.
func WithBars(opts Options) SeriesOption {
	return withLineType("bars", opts)
}

// WithLines enables line rendering for the series, analogous to WithBars.
func WithLines(opts Options) SeriesOption {
	return withLineType("lines", opts)
}

// WithPoints enables point rendering for the series, analogous to WithBars.
func WithPoints(opts Options) SeriesOption {
	return withLineType("points", opts)
}

// WithSeriesOptions merges extra top-level options into the series entry,
// next to data/label/line types. Useful for per-series settings like color.
func WithSeriesOptions(opts Options) SeriesOption {
	return func(c *seriesConfig) {
		if c.extra == nil {
			c.extra = Options{}
		}
		c.extra.update(opts)
	}
}
