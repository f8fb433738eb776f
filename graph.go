package goflot

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Graph is a Go representation of a flot chart: an ordered collection of
// data series plus the global flot options, with the goal of preserving the
// flot attribute names and option organization. A Graph takes Go data
// structures as-is and handles the details of producing JSON that flot
// consumes directly (handy for time series, for example).
//
// A Graph must be written to by one goroutine at a time; serialization is a
// read and may run concurrently with other reads. The internal RWMutex
// enforces this.
type Graph struct {
	mu      sync.RWMutex
	series  []*series
	options Options
	prepare PrepareFunc

	logger logrus.FieldLogger
}

// New creates a Graph from an ordered chain of option layers, most general
// layer first. Later layers override earlier ones, deep-merging nested
// mappings and replacing other values outright. The chain is resolved once,
// here; afterwards options only change through explicit API behavior (adding
// a time series sets the x axis to time mode).
func New(layers ...Options) *Graph {
	return &Graph{
		options: mergeLayers(layers...),
		prepare: prepareBarWidth,
		logger:  logrus.WithField("tag", "Graph"),
	}
}

// SetPreparer replaces the per-series transformation applied at
// serialization time. The default is prepareBarWidth. See PrepareFunc.
func (g *Graph) SetPreparer(prepare PrepareFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prepare = prepare
}

// AddSeries registers a series of data points. If the first pair's X is a
// time.Time the series is treated as a time series: every X is converted to
// epoch milliseconds and the graph's xaxis mode is set to "time" as a side
// effect.
//
// Returns ErrMissingData when pairs is empty and a *DuplicateLabelError when
// the label is already taken. On error the graph is left unchanged.
func (g *Graph) AddSeries(pairs []Pair, opts ...SeriesOption) error {
	if len(pairs) == 0 {
		return ErrMissingData
	}

	points, temporal, err := normalizePairs(pairs)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if temporal {
		g.logger.Debug("detected time series, setting xaxis mode to time")
		g.options.update(Options{"xaxis": Options{"mode": "time"}})
	}

	return g.appendSeries(points, opts)
}

// AddValue registers a single-value series, as used by pie charts. A scalar
// series has no data points to validate, so ErrMissingData never applies.
func (g *Graph) AddValue(value float64, opts ...SeriesOption) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.appendSeries(value, opts)
}

// AddBars is AddSeries with bar rendering enabled, unless the caller already
// supplied richer bar options via WithBars.
func (g *Graph) AddBars(pairs []Pair, opts ...SeriesOption) error {
	return g.AddSeries(pairs, forceLineType("bars", opts))
}

// AddLines is AddSeries with line rendering enabled, analogous to AddBars.
func (g *Graph) AddLines(pairs []Pair, opts ...SeriesOption) error {
	return g.AddSeries(pairs, forceLineType("lines", opts))
}

// AddPoints is AddSeries with point rendering enabled, analogous to AddBars.
func (g *Graph) AddPoints(pairs []Pair, opts ...SeriesOption) error {
	return g.AddSeries(pairs, forceLineType("points", opts))
}

func forceLineType(lineType string, opts []SeriesOption) SeriesOption {
	return func(c *seriesConfig) {
		for _, opt := range opts {
			opt(c)
		}
		if _, ok := c.hints[lineType]; !ok {
			withLineType(lineType, nil)(c)
		}
	}
}

// appendSeries builds and appends the entry. Caller holds the write lock.
func (g *Graph) appendSeries(data any, opts []SeriesOption) error {
	var config seriesConfig
	for _, opt := range opts {
		opt(&config)
	}

	if config.label != "" {
		for _, existing := range g.series {
			if existing.label == config.label {
				return &DuplicateLabelError{Label: config.label}
			}
		}
	}

	g.series = append(g.series, &series{
		data:  data,
		label: config.label,
		hints: config.hints,
		extra: config.extra,
	})

	g.logger.WithFields(logrus.Fields{
		"label":     config.label,
		"numSeries": len(g.series),
	}).Debug("added series")

	return nil
}

// Options returns a deep copy of the effective global options.
func (g *Graph) Options() Options {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.options.clone()
}

// SeriesView returns every series passed through the preparer, as plain
// structured data in insertion order. The views are built fresh on every
// call: preparation never writes back into the registered series, so
// repeated serialization is idempotent and always reflects the current
// series set.
func (g *Graph) SeriesView() ([]map[string]any, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snapshot := make([]SeriesData, 0, len(g.series))
	for _, s := range g.series {
		snapshot = append(snapshot, SeriesData{Label: s.label, Points: s.points()})
	}

	views := make([]map[string]any, 0, len(g.series))
	for _, s := range g.series {
		view := s.view()
		if g.prepare != nil {
			prepared, err := g.prepare(snapshot, view)
			if err != nil {
				return nil, err
			}
			view = prepared
		}
		views = append(views, view)
	}
	return views, nil
}

// SeriesJSON returns the series array encoded as JSON, suitable for passing
// to flot's $.plot as the data parameter.
func (g *Graph) SeriesJSON() (string, error) {
	views, err := g.SeriesView()
	if err != nil {
		return "", err
	}

	encoded, err := json.Marshal(views)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// OptionsJSON returns the global options encoded as JSON, suitable for
// passing to flot's $.plot as the options parameter.
func (g *Graph) OptionsJSON() (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	encoded, err := json.Marshal(g.options)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
