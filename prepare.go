package goflot

// SeriesData is a read-only description of one registered series, handed to
// preparers so they can derive per-series options from cross-series
// characteristics. Points is nil for scalar series. Preparers must not
// modify the point slice.
type SeriesData struct {
	Label  string
	Points []Point
}

// PrepareFunc transforms one series view at serialization time. snapshot
// describes every series currently registered on the graph, in insertion
// order; view is the plain structure about to be serialized for one of
// them. The returned map replaces the view.
//
// The default preparer is prepareBarWidth; override with Graph.SetPreparer
// to derive other options from series characteristics.
type PrepareFunc func(snapshot []SeriesData, view map[string]any) (map[string]any, error)

// calculateBarWidth determines which series has the most data points and
// derives a bar width from the overall x range divided by that count. Flot
// treats barWidth in graph units (not pixels), and expects one consistent
// width across overlapping bar series, which is why the whole snapshot is
// consulted rather than just the bar series at hand.
func calculateBarWidth(snapshot []SeriesData) (float64, error) {
	slices := 0
	first := true
	var xmin, xmax float64

	for _, s := range snapshot {
		slices = Max(slices, len(s.Points))
		for _, p := range s.Points {
			if first {
				xmin, xmax = p.X, p.X
				first = false
				continue
			}
			xmin = Min(xmin, p.X)
			xmax = Max(xmax, p.X)
		}
	}

	if slices == 0 {
		return 0, ErrNoData
	}

	return (xmax - xmin) / float64(slices), nil
}

// prepareBarWidth injects a shared bars.barWidth into every series that has
// bar rendering enabled. The width is recomputed on each serialization so it
// reflects the full series set at call time. A width of zero (single slice,
// or all x values identical) is treated as nothing to inject and the bars
// options are left untouched.
func prepareBarWidth(snapshot []SeriesData, view map[string]any) (map[string]any, error) {
	bars, ok := asOptions(view["bars"])
	if !ok {
		return view, nil
	}

	width, err := calculateBarWidth(snapshot)
	if err != nil {
		return nil, err
	}
	if width != 0 {
		bars["barWidth"] = width
	}

	return view, nil
}
