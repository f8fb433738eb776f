package goflot

import (
	"encoding/json"
	"fmt"
	"time"
)

// Pair is one input data point. X is either a numeric value or a time.Time;
// when the first pair of a series carries a time.Time, the whole series is
// treated as a time series (see normalizePairs).
type Pair struct {
	X any
	Y float64
}

// Point is a canonical, normalized data point. It serializes to the [x, y]
// array form flot expects.
type Point struct {
	X float64
	Y float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// timeToMillis converts a timestamp to integer milliseconds since the Unix
// epoch, truncated. Flot expects Javascript-style timestamps on the x axis.
func timeToMillis(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func xToFloat(x any) (float64, bool) {
	switch v := x.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// normalizePairs converts input pairs to canonical points. Time series
// detection is based solely on the type of the first pair's X: if it is a
// time.Time, every X in the series is converted to epoch milliseconds and
// temporal is reported true. Mixed-type sequences are not validated beyond
// that first element.
func normalizePairs(pairs []Pair) (points []Point, temporal bool, err error) {
	if len(pairs) == 0 {
		return nil, false, nil
	}

	_, temporal = pairs[0].X.(time.Time)

	points = make([]Point, 0, len(pairs))
	for i, pair := range pairs {
		if ts, ok := pair.X.(time.Time); ok {
			points = append(points, Point{X: timeToMillis(ts), Y: pair.Y})
			continue
		}

		x, ok := xToFloat(pair.X)
		if !ok {
			return nil, false, fmt.Errorf("pair %d has unsupported x value of type %T", i, pair.X)
		}
		points = append(points, Point{X: x, Y: pair.Y})
	}

	return points, temporal, nil
}
