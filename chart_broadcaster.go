package goflot

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// ChartUpdate is one complete chart snapshot: the two JSON payloads flot
// consumes ($.plot's data and options parameters).
type ChartUpdate struct {
	Series  json.RawMessage `json:"series"`
	Options json.RawMessage `json:"options"`

	streamEnded bool
	streamErr   error
}

// SeriesSpec describes how one input column is charted.
type SeriesSpec struct {
	Label string

	// Line types to enable for the column ("bars", "lines", "points").
	// Empty means lines.
	LineTypes []string

	// Extra per-series flot options, e.g. a color.
	Options Options
}

// ChartBroadcaster reads rows from a RowReader, keeps the most recent ones
// in a ring buffer, rebuilds a Graph from them on every row, and fans the
// serialized chart out to registered channels. One broadcaster corresponds
// to one live chart.
type ChartBroadcaster struct {
	input RowReader

	// Option layers the Graph is constructed from on each rebuild, most
	// general first.
	optionLayers []Options

	// One spec per y column. Columns without a spec fall back to a plain
	// line series labeled with the column name.
	specs []SeriesSpec

	mutex sync.Mutex
	wg    sync.WaitGroup

	// If the stream is ended or not
	streamEnded atomic.Bool
	err         error // The error emitted by run(), if any. Read after streamEnded == true to ensure no data race.

	// Channels of open websockets we are sending updates to. Channels should
	// be buffered, to not block the ChartBroadcaster.
	channelsForLiveUpdate []chan<- ChartUpdate

	// The most recent rows. These are what the Graph is rebuilt from, so the
	// chart is a sliding window over the input.
	rowBuffer *ThreadUnsafeRing[Row]

	// The last update built, resent to newly registered channels and served
	// over plain HTTP.
	lastUpdate ChartUpdate

	numRowsEmitted int

	logger logrus.FieldLogger
}

func NewChartBroadcaster(input RowReader, bufferCapacity int, optionLayers []Options, specs []SeriesSpec) *ChartBroadcaster {
	b := &ChartBroadcaster{
		input:                 input,
		optionLayers:          optionLayers,
		specs:                 specs,
		channelsForLiveUpdate: make([]chan<- ChartUpdate, 0),
		rowBuffer:             NewRing[Row](bufferCapacity),
		logger:                logrus.WithField("tag", "ChartBroadcaster"),
	}

	b.lastUpdate = ChartUpdate{Series: json.RawMessage("[]"), Options: json.RawMessage("{}")}
	if update, err := b.buildUpdateLocked(); err == nil {
		b.lastUpdate = update
	}

	return b
}

func (b *ChartBroadcaster) Start(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		err := b.run(ctx)

		b.err = err

		// Must be set before broadcasting the end message, as this atomic
		// "releases" b.err for other goroutines (see the Golang memory model).
		b.streamEnded.Store(true)

		b.broadcast(ChartUpdate{
			streamEnded: true,
			streamErr:   err,
		})

		logger := b.logger.WithField("numRowsEmitted", b.numRowsEmitted)
		if err != nil {
			logger = logger.WithError(err)
		}
		logger.Info("chart broadcaster stream ended")
	}()
}

func (b *ChartBroadcaster) Wait() {
	b.wg.Wait()
}

// CurrentUpdate returns the most recent chart snapshot. Used by the HTTP
// server for the plain /chart endpoint and for new tabs that connect after
// the stream has ended.
func (b *ChartBroadcaster) CurrentUpdate() ChartUpdate {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.lastUpdate
}

// RegisterChannel subscribes a channel to chart updates. Called by the HTTP
// server when a new websocket connection is made.
//
// The broadcaster mutex guarantees the snapshot sent here and the stream of
// subsequent updates have no gap: while the lock is held no new row can be
// folded in or broadcast, so the channel always observes the latest snapshot
// followed by every later one. The cost is a short stall of all live charts
// whenever a new tab connects, which is rare enough not to matter.
//
// The channel should be buffered: a blocked channel blocks every chart.
func (b *ChartBroadcaster) RegisterChannel(ctx context.Context, c chan<- ChartUpdate) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	c <- b.lastUpdate

	if b.streamEnded.Load() {
		c <- ChartUpdate{streamEnded: true, streamErr: b.err}
	}

	b.channelsForLiveUpdate = append(b.channelsForLiveUpdate, c)

	b.logger.WithField("channels", len(b.channelsForLiveUpdate)).Info("registered channel")
}

// DeregisterChannel unsubscribes a channel previously passed to
// RegisterChannel. The channel must not be closed until this returns, as the
// broadcaster may still be writing to it.
func (b *ChartBroadcaster) DeregisterChannel(ctx context.Context, c chan<- ChartUpdate) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.channelsForLiveUpdate = Filter(b.channelsForLiveUpdate, func(channel chan<- ChartUpdate) bool {
		return channel != c
	})
	b.logger.WithField("channels", len(b.channelsForLiveUpdate)).Info("deregistered channel")
}

func (b *ChartBroadcaster) run(ctx context.Context) error {
	for {
		row, err := b.input.Read(ctx)
		if err == errIgnoreThisRow {
			continue
		} else if err == io.EOF {
			// The input has ended. The last update stays cached so new
			// browser tabs can still display the finished chart.
			return nil
		} else if err != nil {
			return err
		}

		if err := b.foldAndBroadcast(row); err != nil {
			return err
		}
	}
}

func (b *ChartBroadcaster) foldAndBroadcast(row Row) error {
	b.numRowsEmitted++

	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.logger.WithFields(logrus.Fields{
		"x":  row.X,
		"ys": row.Ys,
	}).Debug("new row")

	b.rowBuffer.Push(row)

	update, err := b.buildUpdateLocked()
	if err != nil {
		return err
	}
	b.lastUpdate = update

	for _, c := range b.channelsForLiveUpdate {
		c <- update
	}

	return nil
}

func (b *ChartBroadcaster) broadcast(update ChartUpdate) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, c := range b.channelsForLiveUpdate {
		c <- update
	}
}

// buildUpdateLocked rebuilds the Graph from the buffered rows and
// serializes it. Caller holds the mutex (or, during construction, has
// exclusive access).
func (b *ChartBroadcaster) buildUpdateLocked() (ChartUpdate, error) {
	rows := b.rowBuffer.ReadAllOrdered()

	graph := New(b.optionLayers...)

	numColumns := len(b.input.ColumnNames())
	for _, row := range rows {
		numColumns = Max(numColumns, len(row.Ys))
	}

	for column := 0; column < numColumns; column++ {
		pairs := make([]Pair, 0, len(rows))
		for _, row := range rows {
			if column >= len(row.Ys) {
				continue
			}
			pairs = append(pairs, Pair{X: row.X, Y: row.Ys[column]})
		}
		if len(pairs) == 0 {
			continue
		}

		if err := graph.AddSeries(pairs, b.seriesOptions(column)...); err != nil {
			return ChartUpdate{}, err
		}
	}

	seriesJSON, err := graph.SeriesJSON()
	if err != nil {
		return ChartUpdate{}, err
	}
	optionsJSON, err := graph.OptionsJSON()
	if err != nil {
		return ChartUpdate{}, err
	}

	return ChartUpdate{
		Series:  json.RawMessage(seriesJSON),
		Options: json.RawMessage(optionsJSON),
	}, nil
}

func (b *ChartBroadcaster) seriesOptions(column int) []SeriesOption {
	var spec SeriesSpec
	if column < len(b.specs) {
		spec = b.specs[column]
	}

	if spec.Label == "" {
		columnNames := b.input.ColumnNames()
		if column < len(columnNames) {
			spec.Label = columnNames[column]
		}
	}

	opts := []SeriesOption{}
	if spec.Label != "" {
		opts = append(opts, WithLabel(spec.Label))
	}

	lineTypes := spec.LineTypes
	if len(lineTypes) == 0 {
		lineTypes = []string{"lines"}
	}
	for _, lineType := range lineTypes {
		opts = append(opts, withLineType(lineType, nil))
	}

	if spec.Options != nil {
		opts = append(opts, WithSeriesOptions(spec.Options))
	}

	return opts
}

// StreamEnded returns whether the update marks the end of the stream, and
// the stream error if there was one.
func (u ChartUpdate) StreamEnded() (bool, error) {
	return u.streamEnded, u.streamErr
}
