package goflot

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"
)

// sliceRowReader replays a fixed set of rows and then EOFs.
type sliceRowReader struct {
	rows    []Row
	columns []string
	next    int
}

func (r *sliceRowReader) Read(ctx context.Context) (Row, error) {
	if r.next >= len(r.rows) {
		return Row{}, io.EOF
	}
	row := r.rows[r.next]
	r.next++
	return row, nil
}

func (r *sliceRowReader) ColumnNames() []string {
	return r.columns
}

func drainUntilEnd(t *testing.T, channel chan ChartUpdate) []ChartUpdate {
	t.Helper()

	var updates []ChartUpdate
	for {
		select {
		case update := <-channel:
			if ended, _ := update.StreamEnded(); ended {
				return updates
			}
			updates = append(updates, update)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for stream end")
		}
	}
}

func TestChartBroadcaster(t *testing.T) {
	t.Run("FoldsRowsIntoChart", func(t *testing.T) {
		reader := &sliceRowReader{
			rows: []Row{
				{X: 1.0, Ys: []float64{10}},
				{X: 2.0, Ys: []float64{20}},
			},
			columns: []string{"cpu"},
		}
		b := NewChartBroadcaster(reader, 10, nil, nil)

		b.Start(context.Background())
		b.Wait()

		update := b.CurrentUpdate()
		want := `[{"data":[[1,10],[2,20]],"label":"cpu","lines":{"show":true}}]`
		if string(update.Series) != want {
			t.Fatalf("unexpected series payload:\ngot  %s\nwant %s", update.Series, want)
		}
		if string(update.Options) != "{}" {
			t.Fatalf("unexpected options payload: %s", update.Options)
		}
	})

	t.Run("OptionLayersAndSpecs", func(t *testing.T) {
		reader := &sliceRowReader{
			rows: []Row{
				{X: 0.0, Ys: []float64{1, 4}},
				{X: 10.0, Ys: []float64{2, 5}},
			},
			columns: []string{"a", "b"},
		}
		layers := []Options{{"grid": Options{"hoverable": true}}}
		specs := []SeriesSpec{
			{LineTypes: []string{"bars"}},
			{Label: "custom", LineTypes: []string{"points"}, Options: Options{"color": "#f00"}},
		}
		b := NewChartBroadcaster(reader, 10, layers, specs)

		b.Start(context.Background())
		b.Wait()

		update := b.CurrentUpdate()

		var views []map[string]any
		if err := json.Unmarshal(update.Series, &views); err != nil {
			t.Fatalf("series payload is not valid JSON: %v", err)
		}
		if len(views) != 2 {
			t.Fatalf("expected 2 series, got %v", views)
		}
		if views[0]["label"] != "a" {
			t.Fatalf("first series should fall back to the column name, got %v", views[0])
		}
		bars, _ := asOptions(views[0]["bars"])
		if bars["barWidth"] != 5.0 {
			t.Fatalf("expected barWidth 5 (range 10 over 2 slices), got %v", bars)
		}
		if views[1]["label"] != "custom" || views[1]["color"] != "#f00" {
			t.Fatalf("spec label/options not applied: %v", views[1])
		}

		if string(update.Options) != `{"grid":{"hoverable":true}}` {
			t.Fatalf("unexpected options payload: %s", update.Options)
		}
	})

	t.Run("TemporalRowsSetTimeMode", func(t *testing.T) {
		reader := &sliceRowReader{
			rows: []Row{
				{X: time.UnixMilli(1000).UTC(), Ys: []float64{1}},
				{X: time.UnixMilli(2000).UTC(), Ys: []float64{2}},
			},
			columns: []string{"v"},
		}
		b := NewChartBroadcaster(reader, 10, nil, nil)

		b.Start(context.Background())
		b.Wait()

		update := b.CurrentUpdate()
		if string(update.Options) != `{"xaxis":{"mode":"time"}}` {
			t.Fatalf("expected time mode options, got %s", update.Options)
		}

		var views []map[string]any
		if err := json.Unmarshal(update.Series, &views); err != nil {
			t.Fatalf("series payload is not valid JSON: %v", err)
		}
		data := views[0]["data"].([]any)
		first := data[0].([]any)
		if first[0] != 1000.0 {
			t.Fatalf("expected millisecond x, got %v", first)
		}
	})

	t.Run("SlidingWindow", func(t *testing.T) {
		reader := &sliceRowReader{
			rows: []Row{
				{X: 1.0, Ys: []float64{1}},
				{X: 2.0, Ys: []float64{2}},
				{X: 3.0, Ys: []float64{3}},
			},
			columns: []string{"v"},
		}
		b := NewChartBroadcaster(reader, 2, nil, nil)

		b.Start(context.Background())
		b.Wait()

		update := b.CurrentUpdate()
		want := `[{"data":[[2,2],[3,3]],"label":"v","lines":{"show":true}}]`
		if string(update.Series) != want {
			t.Fatalf("oldest row should have fallen out of the window:\ngot  %s\nwant %s", update.Series, want)
		}
	})

	t.Run("RegisteredChannelSeesEveryUpdate", func(t *testing.T) {
		reader := &sliceRowReader{
			rows: []Row{
				{X: 1.0, Ys: []float64{1}},
				{X: 2.0, Ys: []float64{2}},
			},
			columns: []string{"v"},
		}
		b := NewChartBroadcaster(reader, 10, nil, nil)

		ctx := context.Background()
		channel := make(chan ChartUpdate, 100)
		b.RegisterChannel(ctx, channel)

		b.Start(ctx)
		b.Wait()

		// Initial empty snapshot plus one update per row.
		updates := drainUntilEnd(t, channel)
		if len(updates) != 3 {
			t.Fatalf("expected 3 updates before stream end, got %d", len(updates))
		}
		if string(updates[0].Series) != "[]" {
			t.Fatalf("first update should be the empty snapshot, got %s", updates[0].Series)
		}

		b.DeregisterChannel(ctx, channel)
		close(channel)
	})

	t.Run("LateRegistrationGetsSnapshotAndEnd", func(t *testing.T) {
		reader := &sliceRowReader{
			rows:    []Row{{X: 1.0, Ys: []float64{1}}},
			columns: []string{"v"},
		}
		b := NewChartBroadcaster(reader, 10, nil, nil)

		b.Start(context.Background())
		b.Wait()

		channel := make(chan ChartUpdate, 10)
		b.RegisterChannel(context.Background(), channel)

		updates := drainUntilEnd(t, channel)
		if len(updates) != 1 {
			t.Fatalf("expected exactly the final snapshot, got %d updates", len(updates))
		}
		if string(updates[0].Series) == "[]" {
			t.Fatal("snapshot should contain the folded rows")
		}
	})
}
