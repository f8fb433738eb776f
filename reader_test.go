package goflot

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"
)

// errReader simulates an io.Reader that returns an error on Read.
type errReader struct{ err error }

func (e *errReader) Read(p []byte) (int, error) { return 0, e.err }

func TestCsvStringReader(t *testing.T) {
	t.Run("ReadsLines", func(t *testing.T) {
		ctx := context.Background()
		r := NewCsvStringReader(strings.NewReader("1,2,3\n4,5,6\n"))

		line, err := r.Read(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(line, []string{"1", "2", "3"}) {
			t.Fatalf("unexpected fields: %v", line)
		}

		line, err = r.Read(ctx)
		if err != nil {
			t.Fatalf("unexpected error on second read: %v", err)
		}
		if !reflect.DeepEqual(line, []string{"4", "5", "6"}) {
			t.Fatalf("unexpected fields on second line: %v", line)
		}

		if _, err = r.Read(ctx); err != io.EOF {
			t.Fatalf("expected io.EOF after reads, got %v", err)
		}
	})

	t.Run("ParseErrorIgnored", func(t *testing.T) {
		// Unmatched quote produces a csv.ParseError, which drops the row.
		r := NewCsvStringReader(strings.NewReader("a,\"b"))
		if _, err := r.Read(context.Background()); err != errIgnoreThisRow {
			t.Fatalf("expected errIgnoreThisRow, got %v", err)
		}
	})

	t.Run("UnderlyingError", func(t *testing.T) {
		underlying := errors.New("boom")
		r := NewCsvStringReader(&errReader{err: underlying})
		if _, err := r.Read(context.Background()); !errors.Is(err, underlying) {
			t.Fatalf("expected underlying error, got %v", err)
		}
	})
}

func TestRelaxedStringReader(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"Commas", "1,2,3\n", []string{"1", "2", "3"}},
		{"Spaces", "1 2  3\n", []string{"1", "2", "3"}},
		{"Tabs", "1\t2\t3\n", []string{"1", "2", "3"}},
		{"Mixed", "1, 2\t \t3\n", []string{"1", "2", "3"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewRelaxedStringReader(strings.NewReader(c.input))
			got, err := r.Read(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("unexpected split: got %v want %v", got, c.want)
			}
		})
	}

	t.Run("EOF", func(t *testing.T) {
		r := NewRelaxedStringReader(strings.NewReader(""))
		if _, err := r.Read(context.Background()); err != io.EOF {
			t.Fatalf("expected io.EOF, got %v", err)
		}
	})
}

func TestTextToRowReader(t *testing.T) {
	ctx := context.Background()

	t.Run("ExplicitXColumn", func(t *testing.T) {
		r := &TextToRowReader{
			Input:   NewRelaxedStringReader(strings.NewReader("5 1.5 2.5\n")),
			XIndex:  0,
			Columns: []string{"a", "b"},
		}

		row, err := r.Read(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if row.X != 5.0 {
			t.Fatalf("x = %v, want 5", row.X)
		}
		if !reflect.DeepEqual(row.Ys, []float64{1.5, 2.5}) {
			t.Fatalf("ys = %v", row.Ys)
		}
	})

	t.Run("GeneratedX", func(t *testing.T) {
		r := &TextToRowReader{
			Input:   NewRelaxedStringReader(strings.NewReader("1 2\n")),
			XIndex:  -1,
			Columns: []string{"a", "b"},
		}

		row, err := r.Read(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := row.X.(time.Time); !ok {
			t.Fatalf("generated x should be a time.Time, got %T", row.X)
		}
		if !reflect.DeepEqual(row.Ys, []float64{1, 2}) {
			t.Fatalf("ys = %v", row.Ys)
		}
	})

	t.Run("UnixTimeLayout", func(t *testing.T) {
		r := &TextToRowReader{
			Input:       NewRelaxedStringReader(strings.NewReader("1680350400 7\n")),
			XIndex:      0,
			XTimeLayout: "unix",
			Columns:     []string{"a"},
		}

		row, err := r.Read(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ts, ok := row.X.(time.Time)
		if !ok {
			t.Fatalf("x should be a time.Time, got %T", row.X)
		}
		if ts.UnixMilli() != 1680350400000 {
			t.Fatalf("unexpected timestamp: %v", ts)
		}
	})

	t.Run("LayoutTimeColumn", func(t *testing.T) {
		r := &TextToRowReader{
			Input:       NewCsvStringReader(strings.NewReader("2023-04-01T12:00:00Z,3\n")),
			XIndex:      0,
			XTimeLayout: time.RFC3339,
			Columns:     []string{"a"},
		}

		row, err := r.Read(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ts := row.X.(time.Time)
		if ts.UnixMilli() != 1680350400000 {
			t.Fatalf("unexpected timestamp: %v", ts)
		}
	})

	t.Run("UnparsableFloatIgnored", func(t *testing.T) {
		r := &TextToRowReader{
			Input:   NewRelaxedStringReader(strings.NewReader("1 garbage\n2 3\n")),
			XIndex:  0,
			Columns: []string{"a"},
		}

		if _, err := r.Read(ctx); err != errIgnoreThisRow {
			t.Fatalf("expected errIgnoreThisRow, got %v", err)
		}

		row, err := r.Read(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if row.X != 2.0 || !reflect.DeepEqual(row.Ys, []float64{3}) {
			t.Fatalf("unexpected row after ignored line: %+v", row)
		}
	})

	t.Run("ExactColumnCount", func(t *testing.T) {
		r := &TextToRowReader{
			Input:                  NewRelaxedStringReader(strings.NewReader("1 2 3\n")),
			XIndex:                 -1,
			Columns:                []string{"only one"},
			ExpectExactColumnCount: true,
		}

		if _, err := r.Read(ctx); err != errIgnoreThisRow {
			t.Fatalf("expected errIgnoreThisRow, got %v", err)
		}
	})
}
