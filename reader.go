package goflot

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// The input pipeline starts with an io.Reader (usually stdin). A
// StringReader splits it into string fields, the TextToRowReader turns the
// fields into a Row, and the ChartBroadcaster folds rows into a Graph and
// emits the serialized chart to its subscribers.

var errIgnoreThisRow = errors.New("ignore this row")

// StringReader returns one input record at a time as an array of string
// fields.
type StringReader interface {
	Read(context.Context) ([]string, error)
}

// Row is one parsed input record: an x value (numeric, or a time.Time when
// a time layout is configured) plus one y value per column.
type Row struct {
	X  any
	Ys []float64
}

// RowReader produces Rows ready to be folded into a Graph.
type RowReader interface {
	Read(context.Context) (Row, error)
	ColumnNames() []string
}

// CsvStringReader splits input with the csv package, so the input must be
// strict CSV. For loosely formatted input (fields separated by one or more
// spaces) use RelaxedStringReader instead.
type CsvStringReader struct {
	csvReader *csv.Reader
	lineCount int
}

func NewCsvStringReader(input io.Reader) *CsvStringReader {
	csvReader := csv.NewReader(input)
	csvReader.FieldsPerRecord = -1
	return &CsvStringReader{
		csvReader: csvReader,
	}
}

func (r *CsvStringReader) Read(ctx context.Context) ([]string, error) {
	line, err := r.csvReader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}

	r.lineCount++

	if err != nil {
		logger := logrus.WithFields(logrus.Fields{
			"tag":     "CsvString",
			"line":    line,
			"lineNum": r.lineCount,
		})

		switch err.(type) {
		case *csv.ParseError:
			logger.WithError(err).Debug("unable to parse CSV, ignoring...")
			return nil, errIgnoreThisRow
		default:
			logger.WithError(err).Error("unable to read CSV")
			return nil, err
		}
	}

	return line, nil
}

// RelaxedStringReader splits each line on commas or any run of spaces and
// tabs. It does not handle quoting. This is the default input format.
type RelaxedStringReader struct {
	scanner *bufio.Scanner
}

func NewRelaxedStringReader(input io.Reader) *RelaxedStringReader {
	return &RelaxedStringReader{
		scanner: bufio.NewScanner(input),
	}
}

var relaxedSplitter = regexp.MustCompile("[ \t]+|,")

func (r *RelaxedStringReader) Read(ctx context.Context) ([]string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			logrus.WithField("tag", "RelaxedString").WithError(err).Error("unable to read line")
			return nil, err
		}
		return nil, io.EOF
	}

	fields := Filter(relaxedSplitter.Split(r.scanner.Text(), -1), func(value string) bool {
		return len(value) > 0
	})

	return fields, nil
}

// NowXGenerator is the default x generator: the current wall clock time. As
// a time.Time it makes the resulting chart a time series.
func NowXGenerator(ys []float64) any {
	return time.Now()
}

// TextToRowReader converts string fields into a Row. Unrecognized or
// unparsable lines are ignored and logged.
type TextToRowReader struct {
	// The input reader (either CsvStringReader or RelaxedStringReader).
	Input StringReader

	// Index of the x column. If this is <0, X is produced by XGenerator and
	// every field becomes a y value; otherwise the field at this index is the
	// x value and the remaining fields the y values.
	XIndex int

	// When non-empty, the x column is parsed as a timestamp with this layout
	// (time.Parse). The special layout "unix" interprets the column as
	// seconds since the epoch. Otherwise the x column must be a float.
	XTimeLayout string

	// Generator for X when XIndex < 0. Defaults to NowXGenerator.
	XGenerator func(ys []float64) any

	// The labels of the y columns.
	Columns []string

	// If the input row has a different number of y values than Columns,
	// ignore the row.
	ExpectExactColumnCount bool
}

func (r *TextToRowReader) Read(ctx context.Context) (Row, error) {
	fields, err := r.Input.Read(ctx)
	if err != nil {
		return Row{}, err
	}

	logger := logrus.WithFields(logrus.Fields{
		"tag":  "TextToRow",
		"line": fields,
	})

	var row Row

	for i, field := range fields {
		field = strings.TrimSpace(field)

		if i == r.XIndex {
			x, err := r.parseX(field)
			if err != nil {
				logger.WithError(err).Warn("cannot parse x value, ignoring...")
				return Row{}, errIgnoreThisRow
			}
			row.X = x
			continue
		}

		y, err := strconv.ParseFloat(field, 64)
		if err != nil {
			logger.Warn("cannot parse float, ignoring...")
			return Row{}, errIgnoreThisRow
		}
		row.Ys = append(row.Ys, y)
	}

	if r.ExpectExactColumnCount && len(r.Columns) != len(row.Ys) {
		logger.Warnf("expected column count (%d) is not observed (%d)", len(r.Columns), len(row.Ys))
		return Row{}, errIgnoreThisRow
	}

	if r.XIndex < 0 {
		xGenerator := r.XGenerator
		if xGenerator == nil {
			xGenerator = NowXGenerator
		}
		row.X = xGenerator(row.Ys)
	}

	return row, nil
}

func (r *TextToRowReader) parseX(field string) (any, error) {
	switch r.XTimeLayout {
	case "":
		return strconv.ParseFloat(field, 64)
	case "unix":
		seconds, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(int64(seconds * 1000)), nil
	default:
		return time.Parse(r.XTimeLayout, field)
	}
}

func (r *TextToRowReader) ColumnNames() []string {
	return r.Columns
}
