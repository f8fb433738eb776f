package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/cli/browser"
	"github.com/egguy/goflot"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type cliOptions struct {
	Host string `long:"host" env:"GOFLOT_HOST" default:"localhost" description:"Host to listen on"`
	Port int    `short:"p" long:"port" env:"GOFLOT_PORT" default:"5274" description:"Port to listen on"`

	Title   string   `short:"t" long:"title" description:"Chart title"`
	Columns []string `short:"c" long:"column" description:"Column labels, one per y column"`
	XLabel  string   `long:"xlabel" description:"X axis label"`
	YLabel  string   `long:"ylabel" description:"Y axis label"`

	XIndex      int    `short:"x" long:"x-index" default:"-1" description:"Index of the x column; -1 uses the current time"`
	XTimeLayout string `long:"x-time-layout" description:"Parse the x column as a timestamp with this Go layout ('unix' for epoch seconds)"`
	Csv         bool   `long:"csv" description:"Treat the input as strict CSV instead of whitespace/comma separated"`
	ExactCount  bool   `short:"e" long:"exact-column-count" description:"Drop rows whose column count does not match --column"`

	ChartType  string `long:"chart-type" choice:"lines" choice:"bars" choice:"points" default:"lines" description:"Line type used for every series"`
	BufferSize int    `long:"buffer-size" env:"GOFLOT_BUFFER_SIZE" default:"1000" description:"Number of recent rows kept for the chart window"`

	NoBrowser bool `long:"no-browser" env:"GOFLOT_NO_BROWSER" description:"Do not open the chart page in a browser"`
	Debug     bool `long:"debug" env:"GOFLOT_DEBUG" description:"Enable debug logging"`
}

func main() {
	// A .env next to the binary can hold the GOFLOT_* defaults.
	godotenv.Load()

	var opts cliOptions
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	if opts.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	var input goflot.StringReader
	if opts.Csv {
		input = goflot.NewCsvStringReader(os.Stdin)
	} else {
		input = goflot.NewRelaxedStringReader(os.Stdin)
	}

	rowReader := &goflot.TextToRowReader{
		Input:                  input,
		XIndex:                 opts.XIndex,
		XTimeLayout:            opts.XTimeLayout,
		Columns:                opts.Columns,
		ExpectExactColumnCount: opts.ExactCount,
	}

	layers := []goflot.Options{
		{
			"grid":   goflot.Options{"hoverable": true},
			"legend": goflot.Options{"position": "nw"},
		},
	}

	specs := make([]goflot.SeriesSpec, 0, len(opts.Columns))
	for _, column := range opts.Columns {
		specs = append(specs, goflot.SeriesSpec{
			Label:     column,
			LineTypes: []string{opts.ChartType},
		})
	}

	broadcaster := goflot.NewChartBroadcaster(rowReader, opts.BufferSize, layers, specs)

	addr := opts.Host + ":" + strconv.Itoa(opts.Port)
	server := goflot.NewHttpServer(broadcaster, addr, goflot.ChartMetadata{
		Title:   opts.Title,
		XLabel:  opts.XLabel,
		YLabel:  opts.YLabel,
		Columns: opts.Columns,
	})

	broadcaster.Start(context.Background())

	if !opts.NoBrowser {
		url := fmt.Sprintf("http://%s", addr)
		if err := browser.OpenURL(url); err != nil {
			logrus.WithError(err).Warn("failed to open web browser automatically")
		}
	}

	if err := server.Run(); err != nil {
		logrus.WithError(err).Fatal("HTTP server failed")
	}
}
