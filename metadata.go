package goflot

// ChartMetadata describes the chart to the web UI: everything the page
// needs besides the two flot payloads themselves.
type ChartMetadata struct {
	Title   string
	XLabel  string
	YLabel  string
	Columns []string
}
