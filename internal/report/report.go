// Package report renders scan progress and results for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"vidmatch/internal/scan"
)

// Reporter receives the events of one CLI scan.
type Reporter interface {
	ReportProgress(fraction float64)
	ReportResult(res *scan.Result)
	ReportError(stage string, err error)
}

// New returns the reporter for an output format: "json" selects
// JSON lines, anything else the console reporter.
func New(format string, out, errOut io.Writer) Reporter {
	if format == "json" {
		return NewJSONReporter(out)
	}
	return NewConsoleReporter(out, errOut)
}

// ConsoleReporter outputs human-readable progress to the terminal
type ConsoleReporter struct {
	out    io.Writer
	errOut io.Writer

	mu   sync.Mutex
	last int
}

func NewConsoleReporter(out, errOut io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out, errOut: errOut, last: -1}
}

// ReportProgress redraws the progress line on errOut at most once per
// whole percent.
func (r *ConsoleReporter) ReportProgress(fraction float64) {
	pct := int(fraction * 100)
	r.mu.Lock()
	defer r.mu.Unlock()
	if pct <= r.last {
		return
	}
	r.last = pct
	fmt.Fprintf(r.errOut, "\rScanning: %3d%%", pct)
	if pct >= 100 {
		fmt.Fprintln(r.errOut)
	}
}

func (r *ConsoleReporter) ReportResult(res *scan.Result) {
	fmt.Fprintln(r.out, FormatOffsets(res.Offsets()))
}

func (r *ConsoleReporter) ReportError(stage string, err error) {
	fmt.Fprintf(r.errOut, "Error: %s: %v\n", stage, err)
}

// FormatOffsets renders the outcome line of a scan.
func FormatOffsets(offsets []float64) string {
	if len(offsets) == 0 {
		return "Image not found in the video."
	}
	parts := make([]string, len(offsets))
	for i, o := range offsets {
		parts[i] = strconv.FormatFloat(o, 'f', -1, 64)
	}
	return "Image found at times (seconds): [" + strings.Join(parts, ", ") + "]"
}

// JSONEvent is the structured event format for machine-readable output
type JSONEvent struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// JSONProgressData contains progress information in structured form
type JSONProgressData struct {
	Fraction float64 `json:"fraction"`
}

// JSONResultData contains the scan outcome in structured form
type JSONResultData struct {
	ID        string       `json:"id"`
	Video     string       `json:"video"`
	Threshold float64      `json:"threshold"`
	Offsets   []float64    `json:"offsets"`
	Matches   []scan.Match `json:"matches"`
	ElapsedMS int64        `json:"elapsedMs"`
}

// JSONErrorData contains error information in structured form
type JSONErrorData struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// JSONReporter outputs machine-readable JSON lines for scripting/automation
type JSONReporter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	last    int
}

func NewJSONReporter(out io.Writer) *JSONReporter {
	return &JSONReporter{encoder: json.NewEncoder(out), last: -1}
}

func (r *JSONReporter) emit(eventType string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoder.Encode(JSONEvent{
		Type:      eventType,
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Data:      data,
	})
}

func (r *JSONReporter) ReportProgress(fraction float64) {
	pct := int(fraction * 100)
	r.mu.Lock()
	skip := pct <= r.last
	r.last = max(r.last, pct)
	r.mu.Unlock()
	if skip {
		return
	}
	r.emit("progress", JSONProgressData{Fraction: fraction})
}

func (r *JSONReporter) ReportResult(res *scan.Result) {
	r.emit("result", JSONResultData{
		ID:        res.ID.String(),
		Video:     res.Video,
		Threshold: res.Threshold,
		Offsets:   res.Offsets(),
		Matches:   res.Matches,
		ElapsedMS: res.Elapsed.Milliseconds(),
	})
}

func (r *JSONReporter) ReportError(stage string, err error) {
	r.emit("error", JSONErrorData{Stage: stage, Message: err.Error()})
}
