// =============================================================================
// transferfix - Audit Log
// =============================================================================
//
// Every pipeline stage reports what it changed through a Sink. The audit log
// is the business record of a run and is kept apart from operational logging
// (logrus): a reviewer reads log.txt to see which rows were rewritten and why.
//
// ENTRY FORMAT (log.txt):
//
//   ##########################################
//   #                                        #
//   #             UPDATE HEADER              #
//   #                                        #
//   ##########################################
//
//   3 [KUNDENR] 123 -> 00000000123
//
//
//
// A stage that changed nothing writes the line "No change made", so the log
// always shows that the stage ran.
//
// =============================================================================

package audit

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// NoChange is written for an entry without change descriptions.
const NoChange = "No change made"

// boxWidth is the inner width of the boxed heading.
const boxWidth = 40

// Sink receives one entry per pipeline stage.
type Sink interface {
	Record(heading string, changes []string)
}

// Entry is a single recorded stage.
type Entry struct {
	Heading string
	Changes []string
}

// =============================================================================
// IN-MEMORY LOG
// =============================================================================

// Log keeps entries in memory, in the order they were recorded.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Record implements Sink.
func (l *Log) Record(heading string, changes []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		Heading: heading,
		Changes: append([]string(nil), changes...),
	})
}

// Entries returns a copy of the recorded entries.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Find returns the first entry with the given heading.
func (l *Log) Find(heading string) (Entry, bool) {
	for _, e := range l.Entries() {
		if e.Heading == heading {
			return e, true
		}
	}
	return Entry{}, false
}

// Render returns every entry in log.txt format.
func (l *Log) Render() string {
	var builder strings.Builder
	for _, e := range l.Entries() {
		builder.WriteString(FormatEntry(e.Heading, e.Changes))
	}
	return builder.String()
}

// =============================================================================
// WRITER SINK
// =============================================================================

// WriterSink appends each entry to w as soon as it is recorded, so a run that
// aborts still leaves the stages that completed in the log.
type WriterSink struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Record implements Sink. The first write error is kept and later entries
// are dropped; check Err once the run is over.
func (s *WriterSink) Record(heading string, changes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	if _, err := io.WriteString(s.w, FormatEntry(heading, changes)); err != nil {
		s.err = fmt.Errorf("failed to write audit entry %q: %w", heading, err)
	}
}

// Err returns the first write error.
func (s *WriterSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// =============================================================================
// COMBINATORS
// =============================================================================

type multiSink []Sink

func (m multiSink) Record(heading string, changes []string) {
	for _, s := range m {
		s.Record(heading, changes)
	}
}

// Multi returns a sink that forwards every entry to each of sinks.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type discard struct{}

func (discard) Record(string, []string) {}

// Discard is a sink that drops everything.
var Discard Sink = discard{}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatHeading renders the boxed heading of an entry. Headings longer than
// the box are written unpadded.
func FormatHeading(heading string) string {
	left := (boxWidth - len(heading)) / 2
	if left < 0 {
		left = 0
	}
	right := boxWidth - len(heading) - left
	if right < 0 {
		right = 0
	}

	border := strings.Repeat("#", boxWidth+2)
	blank := "#" + strings.Repeat(" ", boxWidth) + "#"
	title := "#" + strings.Repeat(" ", left) + heading + strings.Repeat(" ", right) + "#"

	return strings.Join([]string{border, blank, title, blank, border}, "\n") + "\n"
}

// FormatEntry renders a heading followed by its change lines.
func FormatEntry(heading string, changes []string) string {
	var builder strings.Builder
	builder.WriteString(FormatHeading(heading))
	if len(changes) == 0 {
		builder.WriteString("\n" + NoChange)
	}
	for _, change := range changes {
		builder.WriteString("\n" + change)
	}
	builder.WriteString("\n\n\n")
	return builder.String()
}

// FormatChange renders a cell rewrite as "<row> [<column>] <before> -> <after>".
// Empty values are shown as ''.
func FormatChange(row int, column, before, after string) string {
	return fmt.Sprintf("%d [%s] %s -> %s", row, column, quoteEmpty(before), quoteEmpty(after))
}

func quoteEmpty(s string) string {
	if s == "" {
		return "''"
	}
	return s
}
