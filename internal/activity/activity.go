// Package activity keeps the bounded, newest-first trail of human-readable
// events shown to the operator: command outcomes, warnings, and selections.
//
// The log is append-only and never cleared. Once it holds Capacity entries,
// every append silently evicts the oldest one.
package activity

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries retained when none is configured.
const DefaultCapacity = 50

// Entry is one recorded event.
type Entry struct {
	Sequence uint64
	Time     time.Time
	Message  string
}

// String renders the entry as "[HH:MM:SS] message" in local time.
func (e Entry) String() string {
	return "[" + e.Time.Local().Format(time.TimeOnly) + "] " + e.Message
}

// Sink receives every appended entry.
type Sink interface {
	Append(Entry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry)

func (f SinkFunc) Append(e Entry) { f(e) }

// Log is a bounded activity trail safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	capacity int
	buffer   []Entry
	nextSeq  uint64
	sinks    []Sink
	now      func() time.Time
}

// Option customizes a Log.
type Option func(*Log)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a log retaining at most capacity entries.
func New(capacity int, opts ...Option) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Log{capacity: capacity, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddSink wires an additional sink that receives every appended entry.
func (l *Log) AddSink(sink Sink) {
	if l == nil || sink == nil {
		return
	}
	l.mu.Lock()
	l.sinks = append(l.sinks, sink)
	l.mu.Unlock()
}

// Append records message with the current time and returns the formatted entry.
func (l *Log) Append(message string) string {
	l.mu.Lock()
	l.nextSeq++
	entry := Entry{Sequence: l.nextSeq, Time: l.now(), Message: message}
	if len(l.buffer) == l.capacity {
		copy(l.buffer, l.buffer[1:])
		l.buffer = l.buffer[:l.capacity-1]
	}
	l.buffer = append(l.buffer, entry)
	sinks := append([]Sink(nil), l.sinks...)
	l.mu.Unlock()

	for _, sink := range sinks {
		sink.Append(entry)
	}
	return entry.String()
}

// Entries returns the formatted entries, newest first.
func (l *Log) Entries() []string {
	records := l.Records()
	out := make([]string, len(records))
	for i, entry := range records {
		out[i] = entry.String()
	}
	return out
}

// Records returns the retained entries, newest first.
func (l *Log) Records() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.buffer))
	for i := range l.buffer {
		out[i] = l.buffer[len(l.buffer)-1-i]
	}
	return out
}

// Since returns retained entries with a sequence greater than seq, oldest
// first, for callers that replay what a single operation produced.
func (l *Log) Since(seq uint64) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, entry := range l.buffer {
		if entry.Sequence > seq {
			out = append(out, entry)
		}
	}
	return out
}

// LastSequence returns the sequence of the most recent append, or zero.
func (l *Log) LastSequence() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextSeq
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffer)
}

// Capacity returns the retention bound.
func (l *Log) Capacity() int {
	return l.capacity
}
