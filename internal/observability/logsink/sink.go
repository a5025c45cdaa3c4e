// Package logsink is the shell's application log: severity filtering, console output
// through slog, a bounded history and a live stream of entries.
package logsink

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/target/mmk-ui-shell/internal/broadcast"
	"github.com/target/mmk-ui-shell/internal/domain/logging"
	"github.com/target/mmk-ui-shell/internal/ports"
)

// DefaultCapacity is the history size used when Options.Capacity is unset.
const DefaultCapacity = 200

var _ ports.Logger = (*Sink)(nil)

// Options configures a Sink.
type Options struct {
	// Console receives every emitted entry. Defaults to slog.Default().
	Console *slog.Logger
	// Capacity is the history size. Nil means DefaultCapacity; zero keeps no history.
	Capacity *int
	// Level is the initial threshold.
	Level logging.Level
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Sink records log entries.
type Sink struct {
	mu      sync.Mutex
	level   logging.Level
	ring    *Ring[logging.Entry]
	hub     *broadcast.Hub[logging.Entry]
	console *slog.Logger
	now     func() time.Time
}

// New constructs a Sink.
func New(opts Options) *Sink {
	capacity := DefaultCapacity
	if opts.Capacity != nil {
		capacity = *opts.Capacity
	}
	console := opts.Console
	if console == nil {
		console = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Sink{
		level:   opts.Level,
		ring:    NewRing[logging.Entry](capacity),
		hub:     broadcast.NewHub[logging.Entry](),
		console: console,
		now:     now,
	}
}

// Log records message at level. An empty origin is replaced by the calling function's name when it can be determined.
func (s *Sink) Log(message string, level logging.Level, origin string, params ...any) {
	s.log(message, level, origin, params)
}

// Error logs at Errors.
func (s *Sink) Error(message, origin string, params ...any) {
	s.log(message, logging.Errors, origin, params)
}

// Warning logs at Warnings.
func (s *Sink) Warning(message, origin string, params ...any) {
	s.log(message, logging.Warnings, origin, params)
}

// Info logs at Info.
func (s *Sink) Info(message, origin string, params ...any) {
	s.log(message, logging.Info, origin, params)
}

// Verbose logs at Verbose.
func (s *Sink) Verbose(message, origin string, params ...any) {
	s.log(message, logging.Verbose, origin, params)
}

// log must be called directly from an exported method so the caller frame depth is fixed.
func (s *Sink) log(message string, level logging.Level, origin string, params []any) {
	if !s.ShouldLog(level) {
		return
	}
	if origin == "" {
		// runtime.Caller(0)=callerName, 1=log, 2=exported method, 3=its caller
		origin = callerName(3)
	}

	entry := logging.Entry{
		Time:    s.now(),
		Level:   level,
		Origin:  origin,
		Message: message,
		Params:  normalizeParams(params),
	}

	s.console.Log(context.Background(), level.SlogLevel(), message,
		slog.String("origin", origin),
		slog.String("metadata", entry.Metadata()),
		slog.Any("params", entry.Params),
	)

	s.mu.Lock()
	s.ring.Add(entry)
	s.mu.Unlock()

	s.hub.Publish(entry)
}

// ShouldLog reports whether level passes the current threshold.
func (s *Sink) ShouldLog(level logging.Level) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level.Allows(level)
}

// Level returns the current threshold.
func (s *Sink) Level() logging.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// SetLevel changes the threshold.
func (s *Sink) SetLevel(level logging.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

// Entries returns the history oldest first.
func (s *Sink) Entries() []logging.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Items()
}

// CacheSize returns the history capacity.
func (s *Sink) CacheSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Cap()
}

// SetCacheSize resizes the history, keeping the most recent entries that fit.
func (s *Sink) SetCacheSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring.Resize(size)
}

// Subscribe streams entries logged after the call. cancel releases the subscription.
func (s *Sink) Subscribe(buffer int) (<-chan logging.Entry, func()) {
	return s.hub.Subscribe(buffer)
}

// Close ends all subscriptions.
func (s *Sink) Close() {
	s.hub.Close()
}

// callerName returns the short function name skip frames up, or "".
func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// normalizeParams keeps params JSON-friendly. Errors become their message.
func normalizeParams(params []any) []any {
	if len(params) == 0 {
		return nil
	}
	out := make([]any, len(params))
	for i, p := range params {
		if err, ok := p.(error); ok && err != nil {
			out[i] = err.Error()
			continue
		}
		out[i] = p
	}
	return out
}
