// Package logging defines log severities and entries shared by the log sink and its consumers.
package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Level is an ordinal log severity. Higher values are more permissive.
type Level int

const (
	// None suppresses all output.
	None Level = iota
	// Errors logs errors only.
	Errors
	// Warnings logs errors and warnings.
	Warnings
	// Info logs errors, warnings and informational messages.
	Info
	// Verbose logs everything.
	Verbose
)

var levelNames = map[Level]string{
	None:     "NONE",
	Errors:   "ERRORS",
	Warnings: "WARNINGS",
	Info:     "INFO",
	Verbose:  "VERBOSE",
}

// String returns the upper-case level name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "LEVEL(" + strconv.Itoa(int(l)) + ")"
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= None && l <= Verbose
}

// Allows reports whether a message at level msg passes the threshold l.
// A None threshold allows nothing and a None message is never emitted.
func (l Level) Allows(msg Level) bool {
	if l == None || msg == None {
		return false
	}
	return msg <= l
}

// SlogLevel maps l onto the slog channel used for console output.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case Errors:
		return slog.LevelError
	case Warnings:
		return slog.LevelWarn
	case Info:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// ParseLevel parses a level name (case-insensitive) or its ordinal.
func ParseLevel(s string) (Level, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(v); err == nil {
		lvl := Level(n)
		if !lvl.Valid() {
			return None, fmt.Errorf("invalid log level ordinal: %d", n)
		}
		return lvl, nil
	}
	switch v {
	case "none", "off":
		return None, nil
	case "error", "errors":
		return Errors, nil
	case "warn", "warning", "warnings":
		return Warnings, nil
	case "info":
		return Info, nil
	case "verbose", "debug":
		return Verbose, nil
	default:
		return None, fmt.Errorf("invalid log level: %q (valid options: none, errors, warnings, info, verbose)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// MarshalJSON encodes the level as its ordinal, matching the configuration document.
func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(l))), nil
}

// UnmarshalJSON accepts either the ordinal or the level name.
func (l *Level) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		lvl := Level(n)
		if !lvl.Valid() {
			return fmt.Errorf("invalid log level ordinal: %d", n)
		}
		*l = lvl
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("log level must be a number or string: %w", err)
	}
	return l.UnmarshalText([]byte(s))
}
