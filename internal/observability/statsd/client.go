// Package statsd emits DogStatsD-style metric lines over UDP.
package statsd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sink receives counters, gauges and timings.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Discard is a Sink that drops everything.
type Discard struct{}

func (Discard) Count(string, int64, map[string]string)           {}
func (Discard) Gauge(string, float64, map[string]string)         {}
func (Discard) Timing(string, time.Duration, map[string]string) {}

// Config describes the StatsD endpoint.
type Config struct {
	Address string // host:port of the agent
	Prefix  string // prepended to every metric name
	// Tags are attached to every line. Per-call tags win on conflict.
	Tags   map[string]string
	Logger *slog.Logger
}

// Client writes one datagram per metric. It is safe for concurrent use.
type Client struct {
	prefix string
	tags   map[string]string
	logger *slog.Logger

	mu   sync.Mutex
	conn net.Conn
}

var (
	_ Sink = (*Client)(nil)
	_ Sink = Discard{}
)

// NewClient dials the agent. UDP dialing only resolves the address, so an absent
// agent is not an error; lines are dropped until one listens.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return nil, fmt.Errorf("statsd address is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := (&net.Dialer{}).DialContext(dialCtx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", address, err)
	}

	tags := make(map[string]string, len(cfg.Tags))
	for k, v := range cfg.Tags {
		if k = tagPart(k); k != "" {
			tags[k] = tagPart(v)
		}
	}
	return &Client{
		prefix: metricName(cfg.Prefix),
		tags:   tags,
		logger: logger.With("component", "statsd"),
		conn:   conn,
	}, nil
}

// Count adds value to a counter.
func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.send(name, strconv.FormatInt(value, 10), "c", tags)
}

// Gauge sets a gauge.
func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.send(name, strconv.FormatFloat(value, 'f', -1, 64), "g", tags)
}

// Timing records a duration in milliseconds.
func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	ms := float64(value) / float64(time.Millisecond)
	c.send(name, strconv.FormatFloat(ms, 'f', -1, 64), "ms", tags)
}

// Close releases the socket. Later calls are dropped.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) send(name, value, kind string, tags map[string]string) {
	line := c.Line(name, value, kind, tags)
	if line == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if _, err := c.conn.Write([]byte(line)); err != nil {
		c.logger.Debug("statsd write failed", "error", err)
	}
}

// Line renders one metric as "<prefix>.<name>:<value>|<kind>|#k:v,..." with tags sorted.
// It returns "" when name is empty after cleaning.
func (c *Client) Line(name, value, kind string, tags map[string]string) string {
	n := metricName(name)
	if n == "" {
		return ""
	}
	if c.prefix != "" {
		n = c.prefix + "." + n
	}

	merged := make(map[string]string, len(c.tags)+len(tags))
	for k, v := range c.tags {
		merged[k] = v
	}
	for k, v := range tags {
		if k = tagPart(k); k != "" {
			merged[k] = tagPart(v)
		}
	}

	var b strings.Builder
	b.WriteString(n)
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteByte('|')
	b.WriteString(kind)
	if len(merged) == 0 {
		return b.String()
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("|#")
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		if v := merged[k]; v != "" {
			b.WriteByte(':')
			b.WriteString(v)
		}
	}
	return b.String()
}

// metricName lower-cases name, maps characters outside [a-z0-9_.-] to '_',
// and drops empty dot segments.
func metricName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, strings.TrimSpace(name))

	parts := strings.Split(cleaned, ".")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}

// tagPart strips the characters that delimit the tag section.
func tagPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '|', ',', '#', ':', '\n':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}
