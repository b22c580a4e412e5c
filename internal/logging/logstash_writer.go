package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap/zapcore"
)

var errRetryCooldown = errors.New("logstash: retry cooldown in effect")

// LogstashSink is a zapcore.WriteSyncer that ships JSON lines to a Logstash tcp
// input. Entries are dropped, never blocked on, while the endpoint is down.
type LogstashSink struct {
	addr          string
	dialTimeout   time.Duration
	writeTimeout  time.Duration
	retryInterval time.Duration
	dial          func(network, addr string, timeout time.Duration) (net.Conn, error)

	mu        sync.Mutex
	conn      net.Conn
	nextRetry time.Time
	closed    bool

	dropped atomic.Int64
}

var _ zapcore.WriteSyncer = (*LogstashSink)(nil)

type SinkOption func(*LogstashSink)

// WithDialTimeout defaults to 2s.
func WithDialTimeout(d time.Duration) SinkOption {
	return func(s *LogstashSink) { s.dialTimeout = d }
}

// WithWriteTimeout defaults to 1s.
func WithWriteTimeout(d time.Duration) SinkOption {
	return func(s *LogstashSink) { s.writeTimeout = d }
}

// WithRetryInterval sets the cool-down after a failed dial or write. Defaults to 5s.
func WithRetryInterval(d time.Duration) SinkOption {
	return func(s *LogstashSink) { s.retryInterval = d }
}

func NewLogstashSink(addr string, opts ...SinkOption) (*LogstashSink, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("logstash: empty address")
	}
	s := &LogstashSink{
		addr:          addr,
		dialTimeout:   2 * time.Second,
		writeTimeout:  time.Second,
		retryInterval: 5 * time.Second,
		dial:          net.DialTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *LogstashSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	line := p
	if p[len(p)-1] != '\n' {
		line = make([]byte, len(p)+1)
		copy(line, p)
		line[len(p)] = '\n'
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.ErrClosedPipe
	}
	if err := s.connectLocked(); err != nil {
		s.dropped.Add(1)
		return len(p), nil
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := s.conn.Write(line); err != nil {
		s.dropped.Add(1)
		s.resetLocked()
		s.backoffLocked()
	}
	return len(p), nil
}

// Sync is a no-op; writes go straight to the socket.
func (s *LogstashSink) Sync() error {
	return nil
}

// Dropped counts entries discarded while Logstash was unreachable.
func (s *LogstashSink) Dropped() int64 {
	return s.dropped.Load()
}

func (s *LogstashSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.resetLocked()
}

func (s *LogstashSink) connectLocked() error {
	if s.conn != nil {
		return nil
	}
	if !s.nextRetry.IsZero() && time.Now().Before(s.nextRetry) {
		return errRetryCooldown
	}
	conn, err := s.dial("tcp", s.addr, s.dialTimeout)
	if err != nil {
		s.backoffLocked()
		return err
	}
	s.conn = conn
	s.nextRetry = time.Time{}
	return nil
}

func (s *LogstashSink) resetLocked() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *LogstashSink) backoffLocked() {
	if s.retryInterval <= 0 {
		s.nextRetry = time.Time{}
		return
	}
	s.nextRetry = time.Now().Add(s.retryInterval)
}
