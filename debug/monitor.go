// Package debug provides runtime monitoring and diagnostics.
package debug

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mercer/tern/client"
)

// Enabled returns true if debug mode is active (TERN_DEBUG=1).
func Enabled() bool {
	return os.Getenv("TERN_DEBUG") == "1"
}

// StatsSource yields current client counters, or nil when disconnected.
type StatsSource func() *client.Stats

// Monitor periodically logs client statistics when debug mode is enabled.
type Monitor struct {
	source   StatsSource
	interval time.Duration
	ctx      context.Context
	logger   *log.Logger
}

// NewMonitor creates a new monitor over the given stats source.
// If debug mode is not enabled, returns nil.
func NewMonitor(ctx context.Context, source StatsSource) *Monitor {
	if !Enabled() {
		return nil
	}

	return &Monitor{
		source:   source,
		interval: 5 * time.Second,
		ctx:      ctx,
		logger:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

// Start begins the monitoring loop in a goroutine.
func (m *Monitor) Start() {
	if m == nil {
		return
	}
	go m.run()
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Println("[DEBUG] Monitor started")

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Println("[DEBUG] Monitor stopped")
			return
		case <-ticker.C:
			m.logStats()
		}
	}
}

func (m *Monitor) logStats() {
	s := m.source()
	if s == nil {
		m.logger.Println("[DEBUG] no connection")
		return
	}

	lastRead := "never"
	if !s.LastReadTime.IsZero() {
		lastRead = fmt.Sprintf("%v ago", time.Since(s.LastReadTime).Round(time.Second))
	}

	m.logger.Printf("[DEBUG] conn=%v read=%d written=%d cycles=%d sent=%d lastRead=%s",
		s.Connected, s.BytesRead, s.BytesWritten, s.Reads, s.LinesSent, lastRead)
}
