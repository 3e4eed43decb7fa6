// Package client provides the high-level Telnet client API: connect,
// line-oriented writes, and timeout-governed reads over the protocol
// engine in package telnet.
package client

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mercer/tern/network"
	"github.com/mercer/tern/telnet"
)

// DefaultTimeout governs read cycles when the caller passes none.
const DefaultTimeout = 3 * time.Second

// Stats holds client counters for monitoring.
type Stats struct {
	Connected    bool
	BytesRead    uint64
	BytesWritten uint64
	Reads        uint64
	LinesSent    uint64
	LastReadTime time.Time
}

// Client owns a telnet handler over a transport. One logical reader:
// Read and Expect must stay on a single goroutine. SendLine, Interrupt,
// Stats, and Close are safe to call while that goroutine is reading;
// the handler serializes outbound sequences.
type Client struct {
	handler   *telnet.Handler
	transport telnet.Transport

	// Compiled expect patterns, shared across calls.
	patterns *lru.Cache[string, *regexp.Regexp]

	reads        atomic.Uint64
	linesSent    atomic.Uint64
	lastReadTime atomic.Int64 // Unix nano

	mu     sync.Mutex
	closed bool
}

// New creates a client over an existing transport. The transport becomes
// exclusively owned by the client's handler.
func New(t telnet.Transport, cfg telnet.Config) *Client {
	cache, _ := lru.New[string, *regexp.Regexp](100)
	return &Client{
		handler:   telnet.NewHandler(t, cfg),
		transport: t,
		patterns:  cache,
	}
}

// Dial connects to a Telnet server and returns a ready client.
func Dial(address string, cfg telnet.Config) (*Client, error) {
	t, err := network.Dial(address)
	if err != nil {
		return nil, err
	}
	return New(t, cfg), nil
}

// SendLine writes a line of input followed by CRLF, escaping any literal
// 255 bytes for the wire.
func (c *Client) SendLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("client closed")
	}
	if err := c.handler.Send([]byte(line + "\r\n")); err != nil {
		return err
	}
	c.linesSent.Add(1)
	return nil
}

// Read runs one read session: it keeps polling while bytes are pending or
// either timeout window is open, and returns whatever printable payload
// accumulated. An empty string with a nil error simply means the server
// stayed quiet. Cancelling the context sends IAC IP to the server before
// returning.
func (c *Client) Read(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var out bytes.Buffer
	w := telnet.NewWindow(time.Now(), timeout)
	for c.handler.KeepWaiting(ctx, &w) {
		if err := ctx.Err(); err != nil {
			c.handler.Interrupt()
			return out.String(), err
		}
		if c.handler.ParseStep(&out) {
			now := time.Now()
			w.MarkSeen(now)
			c.lastReadTime.Store(now.UnixNano())
		}
	}
	c.reads.Add(1)
	return out.String(), nil
}

// Expect reads until the accumulated response matches pattern or the
// deadline passes. The matched response (everything read so far) is
// returned; a miss returns what was read alongside an error.
func (c *Client) Expect(ctx context.Context, pattern string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	re, err := c.compile(pattern)
	if err != nil {
		return "", err
	}

	var acc bytes.Buffer
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return acc.String(), fmt.Errorf("timed out waiting for %q", pattern)
		}

		chunk, err := c.Read(ctx, remaining)
		acc.WriteString(chunk)
		if err != nil {
			return acc.String(), err
		}
		if re.MatchString(acc.String()) {
			return acc.String(), nil
		}
	}
}

// Login performs the conventional username/password exchange: wait for a
// ":"-terminated prompt, send the username, wait again, send the password.
func (c *Client) Login(ctx context.Context, username, password string, timeout time.Duration) error {
	if _, err := c.Expect(ctx, ":", timeout); err != nil {
		return fmt.Errorf("no login prompt: %w", err)
	}
	if err := c.SendLine(username); err != nil {
		return err
	}
	if _, err := c.Expect(ctx, ":", timeout); err != nil {
		return fmt.Errorf("no password prompt: %w", err)
	}
	return c.SendLine(password)
}

// Interrupt sends IAC IP to the server.
func (c *Client) Interrupt() {
	c.handler.Interrupt()
}

// Stats returns current client counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	connected := !closed
	if done := c.Done(); done != nil {
		select {
		case <-done:
			// Peer hung up even though Close was never called.
			connected = false
		default:
		}
	}

	s := Stats{
		Connected: connected,
		Reads:     c.reads.Load(),
		LinesSent: c.linesSent.Load(),
	}
	if nano := c.lastReadTime.Load(); nano != 0 {
		s.LastReadTime = time.Unix(0, nano)
	}
	if tcp, ok := c.transport.(*network.TCPTransport); ok {
		s.BytesRead = tcp.BytesRead()
		s.BytesWritten = tcp.BytesWritten()
	}
	return s
}

// Done exposes the transport's disconnect signal when it has one.
func (c *Client) Done() <-chan struct{} {
	if tcp, ok := c.transport.(*network.TCPTransport); ok {
		return tcp.Done()
	}
	return nil
}

// Close disposes the client; the handler closes its transport.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.handler.Close()
}

// compile returns a cached compiled pattern, compiling on first use.
func (c *Client) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := c.patterns.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad expect pattern %q: %w", pattern, err)
	}
	c.patterns.Add(pattern, re)
	return re, nil
}
