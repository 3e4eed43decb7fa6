package telnet

import "sync"

// NoByte is the sentinel returned by Transport.ReadByte when nothing is
// buffered. It is never an error; the poll loop just comes back later.
const NoByte = -1

// Transport is the byte-stream abstraction the handler drives.
// A Transport is exclusively owned by one Handler: closing the handler
// closes the transport, and no other reader may drain it in parallel.
type Transport interface {
	// Available returns the number of bytes ready to read without blocking.
	Available() int

	// ReadByte returns the next byte (0-255), or NoByte if none is ready.
	ReadByte() int

	// WriteByte sends a single byte to the peer.
	WriteByte(b byte) error

	// Close releases the underlying stream.
	Close() error
}

// MockTransport is an in-memory Transport for tests and offline replay.
// Inbound bytes are scripted with Feed; outbound bytes are recorded.
// Safe for a feeder goroutine to run alongside the single reader.
type MockTransport struct {
	mu     sync.Mutex
	in     []byte
	pos    int
	writes []byte
	closed bool
}

// NewMockTransport creates a mock with the given initial inbound bytes.
func NewMockTransport(in ...byte) *MockTransport {
	return &MockTransport{in: in}
}

// Feed appends bytes to the inbound script.
func (m *MockTransport) Feed(b ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.in = append(m.in, b...)
}

// Available reports how many scripted bytes remain unread.
func (m *MockTransport) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.in) - m.pos
}

// ReadByte pops the next scripted byte, or NoByte when exhausted.
func (m *MockTransport) ReadByte() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.in) {
		return NoByte
	}
	b := m.in[m.pos]
	m.pos++
	return int(b)
}

// WriteByte records an outbound byte.
func (m *MockTransport) WriteByte(b byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, b)
	return nil
}

// Writes returns everything written so far.
func (m *MockTransport) Writes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.writes...)
}

// ResetWrites clears the recorded outbound bytes.
func (m *MockTransport) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
