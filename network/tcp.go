// Package network adapts real TCP connections to the telnet transport
// contract.
package network

import (
	"bytes"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	dialTimeout   = 10 * time.Second
	writeDeadline = 5 * time.Second
)

// TCPTransport adapts a net.Conn to telnet.Transport. A background pump
// goroutine drains the socket into an internal queue so Available and
// ReadByte never block, matching the engine's polling discipline.
type TCPTransport struct {
	conn net.Conn

	mu    sync.Mutex
	queue bytes.Buffer

	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to address and returns a transport ready for a handler.
func Dial(address string) (*TCPTransport, error) {
	conn, err := net.DialTimeout("tcp", address, dialTimeout)
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetKeepAlive(true)
		tcpConn.SetKeepAlivePeriod(30 * time.Second)
	}
	return NewTCPTransport(conn), nil
}

// NewTCPTransport wraps an established connection and starts the pump.
func NewTCPTransport(conn net.Conn) *TCPTransport {
	t := &TCPTransport{
		conn: conn,
		done: make(chan struct{}),
	}
	go t.pump()
	return t
}

// pump moves bytes from the socket into the queue until the connection
// errors or the transport is closed.
func (t *TCPTransport) pump() {
	buf := make([]byte, 4096)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			t.mu.Lock()
			t.queue.Write(buf[:n])
			t.mu.Unlock()
			t.bytesRead.Add(uint64(n))
		}
		if err != nil {
			t.shutdown()
			return
		}
	}
}

// Available returns the number of buffered, unread bytes.
func (t *TCPTransport) Available() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queue.Len()
}

// ReadByte pops the next buffered byte, or telnet.NoByte (-1) if the
// queue is empty.
func (t *TCPTransport) ReadByte() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, err := t.queue.ReadByte()
	if err != nil {
		return -1
	}
	return int(b)
}

// WriteByte sends one byte with a bounded deadline.
func (t *TCPTransport) WriteByte(b byte) error {
	t.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	defer t.conn.SetWriteDeadline(time.Time{})

	n, err := t.conn.Write([]byte{b})
	t.bytesWritten.Add(uint64(n))
	return err
}

// Close shuts the connection down. Safe to call more than once.
func (t *TCPTransport) Close() error {
	t.shutdown()
	return nil
}

func (t *TCPTransport) shutdown() {
	t.closeOnce.Do(func() {
		close(t.done)
		t.conn.Close()
	})
}

// Done is closed once the connection has gone away, either locally via
// Close or because the peer hung up.
func (t *TCPTransport) Done() <-chan struct{} {
	return t.done
}

// BytesRead returns the total bytes pulled off the socket.
func (t *TCPTransport) BytesRead() uint64 {
	return t.bytesRead.Load()
}

// BytesWritten returns the total bytes written to the socket.
func (t *TCPTransport) BytesWritten() uint64 {
	return t.bytesWritten.Load()
}
