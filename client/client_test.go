package client

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/mercer/tern/network"
	"github.com/mercer/tern/telnet"
)

// fastConfig keeps read sessions short so tests stay quick.
func fastConfig() telnet.Config {
	return telnet.Config{Wait: telnet.YieldStrategy{}}
}

func TestReadCollectsResponse(t *testing.T) {
	mock := telnet.NewMockTransport([]byte("login: ")...)
	c := New(mock, fastConfig())
	defer c.Close()

	got, err := c.Read(context.Background(), 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if got != "login: " {
		t.Errorf("unexpected response %q", got)
	}
}

func TestReadAnswersNegotiationInline(t *testing.T) {
	mock := telnet.NewMockTransport()
	mock.Feed(telnet.CmdIAC, telnet.CmdDO, telnet.OptSuppressGoAhead)
	mock.Feed([]byte("ready\r\n")...)
	c := New(mock, fastConfig())
	defer c.Close()

	got, err := c.Read(context.Background(), 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if got != "ready\r\n" {
		t.Errorf("unexpected response %q", got)
	}
	expected := []byte{telnet.CmdIAC, telnet.CmdWILL, telnet.OptSuppressGoAhead}
	if !bytes.Equal(mock.Writes(), expected) {
		t.Errorf("want %v written, got %v", expected, mock.Writes())
	}
}

func TestReadQuietServer(t *testing.T) {
	mock := telnet.NewMockTransport()
	c := New(mock, fastConfig())
	defer c.Close()

	got, err := c.Read(context.Background(), 30*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("expected empty response, got %q", got)
	}
}

func TestReadCancellationSendsInterrupt(t *testing.T) {
	mock := telnet.NewMockTransport()
	c := New(mock, fastConfig())
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Read(ctx, time.Minute)
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
	expected := []byte{telnet.CmdIAC, telnet.CmdIP}
	if !bytes.Equal(mock.Writes(), expected) {
		t.Errorf("cancellation should send IAC IP, got %v", mock.Writes())
	}
}

func TestSendLineAppendsCRLFAndEscapes(t *testing.T) {
	mock := telnet.NewMockTransport()
	c := New(mock, fastConfig())
	defer c.Close()

	if err := c.SendLine("look"); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(mock.Writes(), []byte("look\r\n")) {
		t.Errorf("unexpected writes %v", mock.Writes())
	}

	mock.ResetWrites()
	if err := c.SendLine(string([]byte{0xFF, 'x'})); err != nil {
		t.Fatal(err)
	}
	expected := []byte{0xFF, 0xFF, 'x', '\r', '\n'}
	if !bytes.Equal(mock.Writes(), expected) {
		t.Errorf("want %v, got %v", expected, mock.Writes())
	}
}

func TestExpectMatchesPattern(t *testing.T) {
	mock := telnet.NewMockTransport([]byte("Username: ")...)
	c := New(mock, fastConfig())
	defer c.Close()

	got, err := c.Expect(context.Background(), `Username:\s*$`, 200*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Username:") {
		t.Errorf("unexpected match %q", got)
	}
}

func TestExpectTimesOut(t *testing.T) {
	mock := telnet.NewMockTransport([]byte("nothing useful")...)
	c := New(mock, fastConfig())
	defer c.Close()

	got, err := c.Expect(context.Background(), "password", 40*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !strings.Contains(got, "nothing useful") {
		t.Errorf("partial read should be returned, got %q", got)
	}
}

func TestExpectBadPattern(t *testing.T) {
	c := New(telnet.NewMockTransport(), fastConfig())
	defer c.Close()

	if _, err := c.Expect(context.Background(), "(", time.Millisecond); err == nil {
		t.Fatal("expected a compile error")
	}
}

func TestLogin(t *testing.T) {
	mock := telnet.NewMockTransport([]byte("login: ")...)
	c := New(mock, fastConfig())
	defer c.Close()

	// Script the password prompt once the username goes out.
	go func() {
		time.Sleep(30 * time.Millisecond)
		mock.Feed([]byte("password: ")...)
	}()

	if err := c.Login(context.Background(), "guest", "secret", 500*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(mock.Writes(), []byte("guest\r\n")) {
		t.Error("username was not sent")
	}
	if !bytes.Contains(mock.Writes(), []byte("secret\r\n")) {
		t.Error("password was not sent")
	}
}

func TestCloseDisposesTransportOnce(t *testing.T) {
	mock := telnet.NewMockTransport()
	c := New(mock, fastConfig())

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if !mock.Closed() {
		t.Error("close must dispose the transport")
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.SendLine("x"); err == nil {
		t.Error("send after close should fail")
	}
}

func TestConcurrentSendKeepsRepliesIntact(t *testing.T) {
	mock := telnet.NewMockTransport()
	const requests = 2000
	for i := 0; i < requests; i++ {
		mock.Feed(telnet.CmdIAC, telnet.CmdDO, telnet.OptSuppressGoAhead)
	}
	c := New(mock, fastConfig())
	defer c.Close()

	// Hammer user lines from another goroutine while the read loop is
	// busy answering negotiation requests.
	stop := make(chan struct{})
	spammed := make(chan struct{})
	go func() {
		defer close(spammed)
		for {
			select {
			case <-stop:
				return
			default:
				c.SendLine("a")
			}
		}
	}()

	for mock.Available() > 0 {
		if _, err := c.Read(context.Background(), 20*time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	<-spammed

	// The spammed line carries no 255 bytes, so every IAC on the wire
	// must open a complete WILL SGA reply.
	w := mock.Writes()
	for i := 0; i < len(w); i++ {
		if w[i] != telnet.CmdIAC {
			continue
		}
		if i+2 >= len(w) || w[i+1] != telnet.CmdWILL || w[i+2] != telnet.OptSuppressGoAhead {
			t.Fatalf("negotiation reply torn at offset %d: % x", i, w[i:min(i+7, len(w))])
		}
		i += 2
	}
}

func TestStatsReflectsPeerHangup(t *testing.T) {
	local, remote := net.Pipe()
	c := New(network.NewTCPTransport(local), fastConfig())
	defer c.Close()

	if !c.Stats().Connected {
		t.Fatal("expected connected before hangup")
	}

	remote.Close()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("transport never noticed the hangup")
	}

	if c.Stats().Connected {
		t.Error("stats should report disconnected after the peer hangs up")
	}
}

func TestStats(t *testing.T) {
	mock := telnet.NewMockTransport([]byte("hi")...)
	c := New(mock, fastConfig())
	defer c.Close()

	c.Read(context.Background(), 20*time.Millisecond)
	c.SendLine("hello")

	s := c.Stats()
	if !s.Connected {
		t.Error("expected connected")
	}
	if s.Reads != 1 {
		t.Errorf("expected 1 read cycle, got %d", s.Reads)
	}
	if s.LinesSent != 1 {
		t.Errorf("expected 1 line sent, got %d", s.LinesSent)
	}
	if s.LastReadTime.IsZero() {
		t.Error("expected a last-read timestamp")
	}
}
