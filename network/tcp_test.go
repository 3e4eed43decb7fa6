package network

import (
	"bytes"
	"net"
	"testing"
	"time"
)

// waitAvailable polls until n bytes are buffered or the deadline passes.
func waitAvailable(t *testing.T, tr *TCPTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for tr.Available() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d bytes, have %d", n, tr.Available())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTCPTransportReadWrite(t *testing.T) {
	server, client := net.Pipe()
	tr := NewTCPTransport(client)
	defer tr.Close()

	go server.Write([]byte("abc"))

	waitAvailable(t, tr, 3)
	if tr.Available() != 3 {
		t.Errorf("expected 3 available, got %d", tr.Available())
	}

	got := []byte{byte(tr.ReadByte()), byte(tr.ReadByte()), byte(tr.ReadByte())}
	if !bytes.Equal(got, []byte("abc")) {
		t.Errorf("unexpected bytes %v", got)
	}
	if tr.ReadByte() != -1 {
		t.Error("drained transport should return the no-byte sentinel")
	}
	if tr.BytesRead() != 3 {
		t.Errorf("expected 3 bytes read, got %d", tr.BytesRead())
	}

	// Writes land on the server side.
	readDone := make(chan byte, 1)
	go func() {
		buf := make([]byte, 1)
		server.Read(buf)
		readDone <- buf[0]
	}()
	if err := tr.WriteByte('z'); err != nil {
		t.Fatal(err)
	}
	select {
	case b := <-readDone:
		if b != 'z' {
			t.Errorf("server read %q", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the written byte")
	}
}

func TestTCPTransportPeerClose(t *testing.T) {
	server, client := net.Pipe()
	tr := NewTCPTransport(client)
	defer tr.Close()

	server.Close()
	select {
	case <-tr.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("transport did not notice peer close")
	}
}

func TestTCPTransportCloseIdempotent(t *testing.T) {
	_, client := net.Pipe()
	tr := NewTCPTransport(client)

	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
}
