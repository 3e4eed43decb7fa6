// Package telnet implements the byte-level Telnet protocol engine: a
// polling state machine that separates IAC command framing from printable
// payload, answers a minimal subset of RFC 854/1091/1079 negotiation, and
// decides under a dual-timeout policy how long a read session stays open.
package telnet

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// DefaultTerminalType is reported in TERMINAL-TYPE subnegotiation.
const DefaultTerminalType = "VT100"

// DefaultTerminalSpeed is reported in TERMINAL-SPEED subnegotiation.
const DefaultTerminalSpeed = "38400,38400"

// maxSubnegPayload bounds the scan for the IAC SE terminator. Servers
// negotiating the options we answer send empty payloads; anything past
// the guard is treated as malformed and refused.
const maxSubnegPayload = 64

// Config carries the injected capabilities and negotiated identity of a
// Handler. The zero value is usable; empty fields fall back to defaults.
type Config struct {
	TerminalType  string
	TerminalSpeed string

	// Wait is the suspension primitive for poll pauses.
	Wait Strategy

	// Notifier receives the bell side effect and diagnostic traces.
	Notifier Notifier

	// OnInterrupt fires when the peer sends IAC IP, letting the session
	// cancel in-flight work cooperatively.
	OnInterrupt func()
}

// Handler drives one Transport. It is stateless between parse calls:
// the output buffer and timeout window are caller-owned and passed in.
// Parsing must stay on a single goroutine, but Send and Interrupt may be
// called while another goroutine is parsing: every outbound sequence is
// serialized behind the write lock, so a negotiation reply can never be
// torn apart by a concurrent line of user input.
type Handler struct {
	transport Transport
	cfg       Config

	wmu sync.Mutex
}

// NewHandler creates a handler that exclusively owns the transport.
func NewHandler(t Transport, cfg Config) *Handler {
	if cfg.TerminalType == "" {
		cfg.TerminalType = DefaultTerminalType
	}
	if cfg.TerminalSpeed == "" {
		cfg.TerminalSpeed = DefaultTerminalSpeed
	}
	if cfg.Wait == nil {
		cfg.Wait = SleepStrategy{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	return &Handler{transport: t, cfg: cfg}
}

// NewHandlerDefault creates a handler with default configuration.
func NewHandlerDefault(t Transport) *Handler {
	return NewHandler(t, Config{})
}

// Close disposes the handler and its transport.
func (h *Handler) Close() error {
	return h.transport.Close()
}

// KeepWaiting reports whether the read session described by w should stay
// open: bytes are pending, or the initial-response window is open, or the
// rolling incremental window is open. The incremental check pauses briefly
// through the configured strategy.
func (h *Handler) KeepWaiting(ctx context.Context, w *Window) bool {
	if ResponsePending(h.transport.Available()) {
		return true
	}
	if w.WaitingForInitial(time.Now()) {
		return true
	}
	return w.WaitingForIncremental(ctx, h.cfg.Wait)
}

// ParseStep consumes at most one leading byte from the transport (plus,
// for IAC sequences, the bytes that sequence requires) and classifies it.
// Printable data lands in out; protocol framing is fully consumed and
// never leaks into the buffer, except the documented IAC IAC escape which
// appends a literal 255. Returns whether a byte was consumed.
func (h *Handler) ParseStep(out *bytes.Buffer) bool {
	b := h.transport.ReadByte()
	if b == NoByte {
		return false
	}

	switch byte(b) {
	case CmdIAC:
		verb := h.transport.ReadByte()
		if verb == NoByte {
			return true
		}
		if byte(verb) == CmdIAC {
			// Escaped literal 255
			out.WriteByte(CmdIAC)
			return true
		}
		h.command(byte(verb))

	case ctrlBell:
		h.cfg.Notifier.Bell()

	case ctrlBackspace:
		// Swallowed. Erasing the previous buffered character would be
		// stricter; the terminal already rendered the erase.

	case ctrlVT, ctrlFF:
		out.WriteByte('\n')

	default:
		out.WriteByte(byte(b))
	}
	return true
}

// command dispatches the verb following an IAC escape.
func (h *Handler) command(verb byte) {
	switch verb {
	case CmdIP:
		h.cfg.Notifier.Trace("telnet: interrupt process received")
		if h.cfg.OnInterrupt != nil {
			h.cfg.OnInterrupt()
		}

	case CmdDONT, CmdWONT:
		// Consume the option byte but never answer: unlisted options
		// default to off, and replying risks an infinite negotiation
		// ping-pong.
		h.transport.ReadByte()

	case CmdDO, CmdWILL:
		h.replyToNegotiation(verb)

	case CmdSB:
		h.subnegotiate()

	default:
		h.cfg.Notifier.Trace("telnet: ignoring command %d", verb)
	}
}

// replyToNegotiation answers a DO or WILL request. Suppress-Go-Ahead and
// Terminal-Type are mirror-agreed; everything else is refused.
func (h *Handler) replyToNegotiation(verb byte) {
	opt := h.transport.ReadByte()
	if opt == NoByte {
		return
	}

	var reply byte
	switch byte(opt) {
	case OptSuppressGoAhead, OptTerminalType:
		if verb == CmdDO {
			reply = CmdWILL
		} else {
			reply = CmdDO
		}
	default:
		if verb == CmdDO {
			reply = CmdWONT
		} else {
			reply = CmdDONT
		}
	}
	h.writeAll(CmdIAC, reply, byte(opt))
}

// subnegotiate handles an IAC SB sequence: option, sub-command, then a
// bounded scan for the IAC SE terminator (IAC IAC unescaped inside the
// payload). A SEND request for Terminal-Type or Terminal-Speed is answered
// with the configured string; any malformed, truncated, or overlong
// sequence is abandoned by refusing the option outright.
func (h *Handler) subnegotiate() {
	opt := h.transport.ReadByte()
	if opt == NoByte {
		return
	}
	sub := h.transport.ReadByte()
	if sub == NoByte {
		h.refuse(byte(opt))
		return
	}

	payload, ok := h.scanToTerminator()
	if !ok || byte(sub) != SubSend {
		h.refuse(byte(opt))
		return
	}
	if len(payload) > 0 {
		h.cfg.Notifier.Trace("telnet: ignoring %d extra subnegotiation bytes for option %d", len(payload), opt)
	}

	switch byte(opt) {
	case OptTerminalType:
		h.sendSubnegotiation(OptTerminalType, h.cfg.TerminalType)
	case OptTerminalSpeed:
		h.sendSubnegotiation(OptTerminalSpeed, h.cfg.TerminalSpeed)
	default:
		h.cfg.Notifier.Trace("telnet: unsupported subnegotiation for option %d", opt)
	}
}

// scanToTerminator reads payload bytes until IAC SE, unescaping IAC IAC.
// It fails on a NoByte mid-sequence, on IAC followed by anything else, or
// once the payload guard is exceeded.
func (h *Handler) scanToTerminator() ([]byte, bool) {
	var payload []byte
	for len(payload) <= maxSubnegPayload {
		b := h.transport.ReadByte()
		if b == NoByte {
			return nil, false
		}
		if byte(b) != CmdIAC {
			payload = append(payload, byte(b))
			continue
		}
		next := h.transport.ReadByte()
		switch {
		case next == NoByte:
			return nil, false
		case byte(next) == CmdSE:
			return payload, true
		case byte(next) == CmdIAC:
			payload = append(payload, CmdIAC)
		default:
			return nil, false
		}
	}
	return nil, false
}

// sendSubnegotiation writes IAC SB <opt> IS <value> IAC SE as one
// sequence so nothing can slip in between the framing bytes.
func (h *Handler) sendSubnegotiation(opt byte, value string) {
	seq := make([]byte, 0, len(value)+6)
	seq = append(seq, CmdIAC, CmdSB, opt, SubIs)
	seq = append(seq, value...)
	seq = append(seq, CmdIAC, CmdSE)
	h.writeAll(seq...)
}

// refuse abandons a negotiation with IAC WONT <opt>.
func (h *Handler) refuse(opt byte) {
	h.writeAll(CmdIAC, CmdWONT, opt)
}

// Interrupt sends IAC IP to the peer. The client layer calls this when a
// read session is cancelled, under either suspension strategy.
func (h *Handler) Interrupt() {
	h.writeAll(CmdIAC, CmdIP)
}

// Send writes application data, escaping any literal 255 as IAC IAC.
// The whole payload goes out under the write lock.
func (h *Handler) Send(p []byte) error {
	h.wmu.Lock()
	defer h.wmu.Unlock()
	for _, b := range p {
		if b == CmdIAC {
			if err := h.transport.WriteByte(CmdIAC); err != nil {
				return err
			}
		}
		if err := h.transport.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// writeAll writes one protocol sequence under the write lock, tracing
// failures instead of surfacing them: negotiation replies are
// best-effort and never abort parsing.
func (h *Handler) writeAll(p ...byte) {
	h.wmu.Lock()
	defer h.wmu.Unlock()
	for _, b := range p {
		if err := h.transport.WriteByte(b); err != nil {
			h.cfg.Notifier.Trace("telnet: write failed: %v", err)
			return
		}
	}
}
