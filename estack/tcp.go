//  tcp.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  TCP protocol control blocks. Client-side only: bind, connect, buffered
//  writes with optional zero-copy, graceful close with detached ack drain,
//  abort. No retransmission; loss handling belongs to the peers feeding the
//  stack.

package estack

import (
	"net/netip"

	"gvisor.dev/gvisor/pkg/tcpip/header"
)

type tcpState uint8

const (
	tcpNew tcpState = iota
	tcpBound
	tcpConnecting
	tcpEstablished
	tcpClosing
	tcpClosed
)

const (
	// DefaultSendBufSize is the per-connection send buffer budget.
	DefaultSendBufSize = 64 << 10

	defaultWindow = 0xFFFF

	// synTickLimit expires a connection attempt after this many timer
	// ticks (the pump drives one tick per TimerInterval).
	synTickLimit = 24
	// closeTickLimit gives up waiting for the final acks of a closed
	// connection after this many ticks.
	closeTickLimit = 60
)

type tcpWriteEntry struct {
	data []byte
	sent int
}

// TCPConn is one TCP protocol control block.
type TCPConn struct {
	stack *Stack
	state tcpState

	local  netip.AddrPort
	remote netip.AddrPort

	// OnRecv receives inbound payload chains; ownership of the chunk
	// passes to the callback. A nil chunk signals the peer's FIN.
	OnRecv func(payload *Chunk)
	// OnSent reports bytes newly acknowledged by the peer.
	OnSent func(n int)
	// OnConnected reports the outcome of a Connect.
	OnConnected func(err Error)
	// OnError reports a fatal connection event; the control block is
	// already gone when it runs.
	OnError func(err Error)

	iss        uint32
	sentBytes  int
	ackedBytes int
	rcvNxt     uint32

	writeQ []tcpWriteEntry
	queued int

	sndBufSize int
	synTicks   int
	closeTicks int

	// failNextClose makes the next graceful Close report ErrMem, for
	// exercising the forced-abort path.
	failNextClose bool
}

// NewTCP allocates a TCP control block on the stack.
func (s *Stack) NewTCP() *TCPConn {
	c := &TCPConn{
		stack:      s,
		state:      tcpNew,
		sndBufSize: DefaultSendBufSize,
		iss:        uint32(0x1000 + len(s.tcp)*0x10000),
	}
	s.tcp = append(s.tcp, c)
	return c
}

// LocalAddr returns the bound local address.
func (c *TCPConn) LocalAddr() netip.AddrPort { return c.local }

// RemoteAddr returns the connected remote address.
func (c *TCPConn) RemoteAddr() netip.AddrPort { return c.remote }

// Connected reports whether the connection is established.
func (c *TCPConn) Connected() bool { return c.state == tcpEstablished }

// Bind attaches the connection to a local address. A zero port picks an
// ephemeral one.
func (c *TCPConn) Bind(local netip.AddrPort) Error {
	if c.state != tcpNew && c.state != tcpBound {
		return ErrIsConn
	}
	port := local.Port()
	if port == 0 {
		port = c.stack.ephemeralPort()
	} else if port != c.local.Port() && c.stack.tcpPortInUse(port) {
		return ErrUse
	}
	c.local = netip.AddrPortFrom(local.Addr(), port)
	c.state = tcpBound
	return ErrOK
}

// Connect starts the three-way handshake towards remote. Completion (or
// failure) arrives through OnConnected.
func (c *TCPConn) Connect(remote netip.AddrPort) Error {
	switch c.state {
	case tcpConnecting:
		return ErrAlready
	case tcpEstablished:
		return ErrIsConn
	case tcpClosing, tcpClosed:
		return ErrClosed
	}

	nif := c.stack.route(remote.Addr())
	if nif == nil {
		return ErrRoute
	}
	if !c.local.Addr().IsValid() || c.local.Addr().IsUnspecified() {
		src := nif.addrForFamily(remote.Addr().Is4())
		if !src.IsValid() {
			return ErrRoute
		}
		port := c.local.Port()
		if port == 0 {
			port = c.stack.ephemeralPort()
		}
		c.local = netip.AddrPortFrom(src, port)
	}
	c.remote = remote
	c.state = tcpConnecting
	c.synTicks = 0

	seg := tcpSegment(c.local, c.remote, c.iss, 0,
		header.TCPFlagSyn, defaultWindow, nil)
	if seg == nil {
		c.state = tcpBound
		return ErrMem
	}
	err := nif.output(nif, seg)
	seg.Free()
	if err != ErrOK {
		c.state = tcpBound
		return err
	}
	return ErrOK
}

// SendBufAvailable returns the bytes that Write can still accept.
func (c *TCPConn) SendBufAvailable() int {
	avail := c.sndBufSize - c.queued
	if avail < 0 {
		return 0
	}
	return avail
}

// SendBufSize returns the total send buffer budget.
func (c *TCPConn) SendBufSize() int { return c.sndBufSize }

// SetSendBufSize adjusts the send buffer budget.
func (c *TCPConn) SetSendBufSize(n int) {
	if n > 0 {
		c.sndBufSize = n
	}
}

// Write queues p for transmission. With noCopy the stack keeps the supplied
// slice until the peer acknowledges those bytes; the caller must keep it
// alive and unchanged until then. Without noCopy the bytes are copied in.
func (c *TCPConn) Write(p []byte, noCopy bool) Error {
	if c.state != tcpEstablished {
		return ErrConn
	}
	if len(p) == 0 {
		return ErrOK
	}
	if len(p) > c.SendBufAvailable() {
		return ErrMem
	}
	data := p
	if !noCopy {
		data = append([]byte(nil), p...)
	}
	c.writeQ = append(c.writeQ, tcpWriteEntry{data: data})
	c.queued += len(p)
	return ErrOK
}

// Output flushes queued-but-unsent bytes as segments. The caller must ask
// the pump to recompute the next wake afterwards.
func (c *TCPConn) Output() Error {
	if c.state != tcpEstablished && c.state != tcpClosing {
		return ErrConn
	}
	nif := c.stack.route(c.remote.Addr())
	if nif == nil {
		return ErrRoute
	}
	mss := nif.mtu - ipHeaderSize(c.local.Addr().Is4()) - header.TCPMinimumSize
	if mss <= 0 {
		return ErrIf
	}

	for {
		payload, n := c.gatherUnsent(mss)
		if payload == nil {
			return ErrOK
		}
		seq := c.iss + 1 + uint32(c.sentBytes)
		seg := tcpSegment(c.local, c.remote, seq, c.rcvNxt,
			header.TCPFlagAck|header.TCPFlagPsh, defaultWindow, payload)
		if seg == nil {
			return ErrMem
		}
		c.sentBytes += n
		err := nif.output(nif, seg)
		seg.Free()
		if err != ErrOK {
			return err
		}
	}
}

// gatherUnsent collects up to limit unsent bytes into a zero-copy chain of
// references into the write queue. Returns (nil, 0) when nothing is pending.
func (c *TCPConn) gatherUnsent(limit int) (*Chunk, int) {
	var head *Chunk
	total := 0
	for i := range c.writeQ {
		e := &c.writeQ[i]
		rest := len(e.data) - e.sent
		if rest == 0 {
			continue
		}
		if rest > limit-total {
			rest = limit - total
		}
		if rest == 0 {
			break
		}
		ref := NewRefChunk(e.data[e.sent:e.sent+rest], nil)
		if head == nil {
			head = ref
		} else {
			head.Cat(ref)
		}
		e.sent += rest
		total += rest
	}
	return head, total
}

// Close starts a graceful close: a FIN goes out and the control block stays
// alive, callbacks and all, until the peer acknowledges everything still in
// flight. Returns ErrMem when the stack cannot take the FIN; the caller is
// expected to Abort then.
func (c *TCPConn) Close() Error {
	switch c.state {
	case tcpClosed:
		return ErrOK
	case tcpNew, tcpBound:
		c.release()
		return ErrOK
	}
	if c.failNextClose {
		c.failNextClose = false
		return ErrMem
	}

	if nif := c.stack.route(c.remote.Addr()); nif != nil {
		fin := tcpSegment(c.local, c.remote,
			c.iss+1+uint32(c.sentBytes), c.rcvNxt,
			header.TCPFlagFin|header.TCPFlagAck, defaultWindow, nil)
		if fin != nil {
			nif.output(nif, fin)
			fin.Free()
		}
	}

	if c.ackedBytes >= c.sentBytes && c.queued == 0 {
		c.release()
		return ErrOK
	}
	// Unacknowledged bytes remain; drain them detached.
	c.state = tcpClosing
	c.closeTicks = 0
	return ErrOK
}

// FailNextClose makes the next graceful Close report ErrMem, to exercise a
// caller's forced-abort fallback.
func (c *TCPConn) FailNextClose() {
	c.failNextClose = true
}

// Abort tears the connection down immediately, best-effort emitting a RST.
// It always succeeds and always frees the control block.
func (c *TCPConn) Abort() {
	if c.state == tcpClosed {
		return
	}
	if c.state == tcpEstablished || c.state == tcpClosing {
		if nif := c.stack.route(c.remote.Addr()); nif != nil {
			rst := tcpSegment(c.local, c.remote,
				c.iss+1+uint32(c.sentBytes), c.rcvNxt,
				header.TCPFlagRst, 0, nil)
			if rst != nil {
				nif.output(nif, rst)
				rst.Free()
			}
		}
	}
	c.release()
}

func (c *TCPConn) release() {
	c.state = tcpClosed
	c.writeQ = nil
	c.queued = 0
	c.stack.removeTCP(c)
}

// handleSegment processes one inbound segment addressed to this connection.
// Ownership of payload (possibly nil) passes in.
func (c *TCPConn) handleSegment(t header.TCP, payload *Chunk) {
	flags := t.Flags()

	if flags&header.TCPFlagRst != 0 {
		if payload != nil {
			payload.Free()
		}
		err := ErrReset
		if c.state == tcpConnecting {
			cb := c.OnConnected
			c.release()
			if cb != nil {
				cb(err)
			}
			return
		}
		cb := c.OnError
		c.release()
		if cb != nil {
			cb(err)
		}
		return
	}

	if c.state == tcpConnecting {
		if payload != nil {
			payload.Free()
		}
		if flags&header.TCPFlagSyn == 0 || flags&header.TCPFlagAck == 0 {
			return
		}
		c.state = tcpEstablished
		c.rcvNxt = t.SequenceNumber() + 1
		c.ackSegment()
		if c.OnConnected != nil {
			c.OnConnected(ErrOK)
		}
		return
	}

	if flags&header.TCPFlagAck != 0 {
		// Relative bytes acknowledged beyond the SYN, in signed 32-bit
		// sequence arithmetic so a stale ACK from before our ISS reads
		// as negative instead of wrapping into a huge positive count.
		ackRel := int32(t.AckNumber() - c.iss - 1)
		delta := int(ackRel) - c.ackedBytes
		if ackRel >= 0 && delta > 0 {
			c.ackedBytes = int(ackRel)
			c.dropAcked(delta)
			if c.OnSent != nil {
				c.OnSent(delta)
			}
			if c.state == tcpClosing && c.ackedBytes >= c.sentBytes {
				c.release()
			}
		}
	}

	if c.state != tcpEstablished && c.state != tcpClosing {
		if payload != nil {
			payload.Free()
		}
		return
	}

	if payload != nil {
		n := payload.TotalLen()
		if n > 0 && c.state == tcpEstablished {
			c.rcvNxt += uint32(n)
			c.ackSegment()
			if c.OnRecv != nil {
				c.OnRecv(payload)
			} else {
				payload.Free()
			}
		} else {
			payload.Free()
		}
	}

	if flags&header.TCPFlagFin != 0 && c.state == tcpEstablished {
		c.rcvNxt++
		c.ackSegment()
		if c.OnRecv != nil {
			c.OnRecv(nil)
		}
	}
}

// dropAcked releases write queue entries covered by n freshly acked bytes.
func (c *TCPConn) dropAcked(n int) {
	c.queued -= n
	if c.queued < 0 {
		c.queued = 0
	}
	for n > 0 && len(c.writeQ) > 0 {
		e := &c.writeQ[0]
		if len(e.data) <= n {
			n -= len(e.data)
			c.writeQ = c.writeQ[1:]
			continue
		}
		e.data = e.data[n:]
		if e.sent > 0 {
			e.sent -= min(e.sent, n)
		}
		n = 0
	}
}

// ackSegment emits an empty ACK.
func (c *TCPConn) ackSegment() {
	nif := c.stack.route(c.remote.Addr())
	if nif == nil {
		return
	}
	seg := tcpSegment(c.local, c.remote,
		c.iss+1+uint32(c.sentBytes), c.rcvNxt,
		header.TCPFlagAck, defaultWindow, nil)
	if seg == nil {
		return
	}
	nif.output(nif, seg)
	seg.Free()
}
