//  tcp.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

package core

import (
	"net/netip"

	"github.com/eapache/queue"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/core/option"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/estack"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/memory"
)

// TCPSocket is a stream socket on the embedded stack. Payload handed to Send
// is cloned into a pending queue and passed to the stack without copying;
// each clone is released only once the peer acknowledges those bytes.
type TCPSocket struct {
	StackSocket

	conn *estack.TCPConn

	// sendQ holds *memory.Handle clones of in-flight payload, oldest
	// first. queuedBytes mirrors the stack's unacknowledged count.
	sendQ       *queue.Queue
	queuedBytes int

	remoteClosed bool
}

// NewTCPSocket creates a stream socket on the pump's stack. The socket holds
// a pump reference until Close or Abort.
func NewTCPSocket(pump *EventPump, owner SocketOwner, platform option.Platform,
	constraint option.FamilyConstraint) *TCPSocket {

	s := &TCPSocket{
		conn:  pump.Stack().NewTCP(),
		sendQ: queue.New(),
	}
	s.initSocket(pump, owner, platform, option.SocketTCP, constraint, s.conn.SendBufSize())
	pump.ref()

	s.conn.OnRecv = s.recvEvent
	s.conn.OnSent = s.consumedEvent
	s.conn.OnConnected = s.connectEvent
	s.conn.OnError = s.errorEvent
	return s
}

// Bind assigns the socket's local address.
func (s *TCPSocket) Bind(local netip.AddrPort) option.Errno {
	if s.released {
		return option.EBADF
	}
	if s.bound {
		return option.EINVAL
	}
	if s.connecting || s.connected {
		return option.EISCONN
	}
	addr, errno := s.prepareForAddress(local.Addr())
	if errno != option.Ok {
		return errno
	}
	if e := s.conn.Bind(netip.AddrPortFrom(addr, local.Port())); e != estack.ErrOK {
		return option.FromStack(e, s.platform)
	}
	s.bound = true
	s.localAddr = s.conn.LocalAddr()
	return option.Ok
}

// Connect starts a connection attempt. On success it returns EINPROGRESS and
// the outcome arrives through the owner's Connected or Disconnected
// callback.
func (s *TCPSocket) Connect(remote netip.AddrPort) option.Errno {
	if s.released {
		return option.EBADF
	}
	if s.connected {
		return option.EISCONN
	}
	if s.connecting {
		return option.EALREADY
	}
	if s.disconnected {
		return option.EINVAL
	}
	addr, errno := s.prepareForAddress(remote.Addr())
	if errno != option.Ok {
		return errno
	}
	if e := s.conn.Connect(netip.AddrPortFrom(addr, remote.Port())); e != estack.ErrOK {
		return option.FromStack(e, s.platform)
	}
	s.connecting = true
	s.bound = true
	s.localAddr = s.conn.LocalAddr()
	s.remoteAddr = s.conn.RemoteAddr()
	// The connect timer is armed now; let the pump pick it up.
	s.pump.Kick()
	return option.EINPROGRESS
}

// Send queues data for transmission. The caller keeps its handle; the socket
// clones it, so the underlying block stays alive without a payload copy
// until the peer acknowledges the bytes. A full send buffer reports EAGAIN;
// retry after the owner's SendBufferIncreased callback.
func (s *TCPSocket) Send(data memory.Handle) option.Errno {
	if s.released {
		return option.EBADF
	}
	if !s.connected {
		return option.ENOTCONN
	}
	if data.Empty() {
		return option.Ok
	}
	if data.Size() > s.conn.SendBufAvailable() {
		return option.EAGAIN
	}

	cl := data.Clone()
	if e := s.conn.Write(cl.Bytes(), true); e != estack.ErrOK {
		cl.Release()
		return option.FromStack(e, s.platform)
	}
	s.sendQ.Add(&cl)
	s.queuedBytes += cl.Size()

	s.conn.Output()
	s.pump.Kick()
	return option.Ok
}

// SendBufAvailable returns how many bytes Send can currently accept.
func (s *TCPSocket) SendBufAvailable() int {
	if s.released {
		return 0
	}
	return s.conn.SendBufAvailable()
}

// Close shuts the connection down gracefully. If in-flight bytes are still
// awaiting acknowledgment, their handles and the pump reference move to a
// detached record that the stack drains in the background; either way the
// socket is finished and delivers no further callbacks.
func (s *TCPSocket) Close() Result {
	if s.released {
		return OK
	}
	s.detachCallbacks()

	if s.connecting {
		s.conn.Abort()
	} else if s.conn.Connected() {
		if e := s.conn.Close(); e != estack.ErrOK {
			// Graceful close refused; tear down hard instead.
			s.conn.Abort()
		} else if s.queuedBytes > 0 {
			// The stack is still draining our bytes; hand the
			// clones and our pump reference to a detached record.
			rec := &sendCleanup{
				pump:      s.pump,
				q:         s.sendQ,
				remaining: s.queuedBytes,
			}
			s.conn.OnSent = rec.consumed
			s.conn.OnError = rec.failed
			s.sendQ = nil
			s.queuedBytes = 0
			s.released = true
			s.pump.Kick()
			return OK
		}
	} else {
		s.conn.Abort()
	}

	s.drainSendQueue()
	s.released = true
	s.pump.unref()
	return OK
}

// Abort tears the connection down immediately, discarding pending sends.
func (s *TCPSocket) Abort() {
	if s.released {
		return
	}
	s.detachCallbacks()
	s.conn.Abort()
	s.drainSendQueue()
	s.released = true
	s.pump.unref()
}

// GetOption reads a socket option into out.
func (s *TCPSocket) GetOption(level, name int, out []byte) option.Errno {
	return s.getOption(s, level, name, out)
}

// SetOption writes a socket option from in.
func (s *TCPSocket) SetOption(level, name int, in []byte) option.Errno {
	return s.setOption(s, level, name, in)
}

// SendBufSize reports the stack connection's send budget.
func (s *TCPSocket) SendBufSize() int {
	if s.released {
		return s.sndBuf
	}
	return s.conn.SendBufSize()
}

// SetSendBufSize adjusts the stack connection's send budget.
func (s *TCPSocket) SetSendBufSize(n int) bool {
	if n <= 0 {
		return false
	}
	s.sndBuf = n
	if !s.released {
		s.conn.SetSendBufSize(n)
	}
	return true
}

func (s *TCPSocket) detachCallbacks() {
	s.conn.OnRecv = nil
	s.conn.OnSent = nil
	s.conn.OnConnected = nil
	s.conn.OnError = nil
}

func (s *TCPSocket) drainSendQueue() {
	if s.sendQ == nil {
		return
	}
	for s.sendQ.Length() > 0 {
		h := s.sendQ.Peek().(*memory.Handle)
		s.sendQ.Remove()
		h.Release()
	}
	s.queuedBytes = 0
}

func (s *TCPSocket) recvEvent(payload *estack.Chunk) {
	if payload == nil {
		// Peer FIN.
		s.remoteClosed = true
		s.connected = false
		s.disconnected = true
		s.owner.Disconnected(option.Ok)
		return
	}
	it := NewChunkIterator(payload)
	s.owner.DataReceived(&it)
}

// consumedEvent releases queued clones covered by n freshly acknowledged
// bytes. An acknowledgment running past the queue means the byte stream got
// corrupted somewhere below us; the connection is aborted rather than let
// the owner see a stream with holes in it.
func (s *TCPSocket) consumedEvent(n int) {
	for n > 0 && s.sendQ.Length() > 0 {
		h := s.sendQ.Peek().(*memory.Handle)
		if h.Size() <= n {
			n -= h.Size()
			s.queuedBytes -= h.Size()
			s.sendQ.Remove()
			h.Release()
			continue
		}
		h.Consume(n)
		s.queuedBytes -= n
		n = 0
	}

	if n > 0 {
		s.detachCallbacks()
		s.conn.Abort()
		s.connected = false
		s.disconnected = true
		s.setLastError(option.ECONNABORTED)
		s.owner.Disconnected(option.ECONNABORTED)
		return
	}

	s.owner.SendBufferIncreased(s.conn.SendBufAvailable())
}

func (s *TCPSocket) connectEvent(err estack.Error) {
	s.connecting = false
	if err == estack.ErrOK {
		s.connected = true
		s.localAddr = s.conn.LocalAddr()
		s.remoteAddr = s.conn.RemoteAddr()
		s.owner.Connected()
		return
	}
	// The control block is already gone.
	s.disconnected = true
	s.drainSendQueue()
	errno := option.FromStack(err, s.platform)
	s.setLastError(errno)
	s.owner.Disconnected(errno)
}

func (s *TCPSocket) errorEvent(err estack.Error) {
	s.connected = false
	s.disconnected = true
	s.drainSendQueue()
	errno := option.FromStack(err, s.platform)
	s.setLastError(errno)
	s.owner.Disconnected(errno)
}

// sendCleanup owns the in-flight payload clones of a closed socket while the
// stack drains them. It holds the pump reference the socket transferred and
// releases everything once the bytes are acknowledged or the drain fails.
type sendCleanup struct {
	pump      *EventPump
	q         *queue.Queue
	remaining int
}

func (r *sendCleanup) consumed(n int) {
	if r.pump == nil {
		return
	}
	for n > 0 && r.q.Length() > 0 {
		h := r.q.Peek().(*memory.Handle)
		if h.Size() <= n {
			n -= h.Size()
			r.remaining -= h.Size()
			r.q.Remove()
			h.Release()
			continue
		}
		h.Consume(n)
		r.remaining -= n
		n = 0
	}
	if r.remaining <= 0 || r.q.Length() == 0 {
		r.finish()
	}
}

func (r *sendCleanup) failed(estack.Error) {
	r.finish()
}

func (r *sendCleanup) finish() {
	if r.pump == nil {
		return
	}
	for r.q.Length() > 0 {
		h := r.q.Peek().(*memory.Handle)
		r.q.Remove()
		h.Release()
	}
	pump := r.pump
	r.pump = nil
	pump.unref()
}
