//  timers.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

package estack

import "time"

// TimerInterval is the base tick of the stack's internal timers. The driver
// calls CheckTimeouts at least this often while NextWake reports work.
const TimerInterval = 250 * time.Millisecond

// CheckTimeouts advances the stack's internal timers by one tick: connection
// attempts and detached closing connections age out here. Callbacks run
// synchronously.
func (s *Stack) CheckTimeouts() {
	// Conns may remove themselves mid-walk; iterate over a snapshot.
	conns := append([]*TCPConn(nil), s.tcp...)
	for _, c := range conns {
		switch c.state {
		case tcpConnecting:
			c.synTicks++
			if c.synTicks < synTickLimit {
				continue
			}
			cb := c.OnConnected
			c.release()
			if cb != nil {
				cb(ErrTimeout)
			}
		case tcpClosing:
			c.closeTicks++
			if c.closeTicks < closeTickLimit {
				continue
			}
			// The peer never drained our in-flight bytes; give up.
			cb := c.OnError
			c.Abort()
			if cb != nil {
				cb(ErrTimeout)
			}
		}
	}
}

// NextWake returns how soon CheckTimeouts wants to run again, or zero when
// no timer is armed. Any call that mutates stack state can arm new timers,
// so drivers must re-query after every such call; the stack does not push
// wake-ups on its own.
func (s *Stack) NextWake() time.Duration {
	for _, c := range s.tcp {
		if c.state == tcpConnecting || c.state == tcpClosing {
			return TimerInterval
		}
	}
	return 0
}
