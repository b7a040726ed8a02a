//  pump.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  The event pump owns one stack context per process and advances its
//  internal clock only while interfaces or sockets hold a reference.

package core

import (
	"github.com/carnegie-technologies/pravala-toolkit-sub006/estack"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/log"
)

// EventPump owns a stack context and its timer processing. Interfaces and
// sockets take a reference for their lifetime: the first reference arms the
// stack's periodic timer work on the scheduler, the last one disarms it.
//
// The stack never pushes its own wake-ups. Every call site that mutates
// stack state must call Kick afterwards so the next wake time is recomputed.
type EventPump struct {
	stack *estack.Stack
	sched Scheduler

	refs        int
	cancelTimer func()
}

// NewEventPump builds a pump around a fresh stack context driven by sched.
func NewEventPump(sched Scheduler) *EventPump {
	return &EventPump{
		stack: estack.New(),
		sched: sched,
	}
}

// Stack exposes the pump's stack context to the components it drives.
func (p *EventPump) Stack() *estack.Stack {
	return p.stack
}

// ref is taken by every interface and socket at creation.
func (p *EventPump) ref() {
	p.refs++
	if p.refs == 1 {
		log.Debugf("core: event pump started")
		p.Kick()
	}
}

// unref is dropped when an interface or socket is released. The last drop
// stops timer processing entirely.
func (p *EventPump) unref() {
	if p.refs == 0 {
		log.Errorf("core: event pump over-unreferenced")
		return
	}
	p.refs--
	if p.refs == 0 {
		p.disarm()
		log.Debugf("core: event pump stopped")
	}
}

// Kick recomputes the stack's next wake time and re-arms the timer. Call it
// after any operation that can schedule new stack timers; the stack does not
// do this on its own.
func (p *EventPump) Kick() {
	p.disarm()
	if p.refs == 0 {
		return
	}
	wake := p.stack.NextWake()
	if wake <= 0 {
		return
	}
	p.cancelTimer = p.sched.After(wake, p.timerFired)
}

func (p *EventPump) disarm() {
	if p.cancelTimer != nil {
		p.cancelTimer()
		p.cancelTimer = nil
	}
}

func (p *EventPump) timerFired() {
	p.cancelTimer = nil
	// CheckTimeouts may invoke callbacks that release the last reference;
	// Kick afterwards handles both outcomes.
	p.stack.CheckTimeouts()
	p.Kick()
}
