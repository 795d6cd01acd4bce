/*
   Wall-clock alarm-interval timer.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

// Package timer runs a wall-clock ticker that raises a synthetic timer
// interrupt every alarmInterval, independent of the hart's own mcycle/
// minstret counters -- the simulator-side alarm feature, not part of
// the architectural state.
package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rcornwell/rvsim/emu/ctlmsg"
)

// Timer delivers periodic AlarmTick packets on a control channel.
type Timer struct {
	wg      sync.WaitGroup
	running bool
	ctl     chan ctlmsg.Packet
	enable  chan bool
	done    chan struct{}
	ticker  *time.Ticker
	period  time.Duration
}

// New creates a timer that fires every interval, delivering AlarmTick
// packets on ctl. The goroutine is started immediately but idle until
// Start is called.
func New(ctl chan ctlmsg.Packet, interval time.Duration) *Timer {
	t := &Timer{
		ctl:    ctl,
		enable: make(chan bool, 1),
		done:   make(chan struct{}),
		period: interval,
	}
	t.wg.Add(1)
	go t.run()
	return t
}

// Start enables delivery of alarm ticks.
func (t *Timer) Start() { t.enable <- true }

// Stop disables delivery without tearing down the goroutine.
func (t *Timer) Stop() { t.enable <- false }

// Shutdown terminates the timer goroutine, waiting up to a second.
func (t *Timer) Shutdown() {
	close(t.done)
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("timed out waiting for alarm timer to finish")
	}
}

func (t *Timer) run() {
	defer t.wg.Done()
	t.ticker = time.NewTicker(t.period)
	defer t.ticker.Stop()

	for {
		select {
		case <-t.ticker.C:
			if t.running {
				t.ctl <- ctlmsg.Packet{Msg: ctlmsg.AlarmTick}
			}
		case t.running = <-t.enable:
			if t.running {
				t.ticker.Reset(t.period)
			}
		case <-t.done:
			return
		}
	}
}
