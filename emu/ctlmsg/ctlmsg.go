/*
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
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

// Package ctlmsg carries out-of-band control messages between the
// run-loop goroutine, the wall-clock alarm timer, and the remote debug
// listener -- the same role the master packet channel once played
// between the 370's CPU goroutine, its timer, and its telnet front end.
package ctlmsg

import "net"

// Kind identifies what a Packet is asking the hart run loop to do.
type Kind int

const (
	Start Kind = iota
	Stop
	AlarmTick
	ExternalIRQ
	ArmIntTimer0
	ArmIntTimer1
	DebugConnect
	DebugDisconnect
	DebugReceive
)

// Packet is one control message.
type Packet struct {
	Msg    Kind
	Conn   net.Conn // set for DebugConnect/DebugDisconnect/DebugReceive
	Data   byte     // set for DebugReceive
	IRQ    uint32   // set for ExternalIRQ: interrupt cause bit
	Period int      // set for ArmIntTimer0/1: retired instructions until the timer fires
}
