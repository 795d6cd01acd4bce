/*
   Remote debug-server listener.

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

// Package debugserver exposes the same command language command/parser
// implements over a TCP listener instead of a local terminal, so a
// remote client can attach a debugger to a running hart. Shaped like a
// telnet listener's accept loop: one goroutine accepting connections,
// one dispatching them to per-connection handlers, torn down together
// on Stop.
package debugserver

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rcornwell/rvsim/command/parser"
	"github.com/rcornwell/rvsim/command/session"
	"github.com/rcornwell/rvsim/emu/ctlmsg"
)

// Server accepts debug-protocol connections against a single session.
type Server struct {
	wg         sync.WaitGroup
	listener   net.Listener
	shutdown   chan struct{}
	connection chan net.Conn
	sess       *session.Session
}

// Start opens a listener on port and begins accepting connections
// against sess. Each connected client gets its own line-oriented
// command loop sharing the underlying hart.
func Start(port string, sess *session.Session) (*Server, error) {
	l, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("debugserver: listen on %s: %w", port, err)
	}
	s := &Server{
		listener:   l,
		shutdown:   make(chan struct{}),
		connection: make(chan net.Conn),
		sess:       sess,
	}
	s.wg.Add(2)
	go s.acceptConnections()
	go s.handleConnections()
	slog.Info("debug server started", "addr", l.Addr().String())
	return s, nil
}

// Stop tears down the listener and any in-flight accept/dispatch
// goroutines, waiting up to a second for a clean exit.
func (s *Server) Stop() {
	close(s.shutdown)
	s.listener.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("debugserver: timed out waiting for connections to finish")
	}
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdown:
			return
		default:
			conn, err := s.listener.Accept()
			if err != nil {
				continue
			}
			s.connection <- conn
		}
	}
}

func (s *Server) handleConnections() {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdown:
			return
		case conn := <-s.connection:
			go s.handleClient(conn)
		}
	}
}

func (s *Server) handleClient(conn net.Conn) {
	defer conn.Close()
	clientSess := s.sess.WithOutput(conn)
	if clientSess.Ctl != nil {
		clientSess.Ctl <- ctlmsg.Packet{Msg: ctlmsg.DebugConnect, Conn: conn}
		defer func() { clientSess.Ctl <- ctlmsg.Packet{Msg: ctlmsg.DebugDisconnect, Conn: conn} }()
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		quit, err := parser.ProcessCommand(scanner.Text(), clientSess)
		if err != nil {
			fmt.Fprintf(conn, "error: %s\n", err.Error())
		}
		if quit {
			return
		}
	}
}
