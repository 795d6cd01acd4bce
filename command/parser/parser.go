/*
   Debug command line tokenizer and dispatch.

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

// Package parser implements the interactive debugger's command
// language: step/continue/stop, examine/deposit on registers, CSRs and
// memory, breakpoint and watchpoint management, and show/quit. Built on
// a prefix-matching command table (a cmdList of name/minimum-match/
// handler tuples, walked letter by letter) rather than a flag-parsing
// library, since the target is a line-oriented REPL a human types short
// abbreviations into.
package parser

import (
	"errors"
	"strings"
	"unicode"

	"github.com/rcornwell/rvsim/command/session"
)

type cmd struct {
	name     string
	min      int
	process  func(*cmdLine, *session.Session) (bool, error)
	complete func(*cmdLine) []string
}

type cmdLine struct {
	line string
	pos  int
}

var cmdList = []cmd{
	{name: "step", min: 1, process: step},
	{name: "continue", min: 1, process: cont},
	{name: "stop", min: 2, process: stop},
	{name: "examine", min: 1, process: examine, complete: resourceComplete},
	{name: "deposit", min: 1, process: deposit, complete: resourceComplete},
	{name: "break", min: 2, process: setBreak},
	{name: "delete", min: 3, process: deleteBreak},
	{name: "show", min: 2, process: show},
	{name: "trace", min: 2, process: traceCmd},
	{name: "quit", min: 1, process: quit},
}

// ProcessCommand parses and executes one line against sess.
func ProcessCommand(commandLine string, sess *session.Session) (bool, error) {
	line := cmdLine{line: commandLine}
	name := line.getWord()

	match := matchList(name)
	if len(match) == 0 {
		return false, errors.New("command not found: " + name)
	}
	if len(match) > 1 {
		return false, errors.New("ambiguous command: " + name)
	}
	return match[0].process(&line, sess)
}

// CompleteCmd returns line-editing completions for a partial command line.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord()

	if !line.isEOL() && line.line[line.pos-1] == ' ' {
		match := matchList(name)
		if len(match) != 1 || match[0].complete == nil {
			return nil
		}
		return match[0].complete(&line)
	}

	match := matchList(name)
	matches := make([]string, len(match))
	for i, m := range match {
		matches[i] = m.name
	}
	return matches
}

func matchCommand(m cmd, name string) bool {
	if len(name) > len(m.name) {
		return false
	}
	for i := range name {
		if name[i] != m.name[i] {
			return false
		}
	}
	return len(name) >= m.min
}

func matchList(name string) []cmd {
	if name == "" {
		return nil
	}
	var out []cmd
	for _, m := range cmdList {
		if matchCommand(m, name) {
			out = append(out, m)
		}
	}
	return out
}

func (l *cmdLine) isEOL() bool { return l.pos >= len(l.line) }

func (l *cmdLine) skipSpace() {
	for !l.isEOL() && unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
}

// getWord returns the next whitespace-delimited token, lower-cased.
func (l *cmdLine) getWord() string {
	l.skipSpace()
	start := l.pos
	for !l.isEOL() && !unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
	return strings.ToLower(l.line[start:l.pos])
}

// rest returns everything left on the line, with leading space trimmed.
func (l *cmdLine) rest() string {
	l.skipSpace()
	return l.line[l.pos:]
}
