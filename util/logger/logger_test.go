/*
 * rvsim - Wrapper for slog
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleWritesTimestampLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	debug := true
	h := NewHandler(&buf, nil, &debug)

	logger := slog.New(h)
	logger.Info("hart started", "hart", 0)

	out := buf.String()
	require.Contains(t, out, "INFO:")
	require.Contains(t, out, "hart started")
	require.Contains(t, out, "0")
	require.True(t, strings.HasSuffix(out, "\n"))
}

func TestHandleAppendsAttrValuesInOrder(t *testing.T) {
	var buf bytes.Buffer
	debug := false
	h := NewHandler(&buf, nil, &debug)

	logger := slog.New(h)
	logger.Info("trap taken", "cause", "illegal-instruction", "pc", "0x1000")

	out := buf.String()
	require.Contains(t, out, "trap taken illegal-instruction 0x1000")
}

func TestSetDebugTogglesStderrMirroring(t *testing.T) {
	var buf bytes.Buffer
	debug := false
	h := NewHandler(&buf, nil, &debug)
	require.False(t, h.debug)

	enabled := true
	h.SetDebug(&enabled)
	require.True(t, h.debug)
}

func TestEnabledDelegatesToUnderlyingHandler(t *testing.T) {
	var buf bytes.Buffer
	debug := false
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, &debug)

	require.False(t, h.Enabled(nil, slog.LevelInfo))
	require.True(t, h.Enabled(nil, slog.LevelError))
}
