/*
 * rvsim - Debug/trace options configuration.
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

package debugconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcornwell/rvsim/config/hartconfig"
)

func TestLoadWithNoTraceLeavesTracerNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hart.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	cfg, err := hartconfig.Load(path)
	require.NoError(t, err)
	require.Nil(t, cfg.Tracer)
}

func TestLoadWithTraceOpensTracer(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace.log")
	cfgPath := filepath.Join(dir, "hart.json")
	body := `{"xlen": 32, "trace": "` + filepath.ToSlash(tracePath) + `"}`
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	cfg, err := hartconfig.Load(cfgPath)
	require.NoError(t, err)
	require.NotNil(t, cfg.Tracer)

	_, err = os.Stat(tracePath)
	require.NoError(t, err)
}

func TestOpenTraceErrorsOnUnwritablePath(t *testing.T) {
	cfg := &hartconfig.Config{Trace: filepath.Join(t.TempDir(), "missing-dir", "trace.log")}
	require.Error(t, openTrace(cfg))
}
