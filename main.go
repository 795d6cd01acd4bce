/*
 * rvsim - Main process.
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

package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/rvsim/command/reader"
	"github.com/rcornwell/rvsim/command/session"
	_ "github.com/rcornwell/rvsim/config/debugconfig"
	"github.com/rcornwell/rvsim/config/hartconfig"
	"github.com/rcornwell/rvsim/debugserver"
	"github.com/rcornwell/rvsim/emu/core"
	"github.com/rcornwell/rvsim/emu/ctlmsg"
	"github.com/rcornwell/rvsim/emu/memory"
	"github.com/rcornwell/rvsim/emu/timer"
	"github.com/rcornwell/rvsim/loader"
	logger "github.com/rcornwell/rvsim/util/logger"
	"github.com/rcornwell/rvsim/util/tracecompare"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "rvsim.cfg", "Configuration file")
	optImage := getopt.StringLong("image", 'i', "", "Program image to load (hex or ELF)")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebugPort := getopt.StringLong("debug-port", 'd', "", "Remote debug server port")
	optBatch := getopt.BoolLong("batch", 'b', "Run to completion instead of entering the console")
	optTraceRef := getopt.StringLong("trace-compare-ref", 0, "", "Reference trace log for --trace-compare-cand")
	optTraceCand := getopt.StringLong("trace-compare-cand", 0, "", "Candidate trace log to diff against --trace-compare-ref")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	if *optTraceRef != "" || *optTraceCand != "" {
		os.Exit(runTraceCompare(*optTraceRef, *optTraceCand))
	}

	var logFile *os.File
	if *optLogFile != "" {
		var err error
		logFile, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("failed to create log file", "error", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	debugOff := false
	Logger = slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}, &debugOff))
	slog.SetDefault(Logger)

	Logger.Info("rvsim started")

	cfg, err := hartconfig.Load(*optConfig)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	mem, err := cfg.NewMemory()
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	resetPC := cfg.ResetPC
	if *optImage != "" {
		entry, toHost, conIo, err := loadImage(*optImage, mem)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		if entry != 0 {
			resetPC = entry
		}
		// Symbols resolved from the image override the config's static
		// addresses, the way a tohost-convention runtime expects.
		if toHost != 0 {
			cfg.ToHostAddr = toHost
		}
		if conIo != 0 {
			cfg.ConsoleIO = conIo
		}
	}

	hart := cfg.NewHart(0, mem)
	hart.PC = resetPC

	ctl := make(chan ctlmsg.Packet, 16)
	runner := core.New(hart, ctl)
	runner.ToHostAddr = cfg.ToHostAddr
	if cfg.Tracer != nil {
		runner.Trace = traceFunc(cfg.Tracer, hart.ID)
	}
	runner.Start()

	if cfg.IntTimer0Period > 0 {
		ctl <- ctlmsg.Packet{Msg: ctlmsg.ArmIntTimer0, Period: cfg.IntTimer0Period}
	}
	if cfg.IntTimer1Period > 0 {
		ctl <- ctlmsg.Packet{Msg: ctlmsg.ArmIntTimer1, Period: cfg.IntTimer1Period}
	}
	var alarm *timer.Timer
	if cfg.AlarmIntervalUs > 0 {
		alarm = timer.New(ctl, time.Duration(cfg.AlarmIntervalUs)*time.Microsecond)
		alarm.Start()
	}

	sess := session.New(hart, runner, ctl, cfg.ToHostAddr, cfg.Tracer, cfg.TraceDigits())

	var dbgSrv *debugserver.Server
	if *optDebugPort != "" {
		dbgSrv, err = debugserver.Start(*optDebugPort, sess)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		Logger.Info("got interrupt, stopping hart")
		runner.Interrupt()
	}()

	if *optBatch {
		sess.Continue()
		<-sigChan
	} else {
		reader.ConsoleReader(sess)
	}

	Logger.Info("shutting down")
	if alarm != nil {
		alarm.Shutdown()
	}
	runner.Stop()
	if dbgSrv != nil {
		dbgSrv.Stop()
	}
	Logger.Info("stopped")
}

// runTraceCompare diffs two instruction-trace logs line-by-line and
// prints the first retired instruction at which they diverge, for
// regression-testing a run against a reference trace. It returns the
// process exit code: 0 if the logs match exactly, 1 on divergence or error.
func runTraceCompare(refPath, candPath string) int {
	if refPath == "" || candPath == "" {
		fmt.Fprintln(os.Stderr, "both --trace-compare-ref and --trace-compare-cand are required")
		return 1
	}
	ref, err := os.Open(refPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer ref.Close()
	cand, err := os.Open(candPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cand.Close()

	d, err := tracecompare.Compare(ref, cand)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if d == nil {
		fmt.Println("traces match")
		return 0
	}
	fmt.Println(d.String())
	return 1
}

// loadImage sniffs path's first four bytes for the ELF magic number and
// dispatches to the matching loader. An ELF image contributes its entry
// point and any tohost/console-IO symbols it carries; a hex image
// contributes none of those (all three return zero).
func loadImage(path string, mem *memory.Memory) (entry, toHost, conIo uint64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, err
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := f.Read(magic); err != nil {
		return 0, 0, 0, fmt.Errorf("reading image %s: %w", path, err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return 0, 0, 0, err
	}

	if bytes.Equal(magic, []byte{0x7f, 'E', 'L', 'F'}) {
		img, err := loader.LoadELF(mem, f)
		if err != nil {
			return 0, 0, 0, err
		}
		return img.Entry, img.ToHost, img.ConsoleIO, nil
	}
	return 0, 0, 0, loader.LoadHex(mem, f)
}
