/*
   JSON hart configuration loader.

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

// Package hartconfig loads the JSON document describing one simulator
// instance: memory layout, per-CSR overrides, and the hart count/width
// to build. It replaces a line-oriented configparser grammar outright
// with JSON, but keeps the self-registering init() extension point,
// exposed here as RegisterHook.
package hartconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rcornwell/rvsim/emu/cpu"
	"github.com/rcornwell/rvsim/emu/csr"
	"github.com/rcornwell/rvsim/emu/memory"
	"github.com/rcornwell/rvsim/util/debug"
)

// RegionSpec names one memory region's base/size/attribute layout.
type RegionSpec struct {
	Name      string `json:"name"`
	Base      uint64 `json:"base"`
	Size      uint64 `json:"size"`
	Read      bool   `json:"read"`
	Write     bool   `json:"write"`
	Exec      bool   `json:"exec"`
	ICCM      bool   `json:"iccm"`
	DCCM      bool   `json:"dccm"`
	MMReg     bool   `json:"mmreg"`
	WriteMask uint64 `json:"writeMask"`
}

// CSRSpec overrides one CSR's static attributes from their architectural
// default, keyed by address.
type CSRSpec struct {
	Address     uint16 `json:"address"`
	Reset       uint64 `json:"reset"`
	WriteMask   uint64 `json:"writeMask"`
	PokeMask    uint64 `json:"pokeMask"`
	Implemented bool   `json:"implemented"`
	DebugOnly   bool   `json:"debugOnly"`
}

// Config is the top-level hart configuration document.
type Config struct {
	XLEN        int          `json:"xlen"`
	Harts       int          `json:"harts"`
	ResetPC     uint64       `json:"resetPC"`
	MemorySize  uint64       `json:"memorySize"`
	Regions     []RegionSpec `json:"regions"`
	CSRs        []CSRSpec    `json:"csrs"`
	ToHostAddr  uint64       `json:"toHostAddr"`
	ConsoleIO   uint64       `json:"consoleIOAddr"`
	NmiPC       uint64       `json:"nmiPC"`

	// AlarmIntervalUs raises a synthetic machine timer interrupt every
	// this many wall-clock microseconds while the hart runs; zero
	// disables it. The internal timer periods count retired
	// instructions instead of wall time.
	AlarmIntervalUs uint64 `json:"alarmIntervalUs"`
	IntTimer0Period int    `json:"intTimer0Period"`
	IntTimer1Period int    `json:"intTimer1Period"`
	DecodeCache int          `json:"decodeCache"`
	LSQDepth    int          `json:"lsqDepth"`
	Triggers    int          `json:"triggers"`
	EnableF     bool         `json:"enableF"`
	EnableD     bool         `json:"enableD"`
	Trace       string       `json:"trace"`
	DebugMode   bool         `json:"debugMode"`

	StackCheck bool   `json:"stackCheck"`
	StackMin   uint64 `json:"stackMin"`
	StackMax   uint64 `json:"stackMax"`

	LRRequireDCCM  bool `json:"lrRequireDccm"`
	DCCMCrossCheck bool `json:"dccmCrossCheck"`

	// Tracer is left nil by Load itself; config/debugconfig's registered
	// hook opens Trace (when non-empty) and fills this in, the way a
	// DEBUGFILE directive opens a log file as a side effect of parsing
	// a config line.
	Tracer *debug.Tracer `json:"-"`
}

var postLoadHooks []func(*Config) error

// RegisterHook lets another package contribute post-load processing
// from its own init(), without hartconfig importing it — a JSON-era
// analogue of RegisterModel/RegisterFile self-registration.
func RegisterHook(fn func(*Config) error) {
	postLoadHooks = append(postLoadHooks, fn)
}

// Load reads, parses and validates a JSON hart configuration file,
// then runs every registered post-load hook in registration order.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hartconfig: %w", err)
	}
	cfg := &Config{
		XLEN:        64,
		Harts:       1,
		MemorySize:  1 << 20,
		DecodeCache: 256,
		LSQDepth:    8,
		Triggers:    4,
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("hartconfig: parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for _, hook := range postLoadHooks {
		if err := hook(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.XLEN != 32 && c.XLEN != 64 {
		return fmt.Errorf("hartconfig: xlen must be 32 or 64, got %d", c.XLEN)
	}
	if c.Harts < 1 {
		return fmt.Errorf("hartconfig: harts must be at least 1")
	}
	seen := make(map[string]bool, len(c.Regions))
	for _, r := range c.Regions {
		if seen[r.Name] {
			return fmt.Errorf("hartconfig: duplicate region %q", r.Name)
		}
		seen[r.Name] = true
		if r.ICCM && r.DCCM {
			return fmt.Errorf("hartconfig: region %q cannot be both ICCM and DCCM", r.Name)
		}
	}
	return nil
}

// NewMemory builds a Memory and installs every configured region.
func (c *Config) NewMemory() (*memory.Memory, error) {
	m := memory.New(c.MemorySize)
	for _, r := range c.Regions {
		var attr memory.Attr
		if r.Read {
			attr |= memory.Read
		}
		if r.Write {
			attr |= memory.Write
		}
		if r.Exec {
			attr |= memory.Exec
		}
		if r.ICCM {
			attr |= memory.ICCM
		}
		if r.DCCM {
			attr |= memory.DCCM
		}
		if r.MMReg {
			attr |= memory.MemMappedRegister
		}
		region := memory.Region{Name: r.Name, Base: r.Base, Size: r.Size, Attr: attr, WriteMask: r.WriteMask}
		if err := m.AddRegion(region); err != nil {
			return nil, fmt.Errorf("hartconfig: region %q: %w", r.Name, err)
		}
	}
	return m, nil
}

// CSRMap builds the architectural default CSR set for this
// configuration's width, then layers on any per-address overrides.
func (c *Config) CSRMap() map[uint16]csr.Entry {
	xlen := cpu.XLEN32
	if c.XLEN == 64 {
		xlen = cpu.XLEN64
	}
	m := cpu.DefaultCSRs(xlen)
	for _, o := range c.CSRs {
		e := m[o.Address]
		e.Reset = o.Reset
		e.WriteMask = o.WriteMask
		e.PokeMask = o.PokeMask
		e.Implemented = o.Implemented
		e.DebugOnly = o.DebugOnly
		m[o.Address] = e
	}
	return m
}

// NewHart builds one hart numbered id against mem, using this
// configuration's width, queue depths, extensions and CSR set.
func (c *Config) NewHart(id int, mem *memory.Memory) *cpu.Hart {
	xlen := cpu.XLEN32
	if c.XLEN == 64 {
		xlen = cpu.XLEN64
	}
	return cpu.New(cpu.Config{
		ID:          id,
		XLEN:        xlen,
		ResetPC:     c.ResetPC,
		Memory:      mem,
		DecodeCache: c.DecodeCache,
		LSQDepth:    c.LSQDepth,
		Triggers:    c.Triggers,
		EnableF:     c.EnableF,
		EnableD:     c.EnableD,
		CSRs:        c.CSRMap(),
		NmiPC:       c.NmiPC,
		ConsoleIO:   c.ConsoleIO,

		LRRequireDCCM:  c.LRRequireDCCM,
		DCCMCrossCheck: c.DCCMCrossCheck,

		StackCheck: c.StackCheck,
		StackMin:   c.StackMin,
		StackMax:   c.StackMax,
	})
}

// TraceDigits returns the pc/address hex width the trace format uses
// for this configuration's width: 8 digits on RV32, 16 on RV64.
func (c *Config) TraceDigits() int {
	if c.XLEN == 32 {
		return 8
	}
	return 16
}
