// Package jitdump records generated code for offline inspection. Each
// registration can produce a binary dump file and a line in a perf map, so
// that `perf report` can attribute samples to the generated code.
//
// Failures are never fatal: a dump that cannot be written is logged at
// debug level and skipped.
package jitdump

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dc0d/onexit"
)

// EnvVar selects dumping for the process-wide registry: "dump", "perf" or
// "dump,perf". Any other non-empty value is ignored.
const EnvVar = "RALPH_ELTWISE_JIT_DUMP"

// DefaultPrefix starts every dump file name.
const DefaultPrefix = "ralph_eltwise"

// Code is one piece of generated code.
type Code struct {
	// Addr is where the code lives (or would live) in memory.
	Addr uint64
	// Bytes is the image written to the dump file. Its length is the size
	// reported in the perf map.
	Bytes []byte
	// Name identifies the code in file names and the perf map.
	Name string
	// Source is an optional assembly listing, dumped next to the image.
	Source string
}

// Options configures a Registry.
type Options struct {
	// Dump enables dump files in DumpDir (the working directory when empty).
	Dump    bool
	DumpDir string
	Prefix  string
	// PerfMap enables perf map entries in PerfMapPath, which defaults to
	// /tmp/perf-<pid>.map.
	PerfMap     bool
	PerfMapPath string
	Logger      *slog.Logger
}

// Enabled reports whether any output is configured.
func (o Options) Enabled() bool { return o.Dump || o.PerfMap }

// OptionsFromEnv parses EnvVar.
func OptionsFromEnv() Options {
	var o Options
	for _, f := range strings.Split(os.Getenv(EnvVar), ",") {
		switch strings.TrimSpace(f) {
		case "dump":
			o.Dump = true
		case "perf":
			o.PerfMap = true
		}
	}
	return o
}

// Registry numbers registrations and writes their outputs. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.Mutex
	opts    Options
	log     *slog.Logger
	counter int
	perf    *os.File
	closed  bool
}

// New returns a registry. Nothing is opened until the first Register.
func New(opts Options) *Registry {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.PerfMapPath == "" {
		opts.PerfMapPath = fmt.Sprintf("/tmp/perf-%d.map", os.Getpid())
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Registry{opts: opts, log: l.With("component", "jitdump")}
}

// Register records c and returns its sequence number. The first
// registration gets 0.
func (r *Registry) Register(c Code) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.counter
	r.counter++
	if r.closed {
		r.log.Debug("registry closed, dropping code", "name", c.Name)
		return n
	}
	if r.opts.Dump {
		r.dump(c, n)
	}
	if r.opts.PerfMap {
		r.perfMap(c)
	}
	return n
}

// DumpPath returns the file the n-th registration of name is dumped to.
func (r *Registry) DumpPath(name string, n int) string {
	return filepath.Join(r.opts.DumpDir, fmt.Sprintf("%s_dump_%s.%d.bin", r.opts.Prefix, name, n))
}

// PerfMapPath returns the perf map file name.
func (r *Registry) PerfMapPath() string { return r.opts.PerfMapPath }

func (r *Registry) dump(c Code, n int) {
	path := r.DumpPath(c.Name, n)
	if err := os.WriteFile(path, c.Bytes, 0o644); err != nil {
		r.log.Debug("dump failed", "path", path, "err", err)
		return
	}
	if c.Source == "" {
		return
	}
	src := strings.TrimSuffix(path, ".bin") + ".s"
	if err := os.WriteFile(src, []byte(c.Source), 0o644); err != nil {
		r.log.Debug("dump failed", "path", src, "err", err)
	}
}

func (r *Registry) perfMap(c Code) {
	if r.perf == nil {
		f, err := os.OpenFile(r.opts.PerfMapPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			r.log.Debug("perf map unavailable", "path", r.opts.PerfMapPath, "err", err)
			r.opts.PerfMap = false
			return
		}
		r.perf = f
	}
	if _, err := fmt.Fprintf(r.perf, "%016x %x %s\n", c.Addr, len(c.Bytes), c.Name); err != nil {
		r.log.Debug("perf map write failed", "err", err)
	}
}

// Close closes the perf map. Later registrations are counted but not
// written.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.perf == nil {
		return nil
	}
	err := r.perf.Close()
	r.perf = nil
	return err
}

var (
	defaultMu  sync.Mutex
	defaultReg *Registry
)

// Configure installs a process-wide registry built from opts, closing the
// previous one. The new registry is closed on process exit.
func Configure(opts Options) *Registry {
	defaultMu.Lock()
	old := defaultReg
	r := install(opts)
	defaultMu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return r
}

// install must be called with defaultMu held.
func install(opts Options) *Registry {
	r := New(opts)
	defaultReg = r
	onexit.Register(func() { _ = r.Close() })
	return r
}

// Register records c in the process-wide registry. Before Configure it is
// a no-op unless EnvVar enables output, in which case the registry is
// configured from the environment on first use.
func Register(c Code) {
	defaultMu.Lock()
	r := defaultReg
	if r == nil {
		if opts := OptionsFromEnv(); opts.Enabled() {
			r = install(opts)
		}
	}
	defaultMu.Unlock()
	if r != nil {
		r.Register(c)
	}
}
