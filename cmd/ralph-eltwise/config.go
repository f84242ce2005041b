package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/eltwise"
	"github.com/raymyers/ralph-eltwise/pkg/isa"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// GenConfig is everything needed to generate one kernel. It is read from
// YAML files and overridden by flags.
type GenConfig struct {
	Name      string  `yaml:"name,omitempty"`
	Alg       string  `yaml:"alg"`
	Direction string  `yaml:"direction"`
	Alpha     float32 `yaml:"alpha"`
	Beta      float32 `yaml:"beta"`
	Scale     float32 `yaml:"scale"`
	UseDst    bool    `yaml:"use_dst"`
	SaveState bool    `yaml:"save_state"`
	ISA       string  `yaml:"isa"`
	// Window lists vector register indices: "4-7", "1,3,9-12".
	Window string `yaml:"window"`
}

// DefaultGenConfig is relu forward on z4-z7, for the host's ISA.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Alg:       "relu",
		Direction: "forward",
		Scale:     1,
		ISA:       "auto",
		Window:    "4-7",
	}
}

// LoadFile overlays the fields present in a YAML file.
func (gc *GenConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, gc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func addGenFlags(fs *pflag.FlagSet, gc *GenConfig) {
	d := DefaultGenConfig()
	fs.StringVar(&gc.Name, "name", d.Name, "Function name (default: eltwise_<alg>_<direction>)")
	fs.StringVarP(&gc.Alg, "alg", "a", d.Alg, "Algorithm: "+strings.Join(algNames(), ", "))
	fs.StringVarP(&gc.Direction, "direction", "d", d.Direction, "forward or backward")
	fs.Float32Var(&gc.Alpha, "alpha", d.Alpha, "Algorithm parameter alpha")
	fs.Float32Var(&gc.Beta, "beta", d.Beta, "Algorithm parameter beta")
	fs.Float32Var(&gc.Scale, "scale", d.Scale, "Multiply every result by this factor")
	fs.BoolVar(&gc.UseDst, "use-dst", d.UseDst, "Backward variant that consumes the forward output")
	fs.BoolVar(&gc.SaveState, "save-state", d.SaveState, "Preserve every register outside the window")
	fs.StringVar(&gc.ISA, "isa", d.ISA, "Target: sve_128, sve_256, sve_512, asimd or auto")
	fs.StringVarP(&gc.Window, "window", "w", d.Window, "Vector registers to transform, e.g. 4-7 or 1,3,9-12")
}

// genFlagSetters copies one explicitly set flag into a config.
var genFlagSetters = map[string]func(dst, src *GenConfig){
	"name":       func(dst, src *GenConfig) { dst.Name = src.Name },
	"alg":        func(dst, src *GenConfig) { dst.Alg = src.Alg },
	"direction":  func(dst, src *GenConfig) { dst.Direction = src.Direction },
	"alpha":      func(dst, src *GenConfig) { dst.Alpha = src.Alpha },
	"beta":       func(dst, src *GenConfig) { dst.Beta = src.Beta },
	"scale":      func(dst, src *GenConfig) { dst.Scale = src.Scale },
	"use-dst":    func(dst, src *GenConfig) { dst.UseDst = src.UseDst },
	"save-state": func(dst, src *GenConfig) { dst.SaveState = src.SaveState },
	"isa":        func(dst, src *GenConfig) { dst.ISA = src.ISA },
	"window":     func(dst, src *GenConfig) { dst.Window = src.Window },
}

func algNames() []string {
	var out []string
	for _, a := range eltwise.Algs() {
		out = append(out, a.String())
	}
	return out
}

var errBadWindow = errors.New("bad register window")

// parseWindow reads comma-separated indices and inclusive ranges.
func parseWindow(s string) (eltwise.IndexSet, error) {
	set := eltwise.NewIndexSet()
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(lo), "z"))
		if err != nil {
			return set, fmt.Errorf("%w %q", errBadWindow, s)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(hi), "z")); err != nil {
				return set, fmt.Errorf("%w %q", errBadWindow, s)
			}
		}
		if first < 0 || last >= asm.NumVecs || first > last {
			return set, fmt.Errorf("%w %q: registers are z0-z%d", errBadWindow, s, asm.NumVecs-1)
		}
		for i := first; i <= last; i++ {
			set.Add(i)
		}
	}
	if set.Len() == 0 {
		return set, fmt.Errorf("%w: empty", errBadWindow)
	}
	return set, nil
}

// resolve validates gc and converts it for the generator. Combinations the
// generator would reject with a panic become errors here.
func (gc GenConfig) resolve() (isa.ISA, eltwise.Config, eltwise.IndexSet, error) {
	var cfg eltwise.Config
	target, err := isa.Resolve(gc.ISA)
	if err != nil {
		return target, cfg, eltwise.IndexSet{}, err
	}
	alg, err := eltwise.ParseAlg(gc.Alg)
	if err != nil {
		return target, cfg, eltwise.IndexSet{}, err
	}
	dir, err := eltwise.ParseDirection(gc.Direction)
	if err != nil {
		return target, cfg, eltwise.IndexSet{}, err
	}
	if dir == eltwise.Backward && !alg.HasBackward() {
		return target, cfg, eltwise.IndexSet{}, fmt.Errorf("%s has no backward variant", alg)
	}
	if gc.UseDst && !alg.HasUseDst() {
		return target, cfg, eltwise.IndexSet{}, fmt.Errorf("%s has no use_dst variant", alg)
	}
	set, err := parseWindow(gc.Window)
	if err != nil {
		return target, cfg, set, err
	}
	cfg = eltwise.Config{
		Alg:       alg,
		Dir:       dir,
		Alpha:     gc.Alpha,
		Beta:      gc.Beta,
		Scale:     gc.Scale,
		UseDst:    gc.UseDst,
		SaveState: gc.SaveState,
	}
	return target, cfg, set, nil
}

// functionName is the symbol the kernel is emitted under.
func (gc GenConfig) functionName(cfg eltwise.Config) string {
	if gc.Name != "" {
		return gc.Name
	}
	dir := "fwd"
	if cfg.Dir == eltwise.Backward {
		dir = "bwd"
	}
	return fmt.Sprintf("eltwise_%s_%s", cfg.Alg, dir)
}
