package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dc0d/onexit"
	"github.com/raymyers/ralph-eltwise/pkg/jitdump"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = "0.1.0"

// Flags shared by every subcommand. Generation flags live in genFlags and
// override the --config file field by field.
var (
	configPath string
	verbose    bool
	dumpCode   bool
	dumpDir    string
	perfMap    bool
	genFlags   GenConfig
)

// Flags of the run subcommand
var (
	inputs    []float32
	stackSize string
)

// main exits through onexit so the perf map is flushed.
func main() {
	onexit.ForceExit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ralph-eltwise: %v\n", err)
		return 1
	}
	return 0
}

// normalizeFlagName lets snake_case spellings, as used in config files,
// stand in for the dashed flag names (--use_dst for --use-dst).
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-eltwise",
		Short: "ralph-eltwise generates SVE code for element-wise activations",
		Long: `ralph-eltwise generates AArch64 SVE code that applies an activation
function (relu, tanh, gelu, ...) or its derivative in place to a window of
vector registers, and runs it on a built-in simulator.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(errOut)
			if dumpCode || perfMap {
				jitdump.Configure(jitdump.Options{
					Dump:    dumpCode,
					DumpDir: dumpDir,
					PerfMap: perfMap,
					Logger:  slog.Default(),
				})
			}
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML file with generation settings")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log debug details to stderr")
	pf.BoolVar(&dumpCode, "dump", false, "Write each generated image to a dump file")
	pf.StringVar(&dumpDir, "dump-dir", "", "Directory for dump files (default: working directory)")
	pf.BoolVar(&perfMap, "perf-map", false, "Append generated code to /tmp/perf-<pid>.map")
	addGenFlags(pf, &genFlags)

	rootCmd.AddCommand(newGenCmd(out), newRunCmd(out), newTableCmd(out), newCountsCmd(out))
	return rootCmd
}

func setupLogging(errOut io.Writer) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level})))
}

// settings merges defaults, the --config file and explicitly set flags,
// in that order.
func settings(cmd *cobra.Command) (GenConfig, error) {
	gc := DefaultGenConfig()
	if configPath != "" {
		if err := gc.LoadFile(configPath); err != nil {
			return gc, err
		}
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if apply, ok := genFlagSetters[f.Name]; ok {
			apply(&gc, &genFlags)
		}
	})
	return gc, nil
}
