package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/eltwise"
	"github.com/raymyers/ralph-eltwise/pkg/sim"
	"github.com/raymyers/ralph-eltwise/pkg/stacking"
	"github.com/spf13/cobra"
)

func newGenCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "gen",
		Short: "Print the generated assembly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gc, err := settings(cmd)
			if err != nil {
				return err
			}
			k, err := buildKernel(gc)
			if err != nil {
				return err
			}
			if dumpCode || perfMap {
				if _, err := k.load(sim.Options{}); err != nil {
					return err
				}
			}
			fmt.Fprint(out, k.listing())
			return nil
		},
	}
}

func newRunCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the generated code on the simulator and print the results",
		Long: `Run generates the kernel, spreads the --input values over the lanes of
the window registers in order and prints the transformed values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gc, err := settings(cmd)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no input values; pass --input")
			}
			size, err := units.RAMInBytes(stackSize)
			if err != nil {
				return fmt.Errorf("stack size: %w", err)
			}
			k, err := buildKernel(gc)
			if err != nil {
				return err
			}
			m, err := k.load(sim.Options{StackSize: int(size)})
			if err != nil {
				return err
			}
			res, err := runKernel(k, m, inputs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatFloats(res))
			return nil
		},
	}
	cmd.Flags().Float32SliceVarP(&inputs, "input", "i", nil, "Comma-separated input values")
	cmd.Flags().StringVar(&stackSize, "stack-size", "1MiB", "Simulator stack size")
	return cmd
}

// runKernel fills the window lane by lane, repeating the last input into
// unused lanes, and returns one result per input.
func runKernel(k *kernel, m *sim.Machine, xs []float32) ([]float32, error) {
	regs := k.set.Slice()
	lanes := m.Lanes()
	if len(xs) > len(regs)*lanes {
		return nil, fmt.Errorf("%d inputs do not fit %d registers of %d lanes", len(xs), len(regs), lanes)
	}
	for i, r := range regs {
		vals := make([]float32, lanes)
		for l := range vals {
			vals[l] = xs[min(i*lanes+l, len(xs)-1)]
		}
		m.SetVecF(asm.ZReg(r), vals...)
	}
	if err := m.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w", k.fn.Name, err)
	}
	slog.Debug("ran", "name", k.fn.Name, "steps", m.Steps(), "powf_calls", m.Calls(eltwise.PowSymbol))

	out := make([]float32, 0, len(regs)*lanes)
	for _, r := range regs {
		out = append(out, m.VecF(asm.ZReg(r))...)
	}
	return out[:len(xs)], nil
}

func formatFloats(vs []float32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		switch {
		case math.IsNaN(float64(v)):
			parts[i] = "nan"
		default:
			parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
	}
	return strings.Join(parts, " ")
}

func newTableCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "List the constant table entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gc, err := settings(cmd)
			if err != nil {
				return err
			}
			k, err := buildKernel(gc)
			if err != nil {
				return err
			}
			tbl := k.g.Table()
			tw := tabwriter.NewWriter(out, 0, 4, 1, ' ', 0)
			fmt.Fprintln(tw, "offset\tkey\tkind\tbits\tvalue")
			for _, e := range tbl.Entries() {
				kind := "lane"
				if e.Bcast {
					kind = "bcast"
				}
				fmt.Fprintf(tw, "%#06x\t%s\t%s\t%#08x\t%s\n", e.Off, e.Key, kind, e.Val,
					strconv.FormatFloat(float64(math.Float32frombits(e.Val)), 'g', -1, 32))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d entries, %s\n", tbl.Len(), units.BytesSize(float64(tbl.Size())))
			return nil
		},
	}
}

func newCountsCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Print the scratch register counts and stack usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gc, err := settings(cmd)
			if err != nil {
				return err
			}
			k, err := buildKernel(gc)
			if err != nil {
				return err
			}
			vecs, gprs := k.g.AuxVecsCount(), k.g.AuxGPRsCount()
			frame := stacking.PairBytes(len(k.saved))
			if k.cfg.SaveState {
				frame += stacking.PairBytes(1+gprs) + stacking.VecAreaSize(vecs, k.target.VLen)
			}
			fmt.Fprintf(out, "aux_vecs: %d\n", vecs)
			fmt.Fprintf(out, "aux_gprs: %d\n", gprs)
			fmt.Fprintf(out, "table: %s\n", units.BytesSize(float64(k.g.Table().Size())))
			fmt.Fprintf(out, "frame: %s\n", units.BytesSize(float64(frame)))
			fmt.Fprintf(out, "call_frame: %s\n", units.BytesSize(float64(k.g.CallFrameSize())))
			return nil
		},
	}
}
