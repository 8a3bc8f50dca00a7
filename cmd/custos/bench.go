package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"time"

	"github.com/Suad0/custos/autodiff"
	"github.com/Suad0/custos/backend/cpu"
	"github.com/Suad0/custos/device"
	"github.com/Suad0/custos/ops"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type benchResult struct {
	stack   string
	epochs  int
	elapsed time.Duration
	loss    float32
	allocs  cpu.Stats
	cache   string
}

type benchFunc func(n, epochs int) (benchResult, error)

var stacks = map[string]benchFunc{
	"base": func(n, epochs int) (benchResult, error) {
		return runBench(device.Base{}, n, epochs)
	},
	"cached": func(n, epochs int) (benchResult, error) {
		return runBench(device.NewCached(device.Base{}), n, epochs)
	},
	"lazy": func(n, epochs int) (benchResult, error) {
		return runBench(device.NewLazy(device.Base{}), n, epochs)
	},
	"autograd": func(n, epochs int) (benchResult, error) {
		return runBench(autodiff.NewAutograd(device.Base{}), n, epochs)
	},
	"cached+autograd": func(n, epochs int) (benchResult, error) {
		return runBench(device.NewCached(autodiff.NewAutograd(device.Base{})), n, epochs)
	},
	"cached+lazy": func(n, epochs int) (benchResult, error) {
		return runBench(device.NewCached(device.NewLazy(device.Base{})), n, epochs)
	},
	"cached+lazy+autograd": func(n, epochs int) (benchResult, error) {
		return runBench(device.NewCached(device.NewLazy(autodiff.NewAutograd(device.Base{}))), n, epochs)
	},
}

func stackNames() []string {
	names := make([]string, 0, len(stacks))
	for name := range stacks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func newBenchCmd() *cobra.Command {
	var (
		n       int
		epochs  int
		workers int
	)
	cmd := &cobra.Command{
		Use:   "bench [stack...]",
		Short: "Run sum(a*b) with backward over module stacks",
		Long:  "Run sum(a*b), with backward where the stack has autograd, and report time and allocations per stack.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 || epochs <= 0 {
				return errors.Errorf("len and epochs must be positive, got %d and %d", n, epochs)
			}
			if len(args) == 0 {
				args = stackNames()
			}
			cpu.SetWorkers(workers)
			var results []benchResult
			for _, name := range args {
				run, ok := stacks[name]
				if !ok {
					return errors.Errorf("unknown stack %q, want one of %v", name, stackNames())
				}
				res, err := run(n, epochs)
				if err != nil {
					return errors.WithMessagef(err, "stack %s", name)
				}
				res.stack = name
				results = append(results, res)
			}
			printResults(cmd.OutOrStdout(), n, results)
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "len", 1<<16, "number of elements per buffer")
	cmd.Flags().IntVar(&epochs, "epochs", 100, "number of epochs")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "goroutines per host kernel, 1 runs sequentially")
	return cmd
}

func runBench[M device.Module](modules M, n, epochs int) (res benchResult, err error) {
	backend := cpu.New()
	dev, err := device.New(backend, modules)
	if err != nil {
		return res, err
	}
	defer func() {
		if closeErr := dev.Close(); err == nil {
			err = closeErr
		}
	}()

	data := make([]float32, n)
	for i := range data {
		data[i] = 1
	}
	a, err := device.FromSlice(dev, data)
	if err != nil {
		return res, err
	}
	b, err := device.FromSlice(dev, data)
	if err != nil {
		return res, err
	}
	_, differentiable := dev.Tape()

	start := time.Now()
	for range dev.Range(0, epochs) {
		if differentiable {
			if err := dev.ZeroGrad(); err != nil {
				return res, err
			}
		}
		prod, err := ops.Mul(a, b)
		if err != nil {
			return res, err
		}
		loss, err := ops.Sum(prod)
		if err != nil {
			return res, err
		}
		if differentiable {
			err = loss.Backward()
		} else {
			err = dev.Run()
		}
		if err != nil {
			return res, err
		}
		values, err := loss.Read()
		if err != nil {
			return res, err
		}
		res.loss = values[0]
		if err := prod.Release(); err != nil {
			return res, err
		}
		if err := loss.Release(); err != nil {
			return res, err
		}
	}
	res.elapsed = time.Since(start)
	res.epochs = epochs
	res.allocs = backend.Stats()
	if c, ok := dev.Cache(); ok {
		res.cache = c.String()
	}
	return res, nil
}

func printResults(w io.Writer, n int, results []benchResult) {
	fmt.Fprintf(w, "%s elements of float32 per buffer, %d kernel workers\n", humanize.Comma(int64(n)), cpu.Workers())
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"STACK", "PER EPOCH", "LOSS", "ALLOCATIONS", "CACHE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	for _, r := range results {
		cache := r.cache
		if cache == "" {
			cache = "-"
		}
		perEpoch := r.elapsed / time.Duration(r.epochs)
		table.Append([]string{r.stack, perEpoch.String(), fmt.Sprint(r.loss), r.allocs.String(), cache})
	}
	table.Render()
}
