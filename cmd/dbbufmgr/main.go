// Command dbbufmgr is a small demonstration/debug harness for the buffer
// pool: it opens a data file, wires a pool over it, touches a few pages,
// and prints the pool's diagnostic state. It plays the same role the
// teacher's root main.go played — wiring a file and a pool together and
// exercising a handful of operations — but as a flag-driven, runnable
// command instead of inline code.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LunaBestPone/dbbufmgr/bufferpool"
	"github.com/LunaBestPone/dbbufmgr/file"
	"github.com/LunaBestPone/dbbufmgr/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		poolSize uint32
		dataFile string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "dbbufmgr",
		Short: "Demonstrates the clock-based buffer pool manager over a data file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger(logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			f, err := file.Open(dataFile)
			if err != nil {
				return err
			}
			defer f.Close()

			bp := bufferpool.New(poolSize,
				bufferpool.WithLogger(logger),
				bufferpool.WithMetrics(metrics.New()),
			)
			defer bp.Close()

			return runDemo(bp, f, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.Uint32Var(&poolSize, "pool-size", 3, "number of frames in the buffer pool")
	flags.StringVar(&dataFile, "data-file", "dbbufmgr.db", "path to the data file to serve pages from")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, or error")

	return cmd
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	return cfg.Build()
}

// runDemo allocates a page, writes to it, unpins it dirty, prints the
// pool's diagnostics, then reads the page back (a pool hit) and prints its
// first word. It does not force an eviction or a write-back.
func runDemo(bp *bufferpool.BufferPool, f *file.File, out interface {
	Write([]byte) (int, error)
}) error {
	pageNo, p, err := bp.AllocPage(f)
	if err != nil {
		return fmt.Errorf("alloc page: %w", err)
	}
	p.SetInt(0, 42)
	if err := bp.UnpinPage(f, pageNo, true); err != nil {
		return fmt.Errorf("unpin page %d: %w", pageNo, err)
	}

	bp.PrintSelf(out)

	readBack, err := bp.ReadPage(f, pageNo)
	if err != nil {
		return fmt.Errorf("read page %d: %w", pageNo, err)
	}
	fmt.Fprintf(out, "page %d contents[0]=%d\n", pageNo, readBack.GetInt(0))
	return bp.UnpinPage(f, pageNo, false)
}
