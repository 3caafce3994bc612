package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/btree-query-bench/lineindex/bench"
	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <data-file> <index-file> <key-width>",
		Short: "Build an index over the first key-width characters of every line",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			width, err := strconv.Atoi(args[2])
			if err != nil {
				return errors.Newf("key width %q is not a number", args[2])
			}
			out := cmd.OutOrStdout()
			a.eng = a.eng.WithDuplicateHandler(func(line int, key string) {
				printWarn(out, "Duplicate key %q on line %d skipped", key, line)
			})
			rep, err := a.eng.Create(args[0], args[1], width)
			if err != nil {
				return err
			}
			printOK(out, "Indexed %d of %d lines into %s", rep.Indexed, rep.Lines, args[1])
			return nil
		},
	}
}

func (a *app) findCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "find <index-file> <key>",
		Short: "Print the record stored under key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.eng.Find(args[0], args[1])
			if errors.Is(err, index.ErrKeyNotFound) {
				printWarn(cmd.OutOrStdout(), "Key %q not found", args[1])
				return nil
			}
			if err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func (a *app) insertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <index-file> <record>",
		Short: "Append a record to the data file and index it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.eng.Insert(args[0], args[1])
			if errors.Is(err, index.ErrDuplicateKey) {
				printWarn(cmd.OutOrStdout(), "Duplicate key, record not inserted")
				return nil
			}
			if err != nil {
				return err
			}
			printOK(cmd.OutOrStdout(), "Inserted at %d", r.Offset)
			return nil
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <index-file> <key> <count>",
		Short: "Print count records starting at key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[2])
			if err != nil {
				return errors.Newf("count %q is not a number", args[2])
			}
			recs, found, err := a.eng.List(args[0], args[1], count)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !found {
				printWarn(out, "Key %q not found, showing the following keys", args[1])
			}
			for _, r := range recs {
				printRecord(out, r)
			}
			return nil
		},
	}
}

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <index-file>",
		Short: "Print the shape of the stored tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, h, err := a.eng.Stats(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printOK(out, "%s", args[0])
			fmt.Fprintf(out, "  data file:  %s\n", h.DataPath)
			fmt.Fprintf(out, "  key width:  %d\n", st.KeyWidth)
			fmt.Fprintf(out, "  capacity:   %d\n", st.Capacity)
			fmt.Fprintf(out, "  keys:       %d\n", st.Keys)
			fmt.Fprintf(out, "  height:     %d\n", st.Height)
			fmt.Fprintf(out, "  nodes:      %d (%d internal, %d leaves)\n", st.Nodes, st.Internal, st.Leaves)
			fmt.Fprintf(out, "  occupancy:  %.1f%%\n", st.Occupancy)
			return nil
		},
	}
}

func (a *app) dotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dot <index-file> <out.dot>",
		Short: "Export the stored tree as a Graphviz digraph",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(args[1])
			if err != nil {
				return index.IOError(err, "cli: create dot file")
			}
			if err := a.eng.Dot(args[0], f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return index.IOError(err, "cli: close dot file")
			}
			printOK(cmd.OutOrStdout(), "Wrote %s", args[1])
			return nil
		},
	}
}

func (a *app) seedCommand() *cobra.Command {
	var records, width int
	var seed int64
	cmd := &cobra.Command{
		Use:   "seed <data-file>",
		Short: "Write a data file of fake records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bench.Seed(args[0], records, width, seed); err != nil {
				return err
			}
			printOK(cmd.OutOrStdout(), "Seeded %d records into %s", records, args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&records, "records", 1000, "number of records")
	cmd.Flags().IntVar(&width, "key-width", 8, "width of the numeric key prefix")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for the key order")
	return cmd
}

func (a *app) benchCommand() *cobra.Command {
	var csvPath, plotPath string
	cmd := &cobra.Command{
		Use:   "bench <index-file>",
		Short: "Compare lookups on the stored tree against a Pebble reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Bench
			if cmd.Flags().Changed("csv") {
				cfg.CSV = csvPath
			}
			if cmd.Flags().Changed("plot") {
				cfg.Plot = plotPath
			}

			tree, _, err := a.eng.Load(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rep, err := bench.Run(ctx, tree, cfg, a.log)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range rep.Results {
				fmt.Fprintf(out, "%-8s %-6s %10d ops %8d ns/op %6d MB\n", r.Index, r.Operation, r.Ops, r.LatencyNs, r.MemMB)
			}
			if cfg.CSV != "" {
				if err := writeCSV(cfg.CSV, rep); err != nil {
					return err
				}
			}
			if cfg.Plot != "" {
				if err := rep.Plot(cfg.Plot); err != nil {
					return err
				}
			}
			a.log.Info("bench finished", zap.Int("entries", rep.Entries), zap.Int("mismatches", rep.Mismatches))
			printOK(out, "All %d entries agree with the reference index", rep.Entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "write results as CSV to this file")
	cmd.Flags().StringVar(&plotPath, "plot", "", "save a latency chart to this file (.png, .svg, .pdf)")
	return cmd
}

func writeCSV(path string, rep bench.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return index.IOError(err, "cli: create csv")
	}
	if err := rep.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return index.IOError(f.Close(), "cli: close csv")
}
