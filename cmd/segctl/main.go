// segctl is a read-only operator CLI for inspecting the segment index
// of a running deployment.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/index"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
)

func main() {
	var dbPath string

	root := &cobra.Command{
		Use:           "segctl",
		Short:         "Inspect the segment index",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "/storage/index/segments.db", "path to the segment index database")

	root.AddCommand(statsCmd(&dbPath), recentCmd(&dbPath), findCmd(&dbPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func openReader(dbPath string) *index.Reader {
	return index.OpenReader(dbPath, zap.NewNop())
}

func statsCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := openReader(*dbPath)
			defer reader.Close()

			stats, err := reader.Stats(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("segments: %d\n", stats.TotalSegments)
			if stats.OldestSegment != nil {
				fmt.Printf("oldest:   seq %d (%.1fs)\n", stats.OldestSegment.Sequence, stats.OldestSegment.Start)
			}
			if stats.NewestSegment != nil {
				fmt.Printf("newest:   seq %d (%.1fs)\n", stats.NewestSegment.Sequence, stats.NewestSegment.End)
			}
			fmt.Printf("covered:  %.1fs\n", stats.TotalDuration)
			return nil
		},
	}
}

func recentCmd(dbPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recently indexed segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := openReader(*dbPath)
			defer reader.Close()

			segments, err := reader.Recent(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(segments) == 0 {
				fmt.Println("index is empty")
				return nil
			}
			for _, s := range segments {
				printSegment(s)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of segments to list")
	return cmd
}

func findCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "find <timestamp|seq:N>",
		Short: "Find a segment by stream timestamp or sequence number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := openReader(*dbPath)
			defer reader.Close()

			ctx := context.Background()
			arg := args[0]

			var (
				seg *model.Segment
				err error
			)
			if len(arg) > 4 && arg[:4] == "seq:" {
				seq, perr := strconv.ParseInt(arg[4:], 10, 64)
				if perr != nil {
					return fmt.Errorf("invalid sequence %q", arg[4:])
				}
				seg, err = reader.BySequence(ctx, seq)
			} else {
				ts, perr := strconv.ParseFloat(arg, 64)
				if perr != nil {
					return fmt.Errorf("invalid timestamp %q", arg)
				}
				seg, err = reader.ByTime(ctx, ts)
			}
			if err != nil {
				return err
			}
			if seg == nil {
				fmt.Println("no match")
				return nil
			}
			printSegment(*seg)
			return nil
		},
	}
}

func printSegment(s model.Segment) {
	fmt.Printf("seq %6d  %8.1fs - %8.1fs  %-24s indexed %s\n",
		s.Sequence, s.Start, s.End, s.Filename, s.CreatedAt)
}
