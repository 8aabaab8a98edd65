/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/servoseq/pkg/sketch"
	"github.com/Seann-Moser/servoseq/pkg/table"
)

var framesNoClobber bool

var framesCmd = &cobra.Command{
	Use:   "frames <csv> <sketch> [fps]",
	Short: "Generate an Arduino sketch from a CSV of per-frame output values",
	Long: `frames reads a table with a frame column and pin_X, value_X and type_X
columns for each channel X, compresses every channel into a delta-zero table
and writes a sketch that replays the frames in a loop. fps defaults to
sketch.fps from the configuration.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		fps := cfg.Sketch.FPS
		if len(args) == 3 {
			v, err := strconv.Atoi(args[2])
			if err != nil || v <= 0 {
				return fmt.Errorf("fps %q must be a positive integer", args[2])
			}
			fps = v
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		ft, err := table.ReadFrames(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		s, err := sketch.NewFrameSketch(ft, fps)
		if err != nil {
			return err
		}

		out := sketchPath(args[1])
		if err := writeSketch(out, framesNoClobber, func(f *os.File) error { return sketch.RenderFrames(f, s) }); err != nil {
			return err
		}
		slog.Info("sketch written", "path", out, "channels", len(s.Channels), "frames", s.FrameCount, "fps", fps)
		return nil
	},
}

func init() {
	framesCmd.Flags().BoolVarP(&framesNoClobber, "no-clobber", "n", false, "fail instead of overwriting an existing sketch")
	rootCmd.AddCommand(framesCmd)
}
