/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Seann-Moser/servoseq/pkg/board"
	"github.com/Seann-Moser/servoseq/pkg/config"
	"github.com/Seann-Moser/servoseq/pkg/controller"
)

var (
	performOnce   bool
	performDryRun bool
	performPort   string
)

var performCmd = &cobra.Command{
	Use:   "perform <routine.csv|routine.yaml> [servo.csv]",
	Short: "Play a scene routine live on a board",
	Long: `perform resolves a routine and plays it on the configured board, writing
eased servo positions every sketch.update_interval_ms. The routine loops
until interrupted unless --once is given. With board.motion_line set, the
routine only plays while the motion sensor is active.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRoutine(args)
		if err != nil {
			return err
		}
		scenes, reset, err := r.Resolve()
		if err != nil {
			return err
		}

		bc := cfg.Board
		if performDryRun {
			bc.Kind = config.BoardDryRun
		}
		if performPort != "" {
			bc.Port = performPort
		}
		b, err := board.Open(bc, cfg.Servo.Profile())
		if err != nil {
			return err
		}
		defer b.Close()
		if f, ok := b.(*board.Firmata); ok {
			slog.Info("performing on firmata board", "port", f.Port())
		}

		opts := controller.Options{
			UpdateInterval: cfg.Sketch.UpdateInterval(),
			ResetDuration:  cfg.Sketch.ResetDuration(),
			Profile:        r.Profile,
			Once:           performOnce,
		}
		var motion *board.Motion
		if bc.MotionLine >= 0 {
			if motion, err = board.WatchMotion(bc.Chip, bc.MotionLine); err != nil {
				return err
			}
			defer motion.Close()
			opts.Sensor = motion
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		g, ctx := errgroup.WithContext(ctx)
		done := make(chan struct{})
		g.Go(func() error {
			defer close(done)
			return controller.New(b, scenes, reset, opts).Run(ctx)
		})
		if motion != nil {
			g.Go(func() error {
				watchMotion(ctx, done, motion, opts.UpdateInterval)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if rec, ok := b.(*board.Recorder); ok {
			slog.Info("dry run finished", "writes", len(rec.Writes()))
		}
		slog.Info("servoseq perform finished")
		return nil
	},
}

// watchMotion logs sensor changes until the routine is done.
func watchMotion(ctx context.Context, done <-chan struct{}, m *board.Motion, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := m.Active()
	slog.Info("motion sensor", "active", last)
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if a := m.Active(); a != last {
				last = a
				slog.Info("motion sensor", "active", a)
			}
		}
	}
}

func init() {
	performCmd.Flags().BoolVar(&performOnce, "once", false, "play the scenes once instead of looping")
	performCmd.Flags().BoolVar(&performDryRun, "dry-run", false, "record writes in memory instead of driving a board")
	performCmd.Flags().StringVar(&performPort, "port", "", "serial port of a firmata board, detected when empty")
	rootCmd.AddCommand(performCmd)
}
