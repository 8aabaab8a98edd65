/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/servoseq/pkg/board"
	"github.com/Seann-Moser/servoseq/pkg/config"
	"github.com/Seann-Moser/servoseq/pkg/controller"
	"github.com/Seann-Moser/servoseq/pkg/sequence"
	"github.com/Seann-Moser/servoseq/pkg/table"
)

var (
	sweepDuration time.Duration
	sweepEaseIn   time.Duration
	sweepEaseOut  time.Duration
	sweepSettle   time.Duration
	sweepName     string
	sweepReverse  bool
	sweepAppend   string
	sweepServos   string
	sweepDryRun   bool
	sweepPort     string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep <pin> <start> <end>",
	Short: "Sweep one servo between two positions",
	Long: `sweep moves the servo on <pin> to <start>, waits --settle, then eases it to
<end> over --time. --reverse sweeps back to <start> afterwards.

--append adds every sweep to a routine table, one scene each, so a session
of sweeps can be replayed with "perform --once" or turned into a sketch
with "routine".`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var nums [3]int
		for i, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil || n < 0 {
				return fmt.Errorf("%q is not a non-negative integer", a)
			}
			nums[i] = n
		}
		p, start, end := nums[0], nums[1], nums[2]

		servos, err := table.LoadProfiles(sweepServos)
		if err != nil {
			return err
		}
		r := &table.Routine{Servos: servos, Default: cfg.Servo.Profile()}
		if full := r.Profile(p).FullSweep; start > full || end > full {
			return fmt.Errorf("pin %d sweeps %d degrees, %d to %d is out of range", p, full, start, end)
		}

		name := sweepName
		if name == "" {
			name = fmt.Sprintf("sweep pin %d", p)
		}
		sweeps := []sequence.Sweep{{Pin: p, Name: name, Start: start, End: end, Duration: sweepDuration, EaseIn: sweepEaseIn, EaseOut: sweepEaseOut}}
		if sweepReverse {
			sweeps = append(sweeps, sequence.Sweep{Pin: p, Name: name + " back", Start: end, End: start, Duration: sweepDuration, EaseIn: sweepEaseIn, EaseOut: sweepEaseOut})
		}
		r.Actions = []sequence.SweepAction{{Scene: 0, Pin: p, Position: start}}
		for i, sw := range sweeps {
			r.Actions = append(r.Actions, sequence.SweepAction{
				Scene:    i + 1,
				Name:     sw.Name,
				Pin:      sw.Pin,
				Position: sw.End,
				Duration: sw.Duration,
				EaseIn:   sw.EaseIn,
				EaseOut:  sw.EaseOut,
			})
		}
		scenes, reset, err := r.Resolve()
		if err != nil {
			return err
		}

		bc := cfg.Board
		if sweepDryRun {
			bc.Kind = config.BoardDryRun
		}
		if sweepPort != "" {
			bc.Port = sweepPort
		}
		b, err := board.Open(bc, cfg.Servo.Profile())
		if err != nil {
			return err
		}
		defer b.Close()

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		started := time.Now()
		err = controller.New(b, scenes, reset, controller.Options{
			UpdateInterval: cfg.Sketch.UpdateInterval(),
			ResetDuration:  sweepSettle,
			Profile:        r.Profile,
			Once:           true,
			Hold:           true,
		}).Run(ctx)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			slog.Info("sweep interrupted, not recorded")
			return nil
		}
		slog.Info("sweep finished", "pin", p, "from", start, "to", end, "took", time.Since(started).Round(time.Millisecond))

		if sweepAppend == "" {
			return nil
		}
		w := table.NewRoutineWriter(sweepAppend)
		for _, sw := range sweeps {
			if err := w.Append(sw); err != nil {
				return err
			}
		}
		slog.Info("sweep appended", "path", w.Path(), "scenes", len(sweeps))
		return nil
	},
}

func init() {
	sweepCmd.Flags().DurationVarP(&sweepDuration, "time", "t", 3*time.Second, "duration of the sweep")
	sweepCmd.Flags().DurationVar(&sweepEaseIn, "ease-in", 0, "time spent accelerating at the start of the sweep")
	sweepCmd.Flags().DurationVar(&sweepEaseOut, "ease-out", 0, "time spent decelerating at the end of the sweep")
	sweepCmd.Flags().DurationVar(&sweepSettle, "settle", 500*time.Millisecond, "time to wait at the start position")
	sweepCmd.Flags().StringVar(&sweepName, "name", "", "scene name written with --append")
	sweepCmd.Flags().BoolVarP(&sweepReverse, "reverse", "r", false, "sweep back to the start position afterwards")
	sweepCmd.Flags().StringVarP(&sweepAppend, "append", "a", "", "routine CSV to append the sweep to")
	sweepCmd.Flags().StringVar(&sweepServos, "servos", "", "servo table with the pin's sweep and pulse range")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "record writes in memory instead of driving a board")
	sweepCmd.Flags().StringVar(&sweepPort, "port", "", "serial port of a firmata board, detected when empty")
	rootCmd.AddCommand(sweepCmd)
}
