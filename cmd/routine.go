/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/servoseq/pkg/sketch"
)

var (
	routineOut       string
	routineMotionPin int
	routineNoClobber bool
)

var routineCmd = &cobra.Command{
	Use:   "routine <routine.csv|routine.yaml> [servo.csv]",
	Short: "Generate a multi-servo Arduino sketch from a scene routine",
	Long: `routine resolves a table of scenes into eased servo sweeps and writes a
sketch that runs the reset scene once and then loops the remaining scenes.
The optional servo table sets each servo's sweep, pulse range and standby
position.`,
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
		motionPin := cfg.Sketch.MotionPin
		if cmd.Flags().Changed("motion-pin") {
			motionPin = routineMotionPin
		}
		s, err := sketch.NewRoutineSketch(scenes, reset, r.Profile, sketch.RoutineOptions{
			UpdateInterval: cfg.Sketch.UpdateInterval(),
			ResetDuration:  cfg.Sketch.ResetDuration(),
			MotionPin:      motionPin,
			Standby:        func(p int) int { return r.Standby(p, cfg.Servo.Standby) },
		})
		if err != nil {
			return err
		}

		out := sketchPath(routineOut)
		if err := writeSketch(out, routineNoClobber, func(f *os.File) error { return sketch.RenderRoutine(f, s) }); err != nil {
			return err
		}
		slog.Info("sketch written", "path", out, "servos", len(s.Servos), "scenes", len(s.Scenes))
		return nil
	},
}

func init() {
	routineCmd.Flags().StringVarP(&routineOut, "output", "o", "ServoSequence.ino", "sketch to write")
	routineCmd.Flags().IntVar(&routineMotionPin, "motion-pin", -1, "input pin of a motion sensor that gates the routine, -1 for none")
	routineCmd.Flags().BoolVarP(&routineNoClobber, "no-clobber", "n", false, "fail instead of overwriting an existing sketch")
	rootCmd.AddCommand(routineCmd)
}
