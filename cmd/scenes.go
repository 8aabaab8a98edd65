/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/servoseq/pkg/sequence"
)

var scenesCmd = &cobra.Command{
	Use:   "scenes <routine.csv|routine.yaml> [servo.csv]",
	Short: "Print the resolved scenes of a routine",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRoutine(args)
		if err != nil {
			return err
		}
		scenes, _, err := r.Resolve()
		if err != nil {
			return err
		}

		var rows [][]string
		for _, sc := range scenes {
			if len(sc.Sweeps) == 0 {
				rows = append(rows, []string{strconv.Itoa(sc.ID), ms(sc.Duration), "", "(delay)", "", "", "", "", ""})
				continue
			}
			for _, sw := range sc.Sweeps {
				p := r.Profile(sw.Pin)
				rows = append(rows, []string{
					strconv.Itoa(sc.ID),
					ms(sc.Duration),
					strconv.Itoa(sw.Pin),
					sw.Name,
					strconv.Itoa(sw.Start),
					strconv.Itoa(sw.End),
					fmt.Sprintf("%d-%d", p.Pulse(sw.Start), p.Pulse(sw.End)),
					ms(sw.Duration),
					ms(sw.EaseIn) + "/" + ms(sw.EaseOut),
				})
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Scene", "Length", "Pin", "Name", "From", "To", "Pulse (us)", "Time", "Ease in/out"},
			rows, 0, 1, 2, 4, 5, 7,
		))
		fmt.Fprintf(cmd.OutOrStdout(), "%d scenes moving pins %v\n", len(scenes), sequence.Pins(scenes))
		return nil
	},
}

func ms(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}

func init() {
	rootCmd.AddCommand(scenesCmd)
}
