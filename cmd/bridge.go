/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/servoseq/pkg/board"
	"github.com/Seann-Moser/servoseq/pkg/bridge"
	"github.com/Seann-Moser/servoseq/pkg/table"
)

var (
	bridgeListen string
	bridgeRecord string
	bridgeDryRun bool
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Forward websocket frame messages to a Firmata board",
	Long: `bridge serves a websocket that accepts JSON frames holding a serial port,
a frame number and pin_X, value_X and type_X keys per channel, and writes
each channel to the board on that port. --record appends every frame to a
CSV file that the frames command can turn into a sketch.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen := cfg.Bridge.Listen
		if cmd.Flags().Changed("listen") {
			listen = bridgeListen
		}
		record := cfg.Bridge.Record
		if cmd.Flags().Changed("record") {
			record = bridgeRecord
		}

		opts := bridge.Options{Logger: slog.Default()}
		if record != "" {
			opts.Record = table.NewFrameWriter(record)
			slog.Info("recording frames", "path", record)
		}
		open := func(port string) (board.Board, error) {
			bc := cfg.Board
			if bridgeDryRun {
				return board.NewRecorder(), nil
			}
			if port != "" {
				bc.Port = port
			}
			return board.OpenFirmata(bc)
		}
		srv := bridge.New(open, opts)

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		if err := srv.ListenAndServe(ctx, listen); err != nil {
			return err
		}
		slog.Info("servoseq bridge finished")
		return nil
	},
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeListen, "listen", "127.0.0.1:22300", "address to serve the websocket on")
	bridgeCmd.Flags().StringVarP(&bridgeRecord, "record", "c", "", "CSV file to record received frames to")
	bridgeCmd.Flags().BoolVar(&bridgeDryRun, "dry-run", false, "accept frames without a board")
	rootCmd.AddCommand(bridgeCmd)
}
