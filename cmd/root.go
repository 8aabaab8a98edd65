/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/servoseq/pkg/config"
	"github.com/Seann-Moser/servoseq/pkg/logging"
	"github.com/Seann-Moser/servoseq/pkg/table"
)

var (
	configPath string
	verbose    bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "servoseq",
	Short: "Generate and play servo and GPIO sequences",
	Long: `servoseq turns CSV and YAML tables of actuator motion into Arduino sketches,
plays scene routines live on a board, and bridges websocket frame streams to
a board over Firmata.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(logging.New(verbose, os.Stderr))
		c, found, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if found {
			slog.Debug("config loaded", "path", configPath)
		}
		cfg = c
		return nil
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			slog.Info("stopping", "signal", s.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// sketchPath appends the .ino extension when missing.
func sketchPath(p string) string {
	if !strings.EqualFold(filepath.Ext(p), ".ino") {
		return p + ".ino"
	}
	return p
}

// writeSketch renders into path, refusing to replace an existing file when
// noClobber is set.
func writeSketch(path string, noClobber bool, render func(f *os.File) error) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if noClobber {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("create sketch: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

// loadRoutine loads a routine with its optional servo table and the
// configured default servo profile.
func loadRoutine(args []string) (*table.Routine, error) {
	servoPath := ""
	if len(args) > 1 {
		servoPath = args[1]
	}
	r, err := table.LoadRoutineFiles(args[0], servoPath)
	if err != nil {
		return nil, err
	}
	r.Default = cfg.Servo.Profile()
	for _, p := range r.UnusedServos() {
		slog.Warn("servo is not used in routine", "pin", p)
	}
	return r, nil
}
