/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/servoseq/pkg/board"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports a Firmata board may be attached to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := board.Ports()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}
		rows := make([][]string, 0, len(ports))
		for _, p := range ports {
			usb := ""
			if p.IsUSB {
				usb = p.VID + ":" + p.PID
			}
			rows = append(rows, []string{p.Name, usb, p.Product, p.SerialNumber})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Port", "USB", "Product", "Serial"}, rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
