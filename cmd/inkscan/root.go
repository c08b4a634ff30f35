package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/toricodesthings/ink-to-pixels/internal/version"
)

// NewRootCmd creates the inkscan command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inkscan",
		Short: "Turn scanned pages into text",
		Long: `inkscan captures a batch of page images, recognizes the text on every
page concurrently and prints the pages' text joined in page order.`,
		Version:       version.Get(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
