package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/viper-lang/viper/internal/replshell"
	"github.com/viper-lang/viper/internal/vm"
)

func newReplCmd() *cobra.Command {
	var (
		engine       string
		boundsChecks bool
	)
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive IL session shell",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dispatch, err := vm.ParseDispatchMode(engine)
		if err != nil {
			return errorf("%v", err)
		}
		shell := replshell.New(replshell.Config{
			Version:      Version,
			Dispatch:     dispatch,
			BoundsChecks: boundsChecks,
		})
		shell.Start(os.Stdin, os.Stdout)
		return nil
	}
	cmd.Flags().StringVar(&engine, "engine", "switch", "initial VM dispatch strategy: switch|table")
	cmd.Flags().BoolVar(&boundsChecks, "bounds-checks", true, "enable array bounds checking")
	return cmd
}
