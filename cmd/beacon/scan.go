package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func scanCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the local subnet once and print the genesis address",
		RunE: func(c *cobra.Command, args []string) error {
			scanner, err := a.scanner()
			if err != nil {
				return err
			}
			info, err := scanner.Scan(c.Context())
			if err != nil {
				return err
			}
			if info == nil {
				fmt.Fprintln(c.OutOrStdout(), "none")
				return nil
			}
			fmt.Fprintln(c.OutOrStdout(), info.Address)
			return nil
		},
	}
}
