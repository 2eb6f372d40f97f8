// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCoversCommand(services func() *app) *cobra.Command {
	command := &cobra.Command{
		Use:   "covers",
		Short: "Maintain the local cover cache",
	}

	command.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Download every external thumbnail and point books at the local copy",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				report, err := services().coverService.MigrateExternal(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, report.Message)
				for _, detail := range report.ErrorDetails {
					fmt.Fprintln(out, "  -", detail)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "cleanup",
			Short: "Delete cover files no book or wishlist entry references",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				report, err := services().coverService.Cleanup(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Nettoyage terminé: %d supprimées, %d conservées\n", report.Deleted, report.Kept)
				for _, detail := range report.Errors {
					fmt.Fprintln(out, "  -", detail)
				}
				return nil
			},
		},
	)

	return command
}
