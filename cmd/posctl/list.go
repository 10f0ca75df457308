package main

import (
	"fmt"
	"time"

	"github.com/pvzzle/posledger/internal/render"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List payment requests in creation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		output, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		items, err := c.ListTransactions(cmd.Context())
		if err != nil {
			return err
		}

		if output == outputFlagValJSON {
			return printJSON(items)
		}
		fmt.Print(render.FormatList(items, time.Local))
		return nil
	},
}
