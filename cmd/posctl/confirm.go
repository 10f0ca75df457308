package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(confirmCmd)
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <id> <tx-hash>",
	Short: "Attach a transaction hash reported out of band",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		rec, err := c.Confirm(cmd.Context(), id, args[1])
		if err != nil {
			return err
		}

		if output == outputFlagValJSON {
			return printJSON(rec)
		}
		if rec.TxHash != args[1] {
			fmt.Printf("Request #%d was already confirmed with %s\n", rec.ID, rec.TxHash)
			return nil
		}
		fmt.Printf("Request #%d confirmed with %s\n", rec.ID, rec.TxHash)
		return nil
	},
}
