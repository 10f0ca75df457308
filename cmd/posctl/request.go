package main

import (
	"fmt"
	"strconv"

	"github.com/pvzzle/posledger/internal/amount"
	"github.com/pvzzle/posledger/internal/render"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.Flags().Bool("lovelace", false, "Treat the amount as lovelace instead of ADA")
}

var requestCmd = &cobra.Command{
	Use:   "request <amount>",
	Short: "Create a payment request for an ADA amount",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		inLovelace, err := cmd.Flags().GetBool("lovelace")
		if err != nil {
			return err
		}

		lovelace, err := parseAmountArg(args[0], inLovelace)
		if err != nil {
			return err
		}

		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		rec, err := c.CreateTransaction(cmd.Context(), lovelace)
		if err != nil {
			return err
		}

		if output == outputFlagValJSON {
			return printJSON(rec)
		}
		fmt.Println(render.FormatCreated(rec.PaymentRequest, rec.PaymentURI))
		return nil
	},
}

func parseAmountArg(s string, inLovelace bool) (int64, error) {
	if !inLovelace {
		return amount.ParseAda(s)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, amount.ErrInvalidAmount
	}
	return v, nil
}
