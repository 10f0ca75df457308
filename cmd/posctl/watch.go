package main

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/pvzzle/posledger/internal/amount"
	"github.com/pvzzle/posledger/internal/logging"
	"github.com/pvzzle/posledger/internal/poller"
	"github.com/pvzzle/posledger/internal/render"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", poller.DefaultInterval, "Refresh interval")
	watchCmd.Flags().String("log-level", "error", "Log level for the poller")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show payment requests, refreshing periodically; type an ADA amount to create one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		interval, err := cmd.Flags().GetDuration("interval")
		if err != nil {
			return err
		}
		level, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		log, err := logging.New(level, "")
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		view := render.NewTerminalView(os.Stdout, time.Local)
		p := poller.New(c, view, log, interval)
		if err := p.Start(ctx); err != nil {
			return err
		}
		defer p.Stop()

		go func() {
			sc := bufio.NewScanner(os.Stdin)
			for sc.Scan() {
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					p.Refresh()
					continue
				}

				lovelace, err := amount.ParseAda(line)
				if err != nil {
					view.Warn("Please enter a valid amount")
					continue
				}
				rec, err := c.CreateTransaction(ctx, lovelace)
				if err != nil {
					view.Warn(describe(err))
					continue
				}
				view.Notice(render.FormatCreated(rec.PaymentRequest, rec.PaymentURI))
				p.Refresh()
			}
		}()

		<-ctx.Done()
		return nil
	},
}
