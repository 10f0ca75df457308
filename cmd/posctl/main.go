package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pvzzle/posledger/internal/client"

	"github.com/spf13/cobra"
)

const (
	serverFlagName = "server"
	outputFlagName = "output"

	outputFlagValJSON  = "json"
	outputFlagValHuman = "human"
)

var rootCmd = &cobra.Command{
	Use:           "posctl",
	Short:         "Create and follow ADA payment requests",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String(serverFlagName, envOr("POSLEDGER_URL", "http://localhost:3000"), "Payment request API base URL")
	rootCmd.PersistentFlags().String(outputFlagName, outputFlagValHuman, "Specify the output format: json,human")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	server, err := cmd.Flags().GetString(serverFlagName)
	if err != nil {
		return nil, err
	}
	return client.New(server), nil
}

func outputFormat(cmd *cobra.Command) (string, error) {
	output, err := cmd.Flags().GetString(outputFlagName)
	if err != nil {
		return "", err
	}
	switch output {
	case outputFlagValHuman, outputFlagValJSON:
		return output, nil
	default:
		return "", fmt.Errorf("%s flag must be either %q or %q", outputFlagName, outputFlagValHuman, outputFlagValJSON)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe shows the server's raw response body for API errors.
func describe(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return "Error: " + apiErr.Body
	}
	return "Error: " + err.Error()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
