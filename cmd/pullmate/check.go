package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check if the pullmate server is running",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}
	cmd.Flags().String("url", "http://localhost:8080/health", "health endpoint to check")
	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	url, _ := cmd.Flags().GetString("url")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("server is not running: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned non-OK status: %d", resp.StatusCode)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Server is running!")
	return nil
}
