// Command medscribectl drives a running medscribe API from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/medscribe/internal/client"
	"github.com/kailas-cloud/medscribe/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "medscribectl",
		Short:         "medscribectl - client for the medscribe case analysis API",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	baseURL := os.Getenv("MEDSCRIBE_URL")
	if baseURL == "" {
		baseURL = client.DefaultBaseURL
	}
	rootCmd.PersistentFlags().String("url", baseURL, "medscribe API base URL (env MEDSCRIBE_URL)")
	rootCmd.PersistentFlags().Bool("json", false, "print raw JSON instead of formatted output")

	rootCmd.AddCommand(docsCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(transcriptCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(healthCmd())

	return rootCmd
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	u, _ := cmd.Flags().GetString("url")
	return client.New(u)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
