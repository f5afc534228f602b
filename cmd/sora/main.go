// Command sora runs the assistant server or the terminal chat client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "sora",
	Short: "Sora - voice and text travel assistant",
	Long: `Sora answers travel questions with live weather and web search context.

Commands:
  serve   run the HTTP and WebSocket server
  chat    talk to a running server from the terminal

Configuration is read from the environment, .env.local and .env.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// level resolves the effective log level from flags and config.
func level(configured string) string {
	if verbose {
		return "debug"
	}
	if logLevel != "" {
		return logLevel
	}
	return configured
}
