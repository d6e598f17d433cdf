package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "haochat",
	Short: "Chat server with streaming replies and tool calls",
	Long: `haochat serves chat turns over HTTP, SSE and WebSocket, and can talk
to a running server from the terminal.

Examples:
  haochat serve --addr :8080
  haochat chat "what is a goroutine?"
  haochat chat -c <conversation> --deep "compare raft and paxos"`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory containing haochat.yaml")
	rootCmd.AddCommand(serveCmd, chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
