package main

import (
	"github.com/Desarso/haochat"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveModel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat server",
	Long: `Run the chat server.

Endpoints:
  POST /api/chat
  POST /api/chat/stream
  GET  /api/turns/:turnID
  GET  /ws/chat
  GET  /health`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "Chat model (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.WithAddr(serveAddr)
	}
	if serveModel != "" {
		cfg.WithModel(serveModel)
	}

	app, err := haochat.NewApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Run()
}

func loadConfig() (*haochat.Config, error) {
	if configDir != "" {
		return haochat.LoadConfig(configDir)
	}
	return haochat.LoadConfig()
}
