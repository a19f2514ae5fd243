// Command gipl-assistant answers questions about GIPL from its board
// documents and public web pages, over HTTP or in the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gipl/gipl-assistant/internal/config"
	"github.com/gipl/gipl-assistant/internal/logging"
)

var (
	version = "0.1.0"
	cfgPath string
	verbose bool
	cfg     *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gipl-assistant",
		Short: "GIPL Assistant - chat over GIPL documents and web pages",
		Long: `GIPL Assistant extracts text from the configured PDF documents and web
pages and answers questions grounded on it.

Start the HTTP server:  gipl-assistant serve
Chat in the terminal:   gipl-assistant chat
Inspect the knowledge:  gipl-assistant kb build`,
		PersistentPreRunE: loadConfig,
		RunE:              runServe,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gipl-assistant v%s\n", version)
		},
	})
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(kbCmd())
	rootCmd.AddCommand(configCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("gipl-assistant failed")
		stop()
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if verbose {
		c.Logging.Level = "debug"
	}
	logging.Setup(c.Logging.Level, c.Logging.Format)
	cfg = c
	return nil
}
