package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gipl/gipl-assistant/internal/chat"
	"github.com/gipl/gipl-assistant/internal/knowledge"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the knowledge blob and serve the chat API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServe(cmd, args)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.Knowledge.Watch {
		if err := a.watch(ctx); err != nil {
			return err
		}
	}
	if cfg.Knowledge.Refresh != "" {
		if err := a.refresh(ctx); err != nil {
			return err
		}
	}
	return a.server().Run(ctx, cfg.Server.Addr)
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal (type bye to quit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return chat.REPL(cmd.Context(), a.chat, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Knowledge blob commands",
	}

	var out string
	build := &cobra.Command{
		Use:   "build",
		Short: "Extract every source and print the blob or write a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := newExtractor(cfg, nil)
			if err != nil {
				return err
			}
			blob, err := x.Build(cmd.Context(), cfg.Sources())
			if err != nil {
				return err
			}
			for _, d := range blob.Degraded() {
				log.Warn().Str("url", d.Source.Location).Err(d.Err).Msg("source degraded")
			}
			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), blob.Text)
				return err
			}
			if err := knowledge.SaveSnapshot(out, blob); err != nil {
				return err
			}
			log.Info().Str("path", out).Int("bytes", len(blob.Text)).Msg("snapshot written")
			return nil
		},
	}
	build.Flags().StringVarP(&out, "out", "o", "", "write a compressed snapshot to this file")
	cmd.AddCommand(build)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "example [file]",
		Short: "Write the effective configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "gipl-assistant.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := cfg.WriteExample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return cmd
}
