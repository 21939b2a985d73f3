package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/codexnotes/internal/buildinfo"
	"github.com/dmitrijs2005/codexnotes/internal/client/cli"
	"github.com/dmitrijs2005/codexnotes/internal/client/config"
	"github.com/dmitrijs2005/codexnotes/internal/client/deeplink"
	"github.com/dmitrijs2005/codexnotes/internal/client/invite"
	"github.com/dmitrijs2005/codexnotes/internal/filex"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "codexnotes [join link]",
	Short:         "Offline-first notes with background sync",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runClient,
}

var openURLCmd = &cobra.Command{
	Use:   "open-url <link>",
	Short: "Hand a codex:// link to the running client",
	Long: `open-url is what the OS invokes for the custom URI scheme. The link is
dropped into the client's spool directory and picked up by the running
instance, or by the next one to start.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		return spoolLink(cfg, args[0])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		buildinfo.PrintBuildData(cmd.OutOrStdout())
	},
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(openURLCmd, versionCmd)
}

func spoolLink(cfg *config.Config, uri string) error {
	if _, _, err := invite.ParseJoinURI(cfg.AppProtocol, uri); err != nil {
		return err
	}
	_, err := deeplink.Spool(cfg.LinkSpoolDir(), uri)
	return err
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.DataDir, err = filex.EnsureDir(cfg.DataDir); err != nil {
		return err
	}
	if len(args) == 1 {
		if err := spoolLink(cfg, args[0]); err != nil {
			return err
		}
	}

	log, closer := logging.NewFileLogger(logging.FileOptions{Path: cfg.LogPath(), Level: cfg.LogLevel})
	defer closer.Close()

	buildinfo.PrintBuildData(cmd.OutOrStdout())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
