// The findmerges program finds the merge commits of git repositories and
// the merge base of each, for use as merge-tool evaluation data.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/astmerge/findmerges/config"
	"github.com/astmerge/findmerges/vcs/gitcmd"
	_ "github.com/astmerge/findmerges/vcs/gogit"
	_ "github.com/astmerge/findmerges/vcs/hg"
)

var (
	configFile  string
	logLevel    string
	backend     string
	appdashAddr string

	// Set by setup before any subcommand runs.
	cfg    config.Config
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "findmerges",
	Short: "Find the merge commits of git repositories",
	Long: `findmerges lists every merge commit reachable from the branches of
a set of GitHub repositories, with the parents and merge base of each.

Settings come from an optional YAML file (--config) and a .env file in the
current directory; flags override both.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configFile, "config", "", "YAML configuration file")
	f.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	f.StringVar(&backend, "backend", "", "vcs backend: git, gogit or hg")
	f.StringVar(&appdashAddr, "appdash", "", "send traces to the appdash collector at this host:port")

	rootCmd.AddCommand(mineCmd, mergeBaseCmd, mergesCmd, branchesCmd, logCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("log-level") {
		c.LogLevel = logLevel
	}
	if f.Changed("backend") {
		c.Backend = backend
	}
	if f.Changed("appdash") {
		c.AppdashAddr = appdashAddr
	}
	if err := c.Validate(); err != nil {
		return err
	}

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		ReportTimestamp: true,
		Prefix:          "findmerges",
		Level:           level,
	})

	if err := gitcmd.SetCommand(c.GitCommand); err != nil {
		return err
	}
	cfg = c
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
