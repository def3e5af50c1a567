package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yacobolo/stylebuild"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompile stylesheets as they change",
	Long: `Watch stylesheet directories and recompile on every change until interrupted.
With --target only the one directory whose path contains the target is watched.
Compilation errors are logged and never stop the watch.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.String("target", "", "Watch only the directory whose relative path contains this text")
	f.Duration("grace-period", 5*time.Second, "Time watchers get to stop before they are aborted; 0 aborts at once")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	b, err := stylebuild.New(cfg, stylebuild.WithLogger(newLogger()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := getStringWithFallback("target", "watch.target", "")
	grace := getDurationWithFallback("grace-period", "watch.grace-period", 5*time.Second)
	return b.Watch(ctx, target, grace)
}
