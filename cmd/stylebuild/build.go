package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yacobolo/stylebuild"
	"github.com/yacobolo/stylebuild/internal/logger"
	"github.com/yacobolo/stylebuild/internal/report"
)

const (
	opCompile = "compile"
	opUpdate  = "update"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile every stylesheet directory",
	Long: `Compile all configured stylesheet directories once.
Every per-file error is logged; the command fails afterwards when fail-on-error is set.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBuild(cmd, opCompile)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Compile only when stylesheets changed",
	Long: `Compile all configured stylesheet directories when any stylesheet changed since the last run.
Changes are detected with checksums stored in <build-dir>/sass_cache/checksums.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBuild(cmd, opUpdate)
	},
}

// addBuildFlags registers the flags shared by compile, update and watch.
func addBuildFlags(f *pflag.FlagSet) {
	f.String("build-dir", "target", "Build output directory (holds sass_cache)")
	f.Bool("fail-on-error", true, "Fail when any stylesheet fails to compile")
	f.String("source", "src/main/webapp", "Source root for the single-resource shorthand")
	f.String("output", "", "Destination root for the single-resource shorthand (default <build-dir>/webapp)")
	f.StringSlice("includes", nil, "Directory globs to include (default **/scss)")
	f.StringSlice("excludes", nil, "Directory globs to exclude")
	f.String("relative-output", "..", "Path appended to every discovered destination directory")
	f.Bool("use-compass", false, "Load the compass library")
	f.StringSlice("load-paths", nil, "Library and import search paths")
	f.StringSlice("libraries", nil, "Extension libraries to load")
	f.String("sass-binary", "", "Dart Sass executable (default sass on PATH)")
	f.Duration("timeout", 0, "Per-file compiler timeout")
	f.String("output-format", "text", "Summary format: text|json")
}

func newLogger() *logger.Logger {
	level := logger.ParseLevel(getStringWithFallback("log-level", "log-level", "info"))
	if getBoolWithFallback("verbose", "verbose", false) {
		level = logger.LevelDebug
	}
	if getBoolWithFallback("quiet", "quiet", false) {
		level = logger.LevelError
	}
	useColors := logger.ShouldUseColors(os.Stderr, getBoolWithFallback("color", "color", false))
	return logger.New(os.Stderr, level, useColors)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runBuild is shared between `stylebuild compile`, `stylebuild update` and the bare command.
func runBuild(cmd *cobra.Command, operation string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	format, err := report.DetermineFormat(
		getStringWithFallback("output-format", "output-format", "text"),
		getBoolWithFallback("quiet", "quiet", false),
	)
	if err != nil {
		return err
	}

	log := newLogger()
	b, err := stylebuild.New(cfg, stylebuild.WithLogger(log))
	if err != nil {
		return err
	}

	var result *stylebuild.Result
	switch operation {
	case opCompile:
		result, err = b.Compile(commandContext(cmd))
	default:
		result, err = b.Update(commandContext(cmd))
	}

	if result != nil {
		if werr := report.Write(cmd.OutOrStdout(), result, format, log.UseColors()); werr != nil {
			return fmt.Errorf("writing summary: %w", werr)
		}
	}
	if errors.Is(err, stylebuild.ErrCompilationFailed) {
		return fmt.Errorf("%s failed: %w", operation, err)
	}
	return err
}
