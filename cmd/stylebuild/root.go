package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stylebuild",
	Short: "Sass stylesheet compiler for directory trees",
	Long: `Compile trees of Sass stylesheets into parallel trees of CSS.
Source directories are selected with ANT-style globs and compiled with Dart Sass.`,
	// Default behavior: run update when no subcommand is given.
	// We must call loadConfig here because PreRunE of updateCmd
	// is not triggered when delegating via rootCmd.RunE.
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		return runBuild(cmd, opUpdate)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags (inherited by all subcommands)
	pf := rootCmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.Bool("quiet", false, "Only log errors and print no summary")
	pf.Bool("color", false, "Force color output")
	pf.String("log-level", "info", "Log level: debug|info|warn|error")
	pf.String("config", ".stylebuild.yaml", "Config file path")
	addBuildFlags(pf)

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}
