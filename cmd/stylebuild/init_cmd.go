package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default .stylebuild.yaml config file",
	Long:  `Create a .stylebuild.yaml configuration file in the current directory with sensible defaults.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(defaultConfigFile); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", defaultConfigFile)
		}

		if err := os.WriteFile(defaultConfigFile, []byte(defaultConfig), 0644); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", defaultConfigFile)
		return nil
	},
}

const defaultConfig = `# stylebuild configuration
# Docs: https://github.com/yacobolo/stylebuild

build-dir: target        # sass_cache/checksums lives below this directory
fail-on-error: true
use-compass: false
load-paths: []           # library and import search paths
libraries: []            # extension libraries, resolved on load-paths
default-excludes: true   # skip .git, .svn, .DS_Store and friends
respect-gitignore: false

# Compiler options, in compiler literal syntax. Strings keep their quotes.
options:
  style: expanded        # expanded | compressed
  unix_newlines: true
  always_update: true
  # cache_location: "'/tmp/sass'"

# Stylesheet sources. Every directory matching includes below a source directory is
# compiled into the same relative directory below destination.
resources:
  - source:
      directory: src/main/webapp
      includes:
        - "**/scss"
      excludes: []
    destination: target/webapp
    relative-output: ".."

watch:
  target: ""             # watch a single directory whose path contains this text
  grace-period: 5s

output-format: text      # text | json
log-level: info          # debug | info | warn | error
`

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
