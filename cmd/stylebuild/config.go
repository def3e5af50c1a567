package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yacobolo/stylebuild"
)

var k = koanf.New(".")

const defaultConfigFile = ".stylebuild.yaml"

// loadConfig loads configuration with precedence: flags > env > file > defaults.
// It must be called after cobra parses flags (in PreRunE or RunE).
func loadConfig(cmd *cobra.Command) error {
	// Resolve config file path from flag
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = defaultConfigFile
	}

	// Load config file and env vars
	if err := loadConfigFromPath(configPath); err != nil {
		return err
	}

	// 3. CLI flags. Set flags win; defaults of unset flags only fill missing keys.
	if err := k.Load(posflag.ProviderWithFlag(cmd.Flags(), ".", k, configKeyFunc(cmd.Flags())), nil); err != nil {
		return fmt.Errorf("loading command flags: %w", err)
	}

	return nil
}

// loadConfigFromPath loads configuration from a file and environment variables.
// This is separated from loadConfig to allow testing without a cobra command.
func loadConfigFromPath(configPath string) error {
	// 1. Config file (lowest precedence among providers)
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	// 2. Environment variables (STYLEBUILD_* prefix)
	if err := k.Load(env.Provider("STYLEBUILD_", ".", envKey), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}

	return nil
}

// flagConfigKeys maps flags whose config key differs from the flag name.
var flagConfigKeys = map[string]string{
	"target":       "watch.target",
	"grace-period": "watch.grace-period",
}

// configKeyFunc loads each flag under its config key, so an unset flag's default never
// shadows the value from the config file or environment.
func configKeyFunc(fs *pflag.FlagSet) func(*pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key := f.Name
		if mapped, ok := flagConfigKeys[f.Name]; ok {
			key = mapped
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// envKey maps an environment variable to a config key:
// STYLEBUILD_BUILD_DIR -> build-dir, STYLEBUILD_WATCH__GRACE_PERIOD -> watch.grace-period.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "STYLEBUILD_"))
	parts := strings.Split(s, "__")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "_", "-")
	}
	return strings.Join(parts, ".")
}

// resourceConfig is one entry of the resources list in the config file.
type resourceConfig struct {
	Source struct {
		Directory string   `koanf:"directory"`
		Includes  []string `koanf:"includes"`
		Excludes  []string `koanf:"excludes"`
	} `koanf:"source"`
	Destination    string `koanf:"destination"`
	RelativeOutput string `koanf:"relative-output"`
}

// buildConfig constructs the library's Config struct from koanf state.
func buildConfig() (stylebuild.Config, error) {
	cfg := stylebuild.DefaultConfig()
	cfg.BuildDir = getStringWithFallback("build-dir", "build-dir", "target")
	cfg.FailOnError = getBoolWithFallback("fail-on-error", "fail-on-error", true)
	cfg.UseCompass = getBoolWithFallback("use-compass", "use-compass", false)
	cfg.LoadPaths = k.Strings("load-paths")
	cfg.Libraries = k.Strings("libraries")
	cfg.Extension = getStringWithFallback("extension", "extension", cfg.Extension)
	cfg.CacheFile = getStringWithFallback("cache-file", "cache-file", "")
	cfg.DefaultExcludes = getBoolWithFallback("default-excludes", "default-excludes", true)
	cfg.RespectGitignore = getBoolWithFallback("respect-gitignore", "respect-gitignore", false)
	cfg.SassBinary = getStringWithFallback("sass-binary", "sass-binary", "")
	cfg.Timeout = getDurationWithFallback("timeout", "timeout", 0)
	if options := optionMap(); len(options) > 0 {
		cfg.Options = options
	}

	resources, err := buildResources(cfg.BuildDir)
	if err != nil {
		return cfg, err
	}
	cfg.Resources = resources
	return cfg, nil
}

// optionMap reads the options table. YAML scalars such as true or 42 are kept in their
// literal form so the engine can parse them like any other option value.
func optionMap() map[string]string {
	raw, ok := k.Get("options").(map[string]interface{})
	if !ok {
		return k.StringMap("options")
	}
	out := make(map[string]string, len(raw))
	for key, v := range raw {
		if v == nil {
			continue
		}
		out[key] = fmt.Sprint(v)
	}
	return out
}

// buildResources reads the resources list, falling back to the single-resource shorthand
// (source, includes, excludes, output, relative-output) when no list is configured.
func buildResources(buildDir string) ([]stylebuild.SourceMapping, error) {
	if k.Exists("resources") {
		var entries []resourceConfig
		if err := k.Unmarshal("resources", &entries); err != nil {
			return nil, fmt.Errorf("reading resources: %w", err)
		}

		mappings := make([]stylebuild.SourceMapping, 0, len(entries))
		for _, e := range entries {
			mappings = append(mappings, stylebuild.SourceMapping{
				SourceRoot:           e.Source.Directory,
				Includes:             e.Source.Includes,
				Excludes:             e.Source.Excludes,
				DestinationRoot:      e.Destination,
				RelativeOutputOffset: e.RelativeOutput,
			})
		}
		return mappings, nil
	}

	includes := k.Strings("includes")
	if len(includes) == 0 {
		includes = []string{"**/scss"}
	}

	return []stylebuild.SourceMapping{{
		SourceRoot:           getStringWithFallback("source", "source", "src/main/webapp"),
		Includes:             includes,
		Excludes:             k.Strings("excludes"),
		DestinationRoot:      getStringWithFallback("output", "output", filepath.Join(buildDir, "webapp")),
		RelativeOutputOffset: getStringWithFallback("relative-output", "relative-output", ".."),
	}}, nil
}

// getStringWithFallback checks the flag key first, then the config file key, then returns the default.
func getStringWithFallback(flagKey, configKey, defaultVal string) string {
	if v := k.String(flagKey); v != "" {
		return v
	}
	if v := k.String(configKey); v != "" {
		return v
	}
	return defaultVal
}

// getBoolWithFallback checks the flag key first, then the config file key, then returns the default.
func getBoolWithFallback(flagKey, configKey string, defaultVal bool) bool {
	if k.Exists(flagKey) {
		return k.Bool(flagKey)
	}
	if k.Exists(configKey) {
		return k.Bool(configKey)
	}
	return defaultVal
}

// getDurationWithFallback checks the flag key first, then the config file key, then returns the default.
func getDurationWithFallback(flagKey, configKey string, defaultVal time.Duration) time.Duration {
	if k.Exists(flagKey) {
		return k.Duration(flagKey)
	}
	if k.Exists(configKey) {
		return k.Duration(configKey)
	}
	return defaultVal
}
