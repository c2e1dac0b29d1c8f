package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".coderank"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for coderank settings.
const envPrefix = "CODERANK"

// Maps config keys to the command-line flags that override them.
type FlagBindings map[string]string

// Load reads configuration from defaults, file, environment and flags, then
// validates it.
//
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME. A missing config
// file is not an error.
func Load(configPath string, flags *pflag.FlagSet, bindings FlagBindings) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	} else {
		logger().Debug("read config file", "path", viperCfg.ConfigFileUsed())
	}

	if flags != nil {
		for key, name := range bindings {
			flag := flags.Lookup(name)
			if flag == nil {
				return nil, fmt.Errorf("bind flag: no flag named %q", name)
			}

			err := viperCfg.BindPFlag(key, flag)
			if err != nil {
				return nil, fmt.Errorf("bind flag %q: %w", name, err)
			}
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("git", DefaultGit)
	viperCfg.SetDefault("backend", DefaultBackend)
	viperCfg.SetDefault("cache_dir", DefaultCacheDir)
	viperCfg.SetDefault("since", DefaultSince)
	viperCfg.SetDefault("parallel", DefaultParallel)
	viperCfg.SetDefault("commit_limit", DefaultCommitLimit)
	viperCfg.SetDefault("unique", false)
	viperCfg.SetDefault("isolation", DefaultIsolation)
	viperCfg.SetDefault("metrics_file", "")

	viperCfg.SetDefault("dedup.backend", DefaultDedup)

	viperCfg.SetDefault("github.user", "")
	viperCfg.SetDefault("github.repo", "")

	viperCfg.SetDefault("list.repo", "")
	viperCfg.SetDefault("list.file", DefaultListFile)
	viperCfg.SetDefault("list.branch", DefaultBranch)

	viperCfg.SetDefault("rank.repo", "")
	viperCfg.SetDefault("rank.file", DefaultRankFile)
	viperCfg.SetDefault("rank.branch", DefaultBranch)
	viperCfg.SetDefault("rank.template", "")
	viperCfg.SetDefault("rank.dry_run", false)

	viperCfg.SetDefault("output.format", DefaultFormat)
	viperCfg.SetDefault("output.template", "")
}
