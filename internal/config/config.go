// Package config provides configuration management for the snapshot builder.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Action selects which part of the pipeline a run performs, per the
// invocation contract of spec.md §6.4.
type Action string

// Supported actions.
const (
	ActionBuildMaster Action = "build_master"
	ActionBuildDeps   Action = "build_deps"
	ActionBuildBoth   Action = "build_both"
)

// Provider defines the interface for configuration providers.
type Provider interface {
	// GetConfig returns the current application configuration.
	GetConfig() *Settings
	// SetConfig sets the application configuration.
	SetConfig(c *Settings)
	// InitConfig initializes the application configuration from defaults,
	// environment, and an optional config file.
	InitConfig() *Settings
	// SetConfigFilePath sets the configuration file path.
	SetConfigFilePath(p string)
}

type defaultConfigProvider struct {
	cfg *Settings
}

// NewDefaultConfigProvider creates a new default config provider.
func NewDefaultConfigProvider() Provider {
	return &defaultConfigProvider{}
}

var defaultProvider = NewDefaultConfigProvider()

// Default configuration values.
const (
	DefaultTargetUnit     = "default.target"
	DefaultDepthLimit     = 0 // 0 means unbounded
	DefaultOutputPrefix   = "snapshot"
	DefaultForceOverwrite = false
	DefaultVerbose        = false
	DefaultHistoryDBPath  = "/var/lib/sysdmap/history.db"
)

// Settings represents the configuration for a snapshot-builder run. Its
// fields mirror the invocation contract described in spec.md §6.4.
type Settings struct {
	Action         Action `mapstructure:"action" yaml:"action"`
	RootPath       string `mapstructure:"rootPath" yaml:"rootPath"`
	MSPath         string `mapstructure:"msPath" yaml:"msPath"`
	TargetUnit     string `mapstructure:"targetUnit" yaml:"targetUnit"`
	DepthLimit     int    `mapstructure:"depthLimit" yaml:"depthLimit"`
	ForceOverwrite bool   `mapstructure:"forceOverwrite" yaml:"forceOverwrite"`
	OutputPrefix   string `mapstructure:"outputPrefix" yaml:"outputPrefix"`
	Verbose        bool   `mapstructure:"verbose" yaml:"verbose"`
	HistoryDBPath  string `mapstructure:"historyDBPath" yaml:"historyDBPath"`
}

// Validate checks that the settings are internally consistent for the
// selected action.
func (s *Settings) Validate() error {
	switch s.Action {
	case ActionBuildMaster, ActionBuildBoth:
		if s.RootPath == "" {
			return fmt.Errorf("rootPath is required for action %q", s.Action)
		}
	case ActionBuildDeps:
		if s.MSPath == "" {
			return fmt.Errorf("msPath is required for action %q", s.Action)
		}
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	if s.DepthLimit < 0 {
		return fmt.Errorf("depthLimit must be >= 0, got %d", s.DepthLimit)
	}
	if s.OutputPrefix == "" {
		return fmt.Errorf("outputPrefix is required")
	}
	return nil
}

func (p *defaultConfigProvider) SetConfig(c *Settings) {
	p.cfg = c
}

func (p *defaultConfigProvider) GetConfig() *Settings {
	return p.cfg
}

func (p *defaultConfigProvider) SetConfigFilePath(path string) {
	viper.SetConfigFile(path)
}

func (p *defaultConfigProvider) InitConfig() *Settings {
	p.cfg = initConfigInternal()
	return p.cfg
}

// SetConfig sets the application configuration on the default provider.
func SetConfig(c *Settings) {
	defaultProvider.SetConfig(c)
}

// GetConfig returns the current application configuration.
func GetConfig() *Settings {
	return defaultProvider.GetConfig()
}

// SetConfigFilePath sets the configuration file path.
func SetConfigFilePath(p string) {
	defaultProvider.SetConfigFilePath(p)
}

// InitConfig initializes the application configuration.
func InitConfig() *Settings {
	return defaultProvider.InitConfig()
}

func initConfigInternal() *Settings {
	viper.SetDefault("action", string(ActionBuildBoth))
	viper.SetDefault("targetUnit", DefaultTargetUnit)
	viper.SetDefault("depthLimit", DefaultDepthLimit)
	viper.SetDefault("outputPrefix", DefaultOutputPrefix)
	viper.SetDefault("forceOverwrite", DefaultForceOverwrite)
	viper.SetDefault("verbose", DefaultVerbose)
	viper.SetDefault("historyDBPath", DefaultHistoryDBPath)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(os.ExpandEnv("$HOME/.config/sysdmap"))
	viper.AddConfigPath("/etc/sysdmap")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("SYSDMAP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	cfg := &Settings{
		Action:         Action(viper.GetString("action")),
		RootPath:       viper.GetString("rootPath"),
		MSPath:         viper.GetString("msPath"),
		TargetUnit:     viper.GetString("targetUnit"),
		DepthLimit:     viper.GetInt("depthLimit"),
		ForceOverwrite: viper.GetBool("forceOverwrite"),
		OutputPrefix:   viper.GetString("outputPrefix"),
		Verbose:        viper.GetBool("verbose"),
		HistoryDBPath:  viper.GetString("historyDBPath"),
	}

	return cfg
}
