package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func resetViper() {
	viper.Reset()
}

func TestInitConfig(t *testing.T) {
	resetViper()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	provider := NewDefaultConfigProvider()
	cfg := provider.InitConfig()

	assert.Equal(t, ActionBuildBoth, cfg.Action)
	assert.Equal(t, DefaultTargetUnit, cfg.TargetUnit)
	assert.Equal(t, DefaultDepthLimit, cfg.DepthLimit)
	assert.Equal(t, DefaultOutputPrefix, cfg.OutputPrefix)
	assert.Equal(t, DefaultForceOverwrite, cfg.ForceOverwrite)
	assert.Equal(t, DefaultVerbose, cfg.Verbose)
}

func TestSetAndGetConfig(t *testing.T) {
	resetViper()
	testConfig := &Settings{
		Action:         ActionBuildMaster,
		RootPath:       "/fx",
		TargetUnit:     "multi-user.target",
		DepthLimit:     3,
		ForceOverwrite: true,
		OutputPrefix:   "snap",
		Verbose:        true,
	}

	provider := NewDefaultConfigProvider()
	provider.SetConfig(testConfig)
	assert.Equal(t, testConfig, provider.GetConfig())
}

func TestCustomConfigFile(t *testing.T) {
	resetViper()

	tmpfile, err := os.CreateTemp("", "config.*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	configContent := `action: build_deps
msPath: /data/snapshot_ms.json
targetUnit: runlevel2.target
depthLimit: 5
forceOverwrite: true
outputPrefix: snap
verbose: true`

	if err := os.WriteFile(tmpfile.Name(), []byte(configContent), 0600); err != nil {
		t.Fatal(err)
	}

	viper.SetConfigFile(tmpfile.Name())
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		t.Fatal(err)
	}

	cfg := &Settings{
		Action:         Action(viper.GetString("action")),
		MSPath:         viper.GetString("msPath"),
		TargetUnit:     viper.GetString("targetUnit"),
		DepthLimit:     viper.GetInt("depthLimit"),
		ForceOverwrite: viper.GetBool("forceOverwrite"),
		OutputPrefix:   viper.GetString("outputPrefix"),
		Verbose:        viper.GetBool("verbose"),
	}

	assert.Equal(t, ActionBuildDeps, cfg.Action)
	assert.Equal(t, "/data/snapshot_ms.json", cfg.MSPath)
	assert.Equal(t, "runlevel2.target", cfg.TargetUnit)
	assert.Equal(t, 5, cfg.DepthLimit)
	assert.True(t, cfg.ForceOverwrite)
	assert.True(t, cfg.Verbose)
}

func TestValidate(t *testing.T) {
	t.Run("build_master requires rootPath", func(t *testing.T) {
		cfg := &Settings{Action: ActionBuildMaster, OutputPrefix: "snap"}
		assert.Error(t, cfg.Validate())
		cfg.RootPath = "/"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("build_deps requires msPath", func(t *testing.T) {
		cfg := &Settings{Action: ActionBuildDeps, OutputPrefix: "snap"}
		assert.Error(t, cfg.Validate())
		cfg.MSPath = "snap_ms.json"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects negative depth limit", func(t *testing.T) {
		cfg := &Settings{Action: ActionBuildMaster, RootPath: "/", OutputPrefix: "snap", DepthLimit: -1}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown action", func(t *testing.T) {
		cfg := &Settings{Action: "bogus", OutputPrefix: "snap"}
		assert.Error(t, cfg.Validate())
	})
}
