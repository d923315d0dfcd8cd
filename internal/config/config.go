// Package config loads the application configuration from file,
// environment and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/octools/go-biospatch/internal/common/fsutil"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for config files and directories.
	AppName = "biospatch"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "BIOSPATCH"
)

// AppConfig holds the application configuration.
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// Backup settings
	Backup struct {
		Dir    string `mapstructure:"dir"`
		Format string `mapstructure:"format"` // xz, bzip2, gzip or none
	} `mapstructure:"backup"`

	// VirusTotal settings (used by the scan command)
	VirusTotal struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"virustotal"`
}

// Global variables
var (
	// Instance is the global configuration.
	Instance AppConfig

	// ConfigLoaded indicates whether a config file was found and read.
	ConfigLoaded bool

	// ConfigFile is the path of the config file that was used, if any.
	ConfigFile string

	v *viper.Viper

	initOnce sync.Once
)

// Initialize sets up the configuration system. cfgFile may be empty, in
// which case the standard search paths are used.
func Initialize(cfgFile string) error {
	var err error

	initOnce.Do(func() {
		v = viper.New()

		setDefaults(v)

		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			v.SetConfigName(AppName)
			v.SetConfigType("yaml")
			addSearchPaths(v)
		}

		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()

		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("error reading config file: %w", readErr)
			}
			ConfigLoaded = false
			ConfigFile = ""
		} else {
			ConfigLoaded = true
			ConfigFile = v.ConfigFileUsed()
		}

		if unmarshalErr := v.Unmarshal(&Instance); unmarshalErr != nil {
			err = fmt.Errorf("error parsing config: %w", unmarshalErr)
			return
		}

		ensureDirectories()
	})

	return err
}

// setDefaults sets default values for configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")

	v.SetDefault("backup.dir", defaultBackupDir())
	v.SetDefault("backup.format", "xz")

	v.SetDefault("virustotal.api_key", "")
}

// addSearchPaths adds the config search paths: current directory first,
// then the user config directory.
func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")

	if userDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(userDir, AppName))
	}
}

func defaultBackupDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "backups"
	}
	return filepath.Join(home, "."+AppName, "backups")
}

// ensureDirectories creates directories the configuration points at.
func ensureDirectories() {
	if Instance.LogFile != "" {
		_ = fsutil.CreateDirIfNotExists(filepath.Dir(Instance.LogFile))
	}
	if Instance.Backup.Dir != "" {
		_ = fsutil.CreateDirIfNotExists(Instance.Backup.Dir)
	}
}
