// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"

	"github.com/spf13/viper"
)

// ConfigurationFileDirectory is searched before the default locations.
var ConfigurationFileDirectory string

// LoadConfiguration merges the named config file into v. It reports
// whether a file was found; a missing file is only an error when required.
func LoadConfiguration(v *viper.Viper, configFileName string, required bool) (bool, error) {
	v.SetConfigName(configFileName)
	if ConfigurationFileDirectory != "" {
		v.AddConfigPath(ResolvePath(ConfigurationFileDirectory))
	}
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.s3dr")
	v.AddConfigPath("/usr/local/etc/s3dr/")
	v.AddConfigPath("/etc/s3dr/")

	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if required {
				return false, err
			}
			logger.Debug().Msgf("Config file not found: %s", configFileName)
			return false, nil
		}
		return false, err
	}
	logger.Info().Msgf("Loaded config file: %s", v.ConfigFileUsed())

	return true, nil
}

// ResolvePath expands "~" and environment variables in path.
func ResolvePath(path string) string {
	if !strings.Contains(path, "~") {
		return path
	}

	if path == "~" {
		if usr, err := user.Current(); err == nil {
			path = usr.HomeDir
		}
	} else if strings.HasPrefix(path, "~/") {
		if usr, err := user.Current(); err == nil {
			path = filepath.Join(usr.HomeDir, path[2:])
		}
	}

	path = os.ExpandEnv(path)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}

	return path
}
