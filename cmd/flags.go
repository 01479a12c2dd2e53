// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// FlagLoader reads a setting with CLI flag precedence. When a flag is set
// explicitly it wins over the config file and environment; otherwise the
// viper value applies (env > config file > default).
type FlagLoader struct {
	cmd *cobra.Command
	v   *viper.Viper
}

// NewFlagLoader creates a FlagLoader for the given command and settings.
func NewFlagLoader(cmd *cobra.Command, v *viper.Viper) *FlagLoader {
	return &FlagLoader{cmd: cmd, v: v}
}

// Int returns CLI flag value if explicitly set, otherwise viper value.
func (f *FlagLoader) Int(flagName string) int {
	if f.cmd.Flags().Changed(flagName) {
		val, _ := f.cmd.Flags().GetInt(flagName)
		return val
	}
	return f.v.GetInt(flagName)
}

// Float64 returns CLI flag value if explicitly set, otherwise viper value.
func (f *FlagLoader) Float64(flagName string) float64 {
	if f.cmd.Flags().Changed(flagName) {
		val, _ := f.cmd.Flags().GetFloat64(flagName)
		return val
	}
	return f.v.GetFloat64(flagName)
}
