// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"os"
	"sync"

	"github.com/spf13/viper"
)

const (
	Local      = "local"
	Production = "production"
	Testing    = "testing"
)

var (
	Env string

	once sync.Once
)

func IsLocal() bool {
	return Env == Local
}

func IsProduction() bool {
	return Env == Production
}

func IsTesting() bool {
	return Env == Testing
}

// IsLambda reports whether the process runs inside the AWS Lambda runtime.
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func init() {
	once.Do(Load)
}

// Load re-reads ENV. Lambda functions without an explicit ENV count as production.
func Load() {
	Env = viper.GetString("ENV")
	if Env == "" {
		Env = os.Getenv("ENV")
	}
	if Env == "" {
		if IsLambda() {
			Env = Production
		} else {
			Env = Local
		}
	}
}
