package config

import (
	"os"
	"strings"
)

// Environments selected through APP_ENV.
const (
	EnvironmentDevelopment = "development"
	EnvironmentStaging     = "staging"
	EnvironmentProduction  = "production"
)

var environmentNames = map[string]string{
	"dev":   EnvironmentDevelopment,
	"stage": EnvironmentStaging,
	"prod":  EnvironmentProduction,
}

// AppEnvironment returns APP_ENV lower-cased with short names expanded;
// development when unset.
func AppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	if env == "" {
		return EnvironmentDevelopment
	}
	if full, ok := environmentNames[env]; ok {
		return full
	}
	return env
}

// IsProductionLike reports whether env talks to a live broker, where the
// stream keepalive is mandatory.
func IsProductionLike(env string) bool {
	return env == EnvironmentProduction || env == EnvironmentStaging
}

// configPathFor picks config.<env>.yml over config.yml when one is
// registered for the current environment. Explicit paths win.
func configPathFor(path string) string {
	envPath, ok := envConfigPaths[AppEnvironment()]
	if !ok {
		if path == "" {
			return defaultConfigPath
		}
		return path
	}
	if path == "" || path == defaultConfigPath {
		return envPath
	}
	return path
}
