// Package config provides configuration structures and utilities for seoaudit.
// It defines provider selection, retry policy, persistence locations and
// report preferences, and loads overrides from a YAML file and the environment.
package config
