// Package config loads the Executor's runtime configuration from a YAML
// file with environment variable overrides, in the style of the
// project's other viper-backed services.
package config
