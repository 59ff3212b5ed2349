// Package config loads the runtime settings for dmutils. Values are layered
// with viper: built-in defaults, then an optional config file, then DMUTILS_*
// environment variables, then command-line flags.
package config
