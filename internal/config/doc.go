// Package config loads the observatoire configuration from a YAML file.
//
// Load applies defaults, parses the file, then validates it. Secrets (the
// PageSpeed API key, the token signing secret, database DSNs) are never
// written in the file itself: the config names an environment variable and
// the accessor methods resolve it at call time.
//
// Watch reloads the file on change so a running server can pick up a new
// rate-limit cooldown or token secret without a restart.
package config
