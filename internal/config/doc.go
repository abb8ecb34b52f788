// Package config loads the statusbot configuration from config.yaml.
//
// Config fields:
//   - Server.HTTPPort    : alert intake, health and metrics port (default 8080)
//   - Server.Auth        : "apikey" or "none"; key read from Auth.KeyEnv
//   - Live / LiveEnv     : publish or only log; $MSB_LIVE overrides the file
//   - TemplatesFile      : TOML or YAML template document (default templates.toml);
//     $MSB_CONFIG_FILE (TemplatesFileEnv) replaces it when set
//   - Publisher.Type     : mastodon | webhook | nats
//   - Publisher.Mastodon : credential variable names (default MSB_HOST,
//     MSB_CLIENT_KEY, MSB_CLIENT_SECRET, MSB_ACCESS_TOKEN) and visibility
//
// Secrets never live in the file; each *_env field names the environment
// variable to read. LoadEnv fills the environment from a .env file first.
//
// Watch reports edits to the config or template file so the operator can be
// told to restart.
package config
