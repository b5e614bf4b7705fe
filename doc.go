// Package main provides the entry point of the Users & Permissions service.
// It reads etc/main.toml, initialises logging and runs one of the cobra
// commands: start serves the token and administration API with Fiber,
// migrate and seed prepare the database, audit purge and tokens purge
// enforce retention, and config dump prints the effective configuration.
package main
