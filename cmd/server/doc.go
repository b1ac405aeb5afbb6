// Package main is the entry point for the podrun MCP server.
//
// The server exposes a run_code tool that executes untrusted snippets
// (Node.js, Deno, sh, bash, PowerShell) in podman containers with CPU and
// memory limits, no network and a read-only root filesystem. It speaks
// stdio or streamable HTTP depending on configuration.
//
// The application uses Uber's fx framework for dependency injection and lifecycle
// management, with zap for structured logging and viper for configuration.
package main
