// Package logging configures structured slog output for ChoralMind.
//
// Logs are JSON lines written to a size-rotated file under
// ~/.choralmind/logs/, optionally teed to stderr. Quiet mode (used by the
// MCP stdio server) never touches stdout or stderr.
package logging
