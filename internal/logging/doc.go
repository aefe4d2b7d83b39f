// Package logging builds the slog loggers used throughout Rollcall.
//
// Two output formats are supported: a console handler that renders compact
// "TS LEVEL component: message key=value" lines, and a JSON handler for log
// shippers. Components attach themselves via NewComponentLogger and use the
// typed attribute helpers plus the standardized Field* keys so log lines stay
// greppable across the daemon and CLI.
package logging
