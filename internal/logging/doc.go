// Package logging installs the process-wide slog default.
//
// Format "json" writes one JSON object per line to stdout for log
// collectors. Format "text" routes slog through charmbracelet/log for
// readable, coloured output in a terminal.
package logging
