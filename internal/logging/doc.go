// Package logging assembles structured slog loggers and formatting helpers used
// by the extractor commands and reconstruction engines.
//
// It owns the console and JSON handlers, routes output to stderr plus the
// persistent extractor.log, and exposes context-aware helpers so engine code
// can tag log lines with the job identifier and reconstruction strategy
// without threading them through every call.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same keys.
package logging
