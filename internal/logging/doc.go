// Package logging wires slog with the console and JSON handlers pwaforge uses
// and standardizes the structured field names shared across components.
package logging
