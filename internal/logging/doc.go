// Package logging configures log/slog for the pipeline and standardizes the
// structured field names used across stages.
//
// Loggers carry context-derived fields (item identity, stage, run id) so a
// single grep over the log file reconstructs one item's path through the
// pipeline.
package logging
