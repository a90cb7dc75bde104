// Package tasks orchestrates playlist exports with background job tracking and
// real-time progress reporting.
//
// # Core Operations
//
// The [ExportEngine] exposes two execution modes:
//
//  1. Background jobs: [ExportEngine.StartExport] registers an all-playlists
//     export job and returns its id immediately. A single goroutine advances
//     the job through starting → fetching_playlists → processing →
//     completed | error, visible via [ExportEngine.Poll]. The finished CSV is
//     retrieved with [ExportEngine.Download] and retained for a configurable
//     window after completion.
//
//  2. Synchronous exports: [ExportEngine.ExportPlaylist] and
//     [ExportEngine.ExportAll] build the same artifacts inline for CLI use.
//
// Per-playlist fetch failures are logged and skipped; the job completes with
// the remaining playlists and its total count unchanged. Listing or token
// refresh failures are job-fatal.
//
// # Progress Reporting
//
// Operations emit [ProgressUpdate] values on an optional channel. Updates use
// select with default so progress reporting never blocks execution.
//
// # Analysis
//
// The engine also serves read-only playlist analysis: contents projection,
// aggregate stats, duplicate detection, and merge simulation.
package tasks
