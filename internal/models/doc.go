// Package models defines the domain entities shared across the spx playlist export service.
//
// Two categories of types live here:
//
//  1. Persistent records:
//     - [Credential] : per-user Spotify OAuth credential, refresh token encrypted at rest
//
//  2. Ephemeral export state:
//     - [ExportJob] : progress record for a background all-playlists export
//     - [Artifact] : a completed export's filename and CSV text
//
// The ExportJob state machine moves strictly forward:
//
//	starting → fetching_playlists → processing → completed
//	                             └──────────────→ error    (from any state)
//
// Exactly one background goroutine writes a job; polling and download paths
// only read snapshots.
package models
