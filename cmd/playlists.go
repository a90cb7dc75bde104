package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Playlists lists the user's Spotify playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if r.spotify == nil || r.access == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	userID, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	r.logger.Infof("listing playlists for %v", userID)

	token, err := r.access.EnsureAccess(ctx, userID)
	if err != nil {
		return err
	}

	playlists, err := r.spotify.ListPlaylists(ctx, token)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// PlaylistContents prints the track listing of a playlist.
func (r *Runner) PlaylistContents(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("id")
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id argument is required", shared.ErrMissingArgument)
	}
	if r.engine == nil {
		return fmt.Errorf("%w: export engine not initialized", shared.ErrServiceUnavailable)
	}

	userID, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	result, err := r.engine.PlaylistContents(ctx, userID, playlistID)
	if err != nil {
		return err
	}

	return r.writeJSON(result, cmd.Bool("pretty"))
}

// PlaylistStats prints aggregate statistics for a playlist.
func (r *Runner) PlaylistStats(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("id")
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id argument is required", shared.ErrMissingArgument)
	}
	if r.engine == nil {
		return fmt.Errorf("%w: export engine not initialized", shared.ErrServiceUnavailable)
	}

	userID, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	result, err := r.engine.PlaylistStats(ctx, userID, playlistID)
	if err != nil {
		return err
	}

	return r.writeJSON(result, cmd.Bool("pretty"))
}

// PlaylistDedupe previews duplicate removal without modifying anything.
func (r *Runner) PlaylistDedupe(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("id")
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id argument is required", shared.ErrMissingArgument)
	}
	if r.engine == nil {
		return fmt.Errorf("%w: export engine not initialized", shared.ErrServiceUnavailable)
	}

	userID, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	result, err := r.engine.SimulateDedupe(ctx, userID, playlistID)
	if err != nil {
		return err
	}

	return r.writeJSON(result, cmd.Bool("pretty"))
}

// PlaylistMerge previews merging one playlist into another without modifying anything.
func (r *Runner) PlaylistMerge(ctx context.Context, cmd *cli.Command) error {
	sourceID := cmd.String("source")
	targetID := cmd.String("target")
	if r.engine == nil {
		return fmt.Errorf("%w: export engine not initialized", shared.ErrServiceUnavailable)
	}

	userID, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	result, err := r.engine.SimulateMerge(ctx, userID, sourceID, targetID)
	if err != nil {
		return err
	}

	return r.writeJSON(result, cmd.Bool("pretty"))
}
