package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ExportPlaylist exports a single playlist to a CSV file.
func (r *Runner) ExportPlaylist(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	outputFile := cmd.String("output")

	if r.engine == nil {
		return fmt.Errorf("%w: export engine not initialized", shared.ErrServiceUnavailable)
	}

	userID, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	r.logger.Infof("exporting playlist %v for %v", playlistID, userID)

	artifact, err := r.engine.ExportPlaylist(ctx, userID, playlistID)
	if err != nil {
		return err
	}

	return r.writeArtifact(artifact, outputFile)
}

// ExportAll exports every playlist to a single CSV file.
//
// With --job the export runs as a tracked background job and the command polls
// until it finishes; otherwise the export runs synchronously with progress
// printed as it happens.
func (r *Runner) ExportAll(ctx context.Context, cmd *cli.Command) error {
	outputFile := cmd.String("output")
	asJob := cmd.Bool("job")

	if r.engine == nil {
		return fmt.Errorf("%w: export engine not initialized", shared.ErrServiceUnavailable)
	}

	userID, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	if asJob {
		return r.exportAllJob(ctx, userID, outputFile)
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
		close(done)
	}()

	artifact, err := r.engine.ExportAll(ctx, userID, progress)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	return r.writeArtifact(artifact, outputFile)
}

// exportAllJob starts a background export job and polls until it reaches a
// terminal state, then downloads the artifact.
func (r *Runner) exportAllJob(ctx context.Context, userID, outputFile string) error {
	jobID, err := r.engine.StartExport(ctx, userID, nil)
	if err != nil {
		return err
	}

	r.writePlain("→ Started export job %s\n", jobID)

	var last string
	for {
		job, err := r.engine.Poll(userID, jobID)
		if err != nil {
			return err
		}

		line := describeJob(job)
		if line != last {
			r.writePlain("%s\n", line)
			last = line
		}

		if job.Status.Terminal() {
			if job.Status == models.JobError {
				return fmt.Errorf("export failed: %s", job.ErrorMessage)
			}
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	artifact, err := r.engine.Download(userID, jobID)
	if err != nil {
		return err
	}

	return r.writeArtifact(artifact, outputFile)
}

func describeJob(job models.ExportJob) string {
	switch job.Status {
	case models.JobProcessing:
		if job.CurrentPlaylist != "" {
			return fmt.Sprintf("[%d/%d] %s: %s", job.Current, job.Total, job.Status, job.CurrentPlaylist)
		}
		return fmt.Sprintf("[%d/%d] %s", job.Current, job.Total, job.Status)
	default:
		return fmt.Sprintf("Status: %s", job.Status)
	}
}

// writeArtifact saves an export artifact to disk and prints a summary.
func (r *Runner) writeArtifact(artifact *models.Artifact, outputFile string) error {
	if outputFile == "" {
		outputFile = artifact.Filename
	}

	if err := os.WriteFile(outputFile, []byte(artifact.CSV), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	r.logger.Infof("artifact written to %v (%v bytes)", outputFile, len(artifact.CSV))

	r.writePlain("✓ Exported to %s\n", outputFile)
	r.writePlain("  Size: %d bytes\n", len(artifact.CSV))
	return nil
}
