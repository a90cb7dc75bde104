package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/time/rate"
)

// TokenProvider supplies a currently valid access token for a user.
// Implemented by services.AccessManager.
type TokenProvider interface {
	EnsureAccess(ctx context.Context, userID string) (string, error)
}

// ExportEngine builds CSV export artifacts from a user's Spotify library,
// either synchronously or as tracked background jobs.
type ExportEngine struct {
	access    TokenProvider
	spotify   services.Provider
	store     JobStore
	logger    *log.Logger
	limiter   *rate.Limiter
	retention time.Duration
	now       func() time.Time
}

// NewExportEngine creates an ExportEngine with the provided collaborators.
// A nil store gets an in-memory one; cfg supplies pacing and retention.
func NewExportEngine(access TokenProvider, spotify services.Provider, store JobStore, logger *log.Logger, cfg shared.ExportConfig) *ExportEngine {
	if store == nil {
		store = NewMemoryJobStore()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 5.0
	}
	return &ExportEngine{
		access:    access,
		spotify:   spotify,
		store:     store,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Limit(limit), 1),
		retention: cfg.Retention(),
		now:       time.Now,
	}
}

// StartExport registers an all-playlists export job for the user and returns
// its id immediately; the work runs on a detached goroutine. The progress
// channel is optional and never blocks the job.
func (e *ExportEngine) StartExport(ctx context.Context, userID string, progress chan<- ProgressUpdate) (string, error) {
	if e.spotify == nil {
		return "", fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	jobID := fmt.Sprintf("export_%s_%d_%s", userID, e.now().UnixMilli(), shared.GenerateID()[:8])

	e.store.Put(&models.ExportJob{
		ID:        jobID,
		UserID:    userID,
		Status:    models.JobStarting,
		CreatedAt: e.now(),
	})

	// The job must outlive the request that started it.
	go e.processExport(context.WithoutCancel(ctx), userID, jobID, progress)

	return jobID, nil
}

// Poll returns a read-only snapshot of the job's current state.
// Jobs are only visible to the user that started them.
func (e *ExportEngine) Poll(userID, jobID string) (models.ExportJob, error) {
	job, ok := e.store.Get(jobID)
	if !ok || job.UserID != userID {
		return models.ExportJob{}, fmt.Errorf("%w: %s", shared.ErrJobNotFound, jobID)
	}
	return job, nil
}

// Download returns the finished artifact. Until the job completes (or after
// it fails) the artifact is not available; within the retention window the
// same artifact can be downloaded repeatedly.
func (e *ExportEngine) Download(userID, jobID string) (*models.Artifact, error) {
	job, err := e.Poll(userID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobCompleted || job.Artifact == nil {
		return nil, fmt.Errorf("%w: job is %s", shared.ErrJobNotReady, job.Status)
	}
	artifact := *job.Artifact
	return &artifact, nil
}

// processExport is the single writer for a job: it advances the status, keeps
// the playlist counters current, and stores the finished artifact.
func (e *ExportEngine) processExport(ctx context.Context, userID, jobID string, progress chan<- ProgressUpdate) {
	fail := func(err error) {
		e.logger.Error("export job failed", "job", jobID, "error", err)
		e.store.Update(jobID, func(job *models.ExportJob) {
			job.Status = models.JobError
			job.ErrorMessage = err.Error()
			job.CompletedAt = e.now()
		})
		e.sendProgress(progress, failedUpdate(err))
		e.scheduleCleanup(jobID)
	}

	token, err := e.access.EnsureAccess(ctx, userID)
	if err != nil {
		fail(err)
		return
	}

	e.store.Update(jobID, func(job *models.ExportJob) {
		job.Status = models.JobFetchingPlaylists
	})
	e.sendProgress(progress, fetchPlaylistsUpdate())

	playlists, err := e.spotify.ListPlaylists(ctx, token)
	if err != nil {
		fail(fmt.Errorf("failed to list playlists: %w", err))
		return
	}

	e.store.Update(jobID, func(job *models.ExportJob) {
		job.Status = models.JobProcessing
		job.Total = len(playlists)
	})
	e.sendProgress(progress, foundPlaylistsUpdate(playlists))

	sections := e.collectSections(ctx, token, jobID, playlists, progress)

	e.sendProgress(progress, assembleUpdate(len(playlists)))
	csv, err := formatter.AllPlaylistsCSV(sections)
	if err != nil {
		fail(fmt.Errorf("failed to build CSV: %w", err))
		return
	}

	artifact := &models.Artifact{
		Filename: formatter.AllPlaylistsFilename(e.exportOwner(ctx, token, userID), e.now()),
		CSV:      csv,
	}

	e.store.Update(jobID, func(job *models.ExportJob) {
		job.Status = models.JobCompleted
		job.CurrentPlaylist = ""
		job.Artifact = artifact
		job.CompletedAt = e.now()
	})
	e.sendProgress(progress, completeUpdate(artifact))
	e.logger.Info("export job completed", "job", jobID, "playlists", len(sections), "of", len(playlists))

	e.scheduleCleanup(jobID)
}

// collectSections fetches every playlist's tracks in listing order, pacing
// requests through the limiter. A playlist whose fetch fails is logged and
// skipped; the remaining playlists still export. An empty jobID means the
// caller is synchronous and no counters are updated.
func (e *ExportEngine) collectSections(ctx context.Context, token, jobID string, playlists []models.Playlist, progress chan<- ProgressUpdate) []formatter.PlaylistSection {
	sections := make([]formatter.PlaylistSection, 0, len(playlists))

	for i, pl := range playlists {
		if err := e.limiter.Wait(ctx); err != nil {
			e.logger.Warn("export pacing interrupted", "error", err)
			break
		}

		if jobID != "" {
			e.store.Update(jobID, func(job *models.ExportJob) {
				job.Current = i + 1
				job.CurrentPlaylist = pl.Name
			})
		}
		e.sendProgress(progress, exportTracksUpdate(i+1, len(playlists), pl.Name))

		items, err := e.spotify.PlaylistTracks(ctx, token, pl.ID)
		if err != nil {
			e.logger.Warn("skipping playlist", "playlist", pl.ID, "name", pl.Name, "error", err)
			e.sendProgress(progress, exportSkippedUpdate(i+1, len(playlists), pl.Name, err))
			continue
		}

		sections = append(sections, formatter.PlaylistSection{Playlist: pl, Items: items})
	}

	return sections
}

// ExportPlaylist builds a single playlist's CSV artifact synchronously.
func (e *ExportEngine) ExportPlaylist(ctx context.Context, userID, playlistID string) (*models.Artifact, error) {
	token, err := e.access.EnsureAccess(ctx, userID)
	if err != nil {
		return nil, err
	}

	playlist, err := e.spotify.GetPlaylist(ctx, token, playlistID)
	if err != nil {
		var up *services.UpstreamError
		if errors.As(err, &up) && up.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, err
	}

	items, err := e.spotify.PlaylistTracks(ctx, token, playlistID)
	if err != nil {
		return nil, err
	}

	csv, err := formatter.PlaylistCSV(items)
	if err != nil {
		return nil, fmt.Errorf("failed to build CSV: %w", err)
	}

	return &models.Artifact{
		Filename: formatter.PlaylistFilename(e.exportOwner(ctx, token, userID), playlist.Name, e.now()),
		CSV:      csv,
	}, nil
}

// ExportAll builds the combined all-playlists CSV synchronously, sharing the
// section-collection path with background jobs.
func (e *ExportEngine) ExportAll(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*models.Artifact, error) {
	token, err := e.access.EnsureAccess(ctx, userID)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchPlaylistsUpdate())
	playlists, err := e.spotify.ListPlaylists(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	e.sendProgress(progress, foundPlaylistsUpdate(playlists))

	sections := e.collectSections(ctx, token, "", playlists, progress)

	e.sendProgress(progress, assembleUpdate(len(playlists)))
	csv, err := formatter.AllPlaylistsCSV(sections)
	if err != nil {
		return nil, fmt.Errorf("failed to build CSV: %w", err)
	}

	artifact := &models.Artifact{
		Filename: formatter.AllPlaylistsFilename(e.exportOwner(ctx, token, userID), e.now()),
		CSV:      csv,
	}
	e.sendProgress(progress, completeUpdate(artifact))
	return artifact, nil
}

// exportOwner resolves the provider-side user id for filenames, falling back
// to the local user id when the profile lookup fails.
func (e *ExportEngine) exportOwner(ctx context.Context, token, userID string) string {
	profile, err := e.spotify.UserProfile(ctx, token)
	if err != nil || profile.ID == "" {
		return userID
	}
	return profile.ID
}

// scheduleCleanup deletes a terminal job after the retention window.
// Each job reaches a terminal state exactly once, so exactly one deletion
// timer is ever armed for it.
func (e *ExportEngine) scheduleCleanup(jobID string) {
	time.AfterFunc(e.retention, func() {
		e.store.Delete(jobID)
		e.logger.Debug("expired export job", "job", jobID)
	})
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *ExportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
