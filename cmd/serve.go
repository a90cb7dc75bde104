package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/spx/internal/server"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP export API until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if r.auth == nil || r.spotify == nil {
		return fmt.Errorf("%w: Spotify credentials not configured, run 'spx setup' first", shared.ErrServiceUnavailable)
	}
	if r.access == nil || r.engine == nil {
		return fmt.Errorf("%w: credential store not initialized", shared.ErrServiceUnavailable)
	}

	api := server.NewAPI(r.auth, r.access, r.spotify, r.engine, r.logger)
	httpServer := server.NewServer(r.config.Server, api, r.logger)

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	r.logger.Infof("listening on %v", httpServer.Addr)
	r.writePlain("→ Export API listening on http://%s\n", httpServer.Addr)
	r.writePlain("→ Visit http://%s/auth/login to authenticate\n", httpServer.Addr)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
