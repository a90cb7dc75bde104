package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/secrets"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	opts := RunnerOpts{
		Config: config,
		Logger: logger,
	}

	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			svc.SetHTTPClient(&http.Client{Timeout: config.Export.RequestTimeout()})
			opts.Spotify = svc
			opts.Auth = svc

			if db, err := shared.NewDatabase(config.Database.Path); err == nil {
				shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
				opts.Repo = repositories.NewCredentialRepository(db)

				if cipher, err := secrets.NewCipher(config.Security.TokenKey, config.Security.InsecureDev); err == nil {
					opts.Access = services.NewAccessManager(opts.Repo, cipher, svc, logger)
				} else {
					logger.Warn("token cipher unavailable", "error", err)
				}
			} else {
				logger.Warn("database unavailable", "error", err)
			}
		} else {
			logger.Warn("spotify service unavailable", "error", err)
		}
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "spx",
		Usage:    "Export Spotify playlists to CSV",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
