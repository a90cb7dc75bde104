// Package services implements the Spotify Web API client used by the export pipeline.
//
// Three concerns live here:
//
//   - [SpotifyService] : typed wrappers over the provider's REST endpoints,
//     including the cursor-draining [SpotifyService.CollectAll] collector.
//     All calls take an explicit bearer token because the service is shared
//     across users; it holds no per-user state.
//
//   - [AccessManager] : per-user credential lifecycle. Given a user id it
//     returns a currently valid access token, refreshing against the provider
//     and re-persisting the encrypted credential when the stored token is
//     within the expiry buffer.
//
//   - Error surface: rate-limit responses become [RateLimitError] carrying
//     the provider's retry-after hint, any other non-2xx becomes
//     [UpstreamError]. Neither is retried here; retry policy belongs to
//     callers.
package services
