// Package services implements the Spotify lookup client: input classification, the access
// token lifecycle and catalog reads.
//
// # Classification
//
// [Classify] matches open.spotify.com links (optionally under a user/<id>/ path) and
// spotify: URIs for albums, playlists, tracks and artists. Anything else is a free-text
// query. Ids are passed through verbatim.
//
// # Tokens
//
// [SpotifyClient] holds one token and refreshes it lazily when a request finds it stale.
// With both a client id and secret it uses the OAuth2 client-credentials grant
// ([clientcredentials.Config]); otherwise it uses the anonymous embed-player endpoint.
// Concurrent refreshes are coalesced into one request.
//
// # Catalog Reads
//
// Responses are returned as [json.RawMessage] exactly as Spotify sent them, including
// error-shaped bodies. Playlists are the exception: [SpotifyClient.GetPlaylist] follows
// the track listing's next cursor and returns a [PlaylistAggregate].
//
// # Error Handling
//
// Errors wrap sentinels from the shared package:
//   - [shared.ErrTokenAcquisition] : token request failed or returned no token
//   - [shared.ErrInvalidCredentials] : the token endpoint rejected the client credentials
//   - [shared.ErrAPIRequest] : transport failure or non-JSON body from the catalog API
package services
