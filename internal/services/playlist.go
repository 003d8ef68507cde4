package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// PlaylistAggregate is a playlist response together with every track item across all pages.
//
// Playlist holds the first response verbatim; the pages fetched after it are collected
// into Items rather than written back into it.
type PlaylistAggregate struct {
	Playlist json.RawMessage
	Items    []json.RawMessage
	// Pages counts the playlist response plus each followed page.
	Pages int
	// Truncated is set when a page reported an error and pagination stopped early.
	Truncated bool
}

// Name returns the playlist name, or "" for error-shaped responses.
func (p PlaylistAggregate) Name() string {
	return gjson.GetBytes(p.Playlist, "name").String()
}

// MarshalJSON emits the playlist object with tracks.items replaced by the full item
// sequence and tracks.next cleared. Responses without a tracks object pass through.
func (p PlaylistAggregate) MarshalJSON() ([]byte, error) {
	if !gjson.GetBytes(p.Playlist, "tracks").IsObject() {
		return p.Playlist, nil
	}

	items := make([]byte, 0, 2+len(p.Items)*64)
	items = append(items, '[')
	items = append(items, bytes.Join(rawSlices(p.Items), []byte{','})...)
	items = append(items, ']')

	out, err := sjson.SetRawBytes(bytes.Clone(p.Playlist), "tracks.items", items)
	if err != nil {
		return nil, fmt.Errorf("failed to set playlist items: %w", err)
	}

	out, err = sjson.SetRawBytes(out, "tracks.next", []byte("null"))
	if err != nil {
		return nil, fmt.Errorf("failed to clear playlist cursor: %w", err)
	}

	return out, nil
}

func rawSlices(items []json.RawMessage) [][]byte {
	out := make([][]byte, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func appendItems(dst []json.RawMessage, items gjson.Result) []json.RawMessage {
	for _, item := range items.Array() {
		dst = append(dst, json.RawMessage(item.Raw))
	}
	return dst
}

// GetPlaylist fetches /playlists/{id} and follows the track listing's next cursor
// page by page until it is null, appending each page's items in order.
//
// A page whose body carries an error field ends pagination; the items collected so far
// are kept. Transport failures on any page are returned as errors.
func (c *SpotifyClient) GetPlaylist(ctx context.Context, id string) (*PlaylistAggregate, error) {
	first, err := c.authenticatedGet(ctx, "/playlists/"+id)
	if err != nil {
		return nil, err
	}

	agg := &PlaylistAggregate{Playlist: first, Pages: 1}

	tracks := gjson.GetBytes(first, "tracks")
	if !tracks.IsObject() {
		return agg, nil
	}
	agg.Items = appendItems(agg.Items, tracks.Get("items"))

	logger := c.logger.With("playlist", id)
	next := tracks.Get("next")
	for next.Type == gjson.String && next.String() != "" {
		page, err := c.authenticatedGet(ctx, next.String())
		if err != nil {
			return nil, fmt.Errorf("failed to fetch playlist page %d: %w", agg.Pages+1, err)
		}

		if e := gjson.GetBytes(page, "error"); e.Exists() {
			logger.Warn("playlist page returned an error, stopping pagination",
				"page", agg.Pages+1, "status", e.Get("status").Int(), "message", e.Get("message").String())
			agg.Truncated = true
			break
		}

		agg.Pages++
		agg.Items = appendItems(agg.Items, gjson.GetBytes(page, "items"))
		next = gjson.GetBytes(page, "next")
	}

	c.metrics.playlistFetched(agg.Pages)
	logger.Debug("fetched playlist", "items", len(agg.Items), "pages", agg.Pages)
	return agg, nil
}
