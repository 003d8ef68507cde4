package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/spotx/internal/formatter"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/desertthunder/spotx/internal/tasks"
	"github.com/urfave/cli/v3"
)

type resolveOutput struct {
	Input          string `json:"input"`
	Matched        bool   `json:"matched"`
	Kind           string `json:"kind"`
	ID             string `json:"id,omitempty"`
	URI            string `json:"uri,omitempty"`
	URL            string `json:"url"`
	Mode           string `json:"mode,omitempty"`
	TokenExpiresAt string `json:"token_expires_at,omitempty"`
}

// Resolve classifies input and prints its kind and id, or "query" for free text.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	input := strings.TrimSpace(cmd.StringArg("input"))
	if input == "" {
		return fmt.Errorf("%w: input is required", shared.ErrMissingArgument)
	}

	client := r.spotify()
	matched := client.Resolve(input)
	if !matched && cmd.Bool("strict") {
		return fmt.Errorf("%w: %q is not a Spotify link or URI", shared.ErrInvalidInput, input)
	}

	ref := client.Classify(input)
	out := resolveOutput{
		Input:   input,
		Matched: matched,
		Kind:    ref.Kind.String(),
		ID:      ref.ID,
		URI:     ref.URI(),
		URL:     ref.URL(),
	}
	if cmd.Bool("verbose") {
		out.Mode = client.Mode().String()
		if exp, ok := client.TokenExpiry(); ok {
			out.TokenExpiresAt = exp.Format(time.RFC3339)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}

	if ref.IsQuery() {
		r.writePlain("query\n")
	} else {
		r.writePlain("%s\t%s\n", out.Kind, out.ID)
	}

	if cmd.Bool("verbose") {
		r.writePlain("url:   %s\n", out.URL)
		r.writePlain("mode:  %s\n", out.Mode)
		if out.TokenExpiresAt != "" {
			r.writePlain("token: expires %s\n", out.TokenExpiresAt)
		} else {
			r.writePlain("token: not acquired\n")
		}
	}
	return nil
}

// Search dispatches the joined arguments to the matching lookup.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	input := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if input == "" {
		return fmt.Errorf("%w: input is required", shared.ErrMissingArgument)
	}

	result, err := r.spotify().Search(ctx, input)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	return r.emit(cmd, input, result)
}

// Fetch returns an action that fetches a resource of kind by id, skipping classification.
func (r *Runner) Fetch(kind services.ResourceKind) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		id := strings.TrimSpace(cmd.StringArg("id"))
		if id == "" {
			return fmt.Errorf("%w: %s id is required", shared.ErrMissingArgument, kind)
		}

		result, err := r.fetch(ctx, services.ResourceRef{Kind: kind, ID: id})
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", kind, err)
		}

		return r.emit(cmd, id, result)
	}
}

// Words runs a free-text track search on the joined arguments.
func (r *Runner) Words(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: query is required", shared.ErrMissingArgument)
	}

	result, err := r.fetch(ctx, services.ResourceRef{Kind: services.KindQuery, Query: query})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return r.emit(cmd, query, result)
}

// Open opens the resolved resource, or a search for free text, in the browser.
func (r *Runner) Open(ctx context.Context, cmd *cli.Command) error {
	input := strings.TrimSpace(cmd.StringArg("input"))
	if input == "" {
		return fmt.Errorf("%w: input is required", shared.ErrMissingArgument)
	}

	target := r.spotify().Classify(input).URL()
	r.logger.Debug("opening browser", "url", target)

	if err := r.open(target); err != nil {
		return err
	}

	r.writePlain("Opened %s\n", target)
	return nil
}

func (r *Runner) fetch(ctx context.Context, ref services.ResourceRef) (*services.Result, error) {
	client := r.spotify()
	result := &services.Result{Ref: ref}

	var err error
	switch ref.Kind {
	case services.KindTrack:
		result.Data, err = client.GetTrack(ctx, ref.ID)
	case services.KindAlbum:
		result.Data, err = client.GetAlbum(ctx, ref.ID)
	case services.KindArtist:
		result.Data, err = client.GetArtistTracks(ctx, ref.ID)
	case services.KindPlaylist:
		var agg *services.PlaylistAggregate
		if agg, err = client.GetPlaylist(ctx, ref.ID); err == nil {
			result.Playlist = agg
			result.Data, err = agg.MarshalJSON()
		}
	default:
		result.Data, err = client.GetTrackByWords(ctx, ref.Query)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// emit renders result per the output flags and records it in history.
//
// Error-shaped bodies are printed like any other result but never recorded.
func (r *Runner) emit(cmd *cli.Command, input string, result *services.Result) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	pretty := cmd.Bool("pretty")

	if msg := result.APIError(); msg != "" {
		r.logger.Warn("spotify returned an error", "kind", result.Ref.Kind, "message", msg)
	} else if err := tasks.Record(r.recorder(cmd.Bool("no-history")), input, result); err != nil {
		r.logger.Warn("history not recorded", "error", err)
	}

	if dir := cmd.String("export-dir"); dir != "" {
		listing, err := formatter.FromResult(result)
		if err != nil {
			return err
		}
		exported, err := formatter.WriteMarkdownExport(listing, dir, r.httpClient, func(err error) {
			r.logger.Warn("export incomplete", "error", err)
		})
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d files to %s\n", len(exported.Files), exported.Directory)
		return nil
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(result, format, pretty, path); err != nil {
			return err
		}
		r.writePlain("✓ Saved %s to %s\n", result.Ref.Kind, path)
		return nil
	}

	out, err := formatter.Render(result, format, pretty)
	if err != nil {
		return err
	}
	return r.writeBytes(out)
}
