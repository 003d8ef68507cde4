package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotx/internal/shared"
	"github.com/urfave/cli/v3"
)

type historyEntry struct {
	Sequence   int       `json:"sequence"`
	Input      string    `json:"input"`
	Kind       string    `json:"kind"`
	ResourceID string    `json:"resource_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryList prints recent lookups, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.lookups()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	lookups, err := repo.List(map[string]any{
		"kind":  strings.ToLower(cmd.String("kind")),
		"limit": cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]historyEntry, 0, len(lookups))
		for _, l := range lookups {
			entries = append(entries, historyEntry{
				Sequence:   l.Sequence(),
				Input:      l.Input(),
				Kind:       l.Kind(),
				ResourceID: l.ResourceID(),
				Name:       l.Name(),
				CreatedAt:  l.CreatedAt(),
			})
		}
		return r.writeJSON(entries, true)
	}

	if len(lookups) == 0 {
		r.writePlain("No lookups recorded yet\n")
		return nil
	}

	for _, l := range lookups {
		label := l.Name()
		if label == "" {
			label = l.Input()
		}
		r.writePlain("%4d  %-8s  %s  %s\n", l.Sequence(), l.Kind(), l.CreatedAt().Local().Format("2006-01-02 15:04"), label)
	}
	return nil
}

// HistoryDelete removes one lookup by sequence number, or all of them with --all.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.lookups()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	if cmd.Bool("all") {
		n, err := repo.Clear()
		if err != nil {
			return err
		}
		r.writePlain("✓ Deleted %d lookups\n", n)
		return nil
	}

	arg := strings.TrimSpace(cmd.StringArg("sequence"))
	if arg == "" {
		return fmt.Errorf("%w: lookup number or --all is required", shared.ErrMissingArgument)
	}

	sequence, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("%w: lookup number %q", shared.ErrInvalidArgument, arg)
	}

	lookup, err := repo.GetBySequence(sequence)
	if err != nil {
		return err
	}

	if err := repo.Delete(lookup.ID()); err != nil {
		return err
	}

	r.writePlain("✓ Deleted lookup %d (%s)\n", sequence, lookup.Input())
	return nil
}

// HistoryStats prints how many lookups of each kind are recorded.
func (r *Runner) HistoryStats(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.lookups()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	counts, err := repo.CountByKind()
	if err != nil {
		return err
	}

	total := 0
	for _, kind := range []string{"track", "album", "playlist", "artist", "query"} {
		r.writePlain("%-8s  %d\n", kind, counts[kind])
		total += counts[kind]
	}
	r.writePlain("%-8s  %d\n", "total", total)
	return nil
}
