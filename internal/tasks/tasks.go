package tasks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
)

// Searcher is the part of the Spotify client the engine needs.
type Searcher interface {
	Search(ctx context.Context, input string) (*services.Result, error)
}

// HistoryRecorder persists lookups (repositories.LookupRepository).
type HistoryRecorder interface {
	Create(lookup *models.Lookup) error
}

// Engine runs batch lookups against a [Searcher], optionally recording each
// successful lookup with a [HistoryRecorder].
type Engine struct {
	searcher Searcher
	history  HistoryRecorder
	logger   *log.Logger
}

// NewEngine creates an Engine. history may be nil to skip recording.
func NewEngine(searcher Searcher, history HistoryRecorder, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		searcher: searcher,
		history:  history,
		logger:   shared.WithLogger(logger, "task", "batch"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// LookupFromResult builds the history record for a resolved input.
func LookupFromResult(input string, r *services.Result) *models.Lookup {
	return models.NewLookup(input, r.Ref.Kind.String(), r.Ref.ID, r.Name())
}

// Record stores one lookup. A nil recorder is a no-op.
func Record(h HistoryRecorder, input string, r *services.Result) error {
	if h == nil || r == nil {
		return nil
	}
	if err := h.Create(LookupFromResult(input, r)); err != nil {
		return fmt.Errorf("failed to record lookup: %w", err)
	}
	return nil
}

// ReadInputs reads one input per line, skipping blank lines and lines starting with '#'.
func ReadInputs(r io.Reader) ([]string, error) {
	var inputs []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inputs: %w", err)
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs", shared.ErrMissingArgument)
	}
	return inputs, nil
}
