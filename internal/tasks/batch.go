package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/desertthunder/spotx/internal/formatter"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers = 4
	maxWorkers     = 16
)

// BatchOpts contains configuration for batch lookups.
type BatchOpts struct {
	Workers   int              // Concurrent lookups (default: 4, max: 16)
	RateLimit float64          // Lookups started per second; 0 disables pacing
	OutputDir string           // When set, each result is written to a file here
	Format    formatter.Format // File format (default: json)
	Pretty    bool             // Indent JSON output
}

// BatchItem is the outcome for one input, at the same index as the input.
type BatchItem struct {
	Index  int
	Input  string
	Result *services.Result
	File   string
	Err    error
}

// BatchResult collects every item in input order.
type BatchResult struct {
	Items        []BatchItem
	Succeeded    int
	Failed       int
	Recorded     int
	OutputDir    string
	ManifestPath string
}

type manifestEntry struct {
	Input string `json:"input"`
	Kind  string `json:"kind,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	File  string `json:"file,omitempty"`
	Error string `json:"error,omitempty"`
}

// Batch looks up every input with at most opts.Workers lookups in flight.
//
// A failed lookup, including one answered with an error-shaped body, is reported on its
// item and does not stop the others. Cancelling ctx stops the batch and returns the
// context error. Successful lookups are recorded in history after all lookups finish,
// in input order.
func (e *Engine) Batch(ctx context.Context, prog chan<- ProgressUpdate, inputs []string, opts BatchOpts) (*BatchResult, error) {
	if e.searcher == nil {
		return nil, fmt.Errorf("%w: spotify client not initialized", shared.ErrServiceUnavailable)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs", shared.ErrMissingArgument)
	}

	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	links := 0
	for _, in := range inputs {
		if services.Resolve(in) {
			links++
		}
	}
	e.sendProgress(prog, resolvingUpdate(len(inputs), links))

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	result := &BatchResult{Items: make([]BatchItem, len(inputs)), OutputDir: opts.OutputDir}
	total := len(inputs)
	var completed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, input := range inputs {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}

			item := &result.Items[i]
			item.Index, item.Input = i, input
			item.Result, item.Err = e.searcher.Search(gctx, input)
			if item.Err == nil {
				if msg := item.Result.APIError(); msg != "" {
					item.Err = fmt.Errorf("%w: %s", shared.ErrAPIRequest, msg)
				}
			}

			if item.Err == nil && opts.OutputDir != "" {
				item.File, item.Err = e.export(item, opts)
			}

			step := int(completed.Add(1))
			if item.Err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.Warn("lookup failed", "input", input, "err", item.Err)
				e.sendProgress(prog, fetchFailedUpdate(step, total, item))
				return nil
			}

			e.sendProgress(prog, fetchedUpdate(step, total, item))
			if item.File != "" {
				e.sendProgress(prog, exportedUpdate(step, total, item.File))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range result.Items {
		item := &result.Items[i]
		if item.Err != nil {
			result.Failed++
			continue
		}

		result.Succeeded++
		if err := Record(e.history, item.Input, item.Result); err != nil {
			e.logger.Warn("history not recorded", "input", item.Input, "err", err)
			continue
		}
		if e.history != nil {
			result.Recorded++
		}
	}
	if e.history != nil {
		e.sendProgress(prog, recordedUpdate(result.Recorded, result.Succeeded))
	}

	if opts.OutputDir != "" {
		manifestPath := filepath.Join(opts.OutputDir, "manifest.json")
		if err := writeManifest(result, manifestPath); err != nil {
			return result, fmt.Errorf("batch completed but failed to write manifest: %w", err)
		}
		result.ManifestPath = manifestPath
	}

	return result, nil
}

// export writes one result under opts.OutputDir and returns the file path.
func (e *Engine) export(item *BatchItem, opts BatchOpts) (string, error) {
	path := filepath.Join(opts.OutputDir, exportFilename(item.Index, item.Result.Ref)+opts.Format.Extension())
	if err := formatter.WriteExport(item.Result, opts.Format, opts.Pretty, path); err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	return path, nil
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9]+`)

// exportFilename names a result file, e.g. "003_track_abc123" or "004_query_daft_punk".
func exportFilename(index int, ref services.ResourceRef) string {
	id := ref.ID
	if ref.IsQuery() {
		id = strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(ref.Query), "_"), "_")
		if len(id) > 40 {
			id = id[:40]
		}
	}
	if id == "" {
		id = "empty"
	}
	return fmt.Sprintf("%03d_%s_%s", index+1, ref.Kind, id)
}

func writeManifest(result *BatchResult, path string) error {
	entries := make([]manifestEntry, 0, len(result.Items))
	for _, item := range result.Items {
		entry := manifestEntry{Input: item.Input}
		if item.File != "" {
			entry.File = filepath.Base(item.File)
		}
		if item.Result != nil {
			entry.Kind = item.Result.Ref.Kind.String()
			entry.ID = item.Result.Ref.ID
			entry.Name = item.Result.Name()
		}
		if item.Err != nil {
			entry.Error = item.Err.Error()
		}
		entries = append(entries, entry)
	}

	data, err := shared.MarshalJSON(entries, true)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
