package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/desertthunder/spotx/internal/formatter"
	"github.com/desertthunder/spotx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Batch looks up every input in --file and prints a summary.
func (r *Runner) Batch(ctx context.Context, cmd *cli.Command) error {
	inputs, err := r.readInputs(cmd.String("file"))
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	opts := tasks.BatchOpts{
		Workers:   cmd.Int("workers"),
		RateLimit: cmd.Float("rate"),
		OutputDir: cmd.String("output-dir"),
		Format:    format,
		Pretty:    cmd.Bool("pretty"),
	}

	engine := tasks.NewEngine(r.spotify(), r.recorder(cmd.Bool("no-history")), r.logger)

	r.logger.Info("starting batch", "inputs", len(inputs), "workers", opts.Workers)
	r.writePlain("Looking up %d inputs...\n\n", len(inputs))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ResolveInputs:
				r.writePlain("🔍 %s\n", update.Message)
			case tasks.FetchResources, tasks.ExportResults:
				r.writePlain("   %s\n", update.Message)
			case tasks.RecordHistory:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Batch(ctx, progressCh, inputs, opts)
	close(progressCh)
	<-done

	if err != nil && result == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Batch Complete!")
	r.writePlain("Succeeded: %d/%d\n", result.Succeeded, len(result.Items))
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.Failed > 0 {
		r.writePlain("\nFailed %d lookups:\n", result.Failed)
		for _, item := range result.Items {
			if item.Err != nil {
				r.writePlain("  ✗ %s: %v\n", item.Input, item.Err)
			}
		}
	}

	return err
}

func (r *Runner) readInputs(path string) ([]string, error) {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		in = f
	}
	return tasks.ReadInputs(in)
}
