package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolveInputs Phase = iota
	FetchResources
	ExportResults
	RecordHistory
)

func (p Phase) String() string {
	switch p {
	case ResolveInputs:
		return "resolve_inputs"
	case FetchResources:
		return "fetch_resources"
	case ExportResults:
		return "export_results"
	case RecordHistory:
		return "record_history"
	default:
		return ""
	}
}

func resolvingUpdate(total, links int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveInputs,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Resolved %d inputs (%d links, %d searches)", total, links, total-links),
	}
}

func fetchedUpdate(step, total int, item *BatchItem) ProgressUpdate {
	label := item.Input
	if name := item.Result.Name(); name != "" {
		label = name
	}
	return ProgressUpdate{
		Phase:   FetchResources,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s %s", step, total, item.Result.Ref.Kind, label),
		Data:    item,
	}
}

func fetchFailedUpdate(step, total int, item *BatchItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchResources,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, item.Input, item.Err),
		Data:    item,
	}
}

func exportedUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportResults,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Wrote %s", step, total, path),
	}
}

func recordedUpdate(recorded, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordHistory,
		Step:    recorded,
		Total:   total,
		Message: fmt.Sprintf("Recorded %d lookups", recorded),
	}
}
