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
	ReadingTranscript Phase = iota
	PostMessage
	AddTracks
	ImportFailed
	ImportComplete
	ExportHistory
)

func (p Phase) String() string {
	switch p {
	case ReadingTranscript:
		return "read_transcript"
	case PostMessage:
		return "post_message"
	case AddTracks:
		return "add_tracks"
	case ImportFailed:
		return "import_failed"
	case ImportComplete:
		return "import_complete"
	case ExportHistory:
		return "export_history"
	default:
		return ""
	}
}

func readTranscriptUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadingTranscript,
		Step:    1,
		Total:   1,
		Message: "Reading transcript...",
	}
}

func postMessageUpdate(step, total int, line TranscriptLine) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PostMessage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, line.Sender),
		Data:    line,
	}
}

func tracksAddedUpdate(step, total int, result *PostResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ added %d tracks", step, total, result.Added),
		Data:    result,
	}
}

func importFailedUpdate(step, total int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %v", step, total, err),
	}
}

func importCompleteUpdate(result *ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportComplete,
		Step:    result.Posted,
		Total:   result.Total,
		Message: fmt.Sprintf("Imported %d messages, %d tracks added", result.Posted, result.TracksAdded),
		Data:    result,
	}
}

func exportCompletedUpdate(step, total int, title string, messages int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportHistory,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d messages)", step, total, title, messages),
	}
}

func exportFailedUpdate(step, total int, playlistID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportHistory,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, playlistID, err),
	}
}
