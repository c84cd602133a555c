package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/groupchat/internal/formatter"
)

// ExportOpts contains configuration for bulk history exports.
type ExportOpts struct {
	Format     formatter.Format // Export format
	OutputDir  string           // Base output directory (default: groupchat_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 4, max: 8)
}

// HistoryExportResult is the outcome of exporting one playlist's history.
type HistoryExportResult struct {
	PlaylistID string `json:"playlist_id"`
	Title      string `json:"title,omitempty"`
	File       string `json:"file,omitempty"`
	Messages   int    `json:"messages"`
	Success    bool   `json:"success"`
	Error      error  `json:"-"`
	ErrorText  string `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk history export. It is also written as the export manifest.
type BulkExportResult struct {
	TotalPlaylists    int                   `json:"total_playlists"`
	SuccessfulExports int                   `json:"successful_exports"`
	FailedExports     int                   `json:"failed_exports"`
	OutputDirectory   string                `json:"output_directory"`
	ManifestPath      string                `json:"-"`
	Results           []HistoryExportResult `json:"results"`
}

type exportJob struct {
	index      int
	playlistID string
}

// ExportHistories writes the chat history of each playlist to its own file in opts.OutputDir using a
// worker pool, then writes export_manifest.json next to them.
//
// A playlist that fails to export is reported in the result and does not stop the others. Results keep
// the order of playlistIDs.
func (e *ChatEngine) ExportHistories(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	playlistIDs []string,
	opts ExportOpts,
) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("groupchat_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(playlistIDs),
		OutputDirectory: opts.OutputDir,
		Results:         make([]HistoryExportResult, len(playlistIDs)),
	}

	jobs := make(chan exportJob)
	results := make(chan exportJobResult, len(playlistIDs))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range playlistIDs {
			select {
			case <-ctx.Done():
				return
			case jobs <- exportJob{index: i, playlistID: id}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results[res.index] = res.HistoryExportResult
		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(playlistIDs), res.Title, res.Messages))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(playlistIDs), res.PlaylistID, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

type exportJobResult struct {
	index int
	HistoryExportResult
}

// exportWorker is a worker goroutine that exports histories from the jobs channel.
func (e *ChatEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- exportJobResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- exportJobResult{index: job.index, HistoryExportResult: e.exportHistory(job.playlistID, opts)}
	}
}

func (e *ChatEngine) exportHistory(playlistID string, opts ExportOpts) HistoryExportResult {
	result := HistoryExportResult{PlaylistID: playlistID}
	fail := func(err error) HistoryExportResult {
		result.Error = err
		result.ErrorText = err.Error()
		return result
	}

	playlist, err := e.store.GetPlaylist(playlistID)
	if err != nil {
		return fail(err)
	}
	result.Title = playlist.Title()

	messages, err := e.store.History(playlistID, 0)
	if err != nil {
		return fail(fmt.Errorf("failed to load history: %w", err))
	}
	result.Messages = len(messages)

	path, err := formatter.WriteHistoryExport(opts.Format, playlist, messages, opts.OutputDir)
	if err != nil {
		return fail(err)
	}

	result.File = path
	result.Success = true
	return result
}
