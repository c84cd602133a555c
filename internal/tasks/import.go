package tasks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/time/rate"

	"github.com/desertthunder/groupchat/internal/shared"
)

// maxSenderLength bounds the "sender: " prefix recognized in transcript lines.
const maxSenderLength = 64

// ImportOpts contains configuration for transcript imports.
type ImportOpts struct {
	RateLimit     float64 // Messages per second (0 means unlimited)
	DefaultSender string  // Sender for lines without a "sender: " prefix
}

// ImportResult summarizes a transcript import.
type ImportResult struct {
	Total       int           // Messages in the transcript
	Posted      int           // Messages posted before the import finished or stopped
	TracksAdded int           // Tracks added across all posted messages
	Results     []*PostResult // One entry per posted message
}

// TranscriptLine is one message of a chat transcript.
type TranscriptLine struct {
	Sender string
	Body   string
}

// ReadTranscript reads one message per non-blank line. A leading "name: " sets the sender, otherwise
// defaultSender is used.
func ReadTranscript(r io.Reader, defaultSender string) ([]TranscriptLine, error) {
	var lines []TranscriptLine

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		lines = append(lines, parseLine(text, defaultSender))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	return lines, nil
}

func parseLine(text, defaultSender string) TranscriptLine {
	sender, body, ok := strings.Cut(text, ": ")
	sender = strings.TrimSpace(sender)
	body = strings.TrimSpace(body)
	if !ok || sender == "" || body == "" || len(sender) > maxSenderLength || strings.Contains(sender, "/") {
		return TranscriptLine{Sender: defaultSender, Body: text}
	}
	return TranscriptLine{Sender: sender, Body: body}
}

// Import replays a chat transcript against the playlist, posting one message at a time at most
// opts.RateLimit messages per second.
//
// The import stops at the first failed message and returns the partial result with the error.
func (e *ChatEngine) Import(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	playlistID string,
	r io.Reader,
	opts ImportOpts,
) (*ImportResult, error) {
	e.sendProgress(progress, readTranscriptUpdate())

	lines, err := ReadTranscript(r, opts.DefaultSender)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: transcript has no messages", shared.ErrInvalidInput)
	}

	if _, err := e.store.GetPlaylist(playlistID); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	result := &ImportResult{Total: len(lines), Results: make([]*PostResult, 0, len(lines))}

	for i, line := range lines {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		e.sendProgress(progress, postMessageUpdate(i+1, result.Total, line))

		posted, err := e.Post(ctx, playlistID, line.Sender, line.Body)
		if err != nil {
			e.sendProgress(progress, importFailedUpdate(i+1, result.Total, err))
			return result, fmt.Errorf("message %d: %w", i+1, err)
		}

		result.Posted++
		result.TracksAdded += posted.Added
		result.Results = append(result.Results, posted)

		if posted.Added > 0 {
			e.sendProgress(progress, tracksAddedUpdate(i+1, result.Total, posted))
		}
	}

	e.sendProgress(progress, importCompleteUpdate(result))
	return result, nil
}
