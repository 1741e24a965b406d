package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
)

// IngestStream reads newline-delimited server-sent events from r and returns
// the concatenated text deltas. Every non-empty delta is handed to emit before
// the next line is read. A malformed event is logged and skipped. Both
// `data: [DONE]` and end of body terminate the stream; a read error fails it
// without returning the partial text.
func IngestStream(ctx context.Context, r io.Reader, emit func(domain.StreamEvent) error) (string, error) {
	reader := bufio.NewReader(r)
	var acc strings.Builder

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return "", &domain.NetworkError{Op: "read stream", Err: fmt.Errorf("failed to read stream: %w", readErr)}
		}

		done, err := ingestLine(line, &acc, emit)
		if err != nil {
			return "", err
		}
		if done || readErr != nil {
			break
		}
	}

	if emit != nil {
		if err := emit(domain.StreamEvent{Kind: domain.StreamEventDone}); err != nil {
			return "", err
		}
	}
	return acc.String(), nil
}

// ingestLine handles one event line and reports whether it was the sentinel.
func ingestLine(line string, acc *strings.Builder, emit func(domain.StreamEvent) error) (bool, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, dataPrefix) {
		return false, nil
	}

	data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if data == doneSentinel {
		return true, nil
	}

	var chunk StreamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		log.Printf("WARN: skipping malformed stream event: %v", err)
		return false, nil
	}

	text := chunk.DeltaText()
	if text == "" {
		return false, nil
	}
	acc.WriteString(text)
	if emit != nil {
		if err := emit(domain.StreamEvent{Kind: domain.StreamEventTextDelta, Text: text}); err != nil {
			return false, err
		}
	}
	return false, nil
}
