package llm

import (
	"log"
	"os"
	"time"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewCompletionClient creates a client based on the GOGO_MODE environment variable.
// If GOGO_MODE=MOCK, returns a MockClient; otherwise returns a real Client.
func NewCompletionClient(baseURL string, timeout time.Duration) CompletionClient {
	if os.Getenv(EnvGogoMode) == ModeMock {
		log.Println("INFO: GOGO_MODE=MOCK detected, using mock completion client")
		return NewMockClient()
	}
	return NewClient(baseURL, timeout)
}
