// Package transcriber turns captured audio into text via hosted
// speech-to-text APIs. Engines are blocking black boxes: one call per
// drained recording, errors reported, never fatal.
package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

type Engine interface {
	Name() string
	SetLanguage(lang string)
	Language() string
	Transcribe(ctx context.Context, data []byte, format string) (string, error)
}

type baseEngine struct {
	client *http.Client
	apiURL string
	apiKey string
	lang   string
}

func newBaseEngine(apiURL, apiKey string) baseEngine {
	return baseEngine{
		client: &http.Client{Timeout: 2 * time.Minute},
		apiURL: apiURL,
		apiKey: apiKey,
	}
}

func (b *baseEngine) SetLanguage(lang string) { b.lang = lang }

func (b *baseEngine) Language() string { return b.lang }

// New picks an engine from the environment: Groq if GROQ_API_KEY is set,
// else OpenAI if OPENAI_API_KEY is set.
func New() (Engine, error) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		return NewGroq(key), nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return NewOpenAI(key), nil
	}
	return nil, fmt.Errorf("set GROQ_API_KEY or OPENAI_API_KEY environment variable")
}
