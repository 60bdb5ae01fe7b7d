package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

const maxAttempts = 3

var ErrEmptyTranscript = errors.New("engine returned an empty transcript")

// Client calls a Deepgram-style speech-to-text endpoint: raw audio bytes in
// the body, media type in Content-Type, token auth. Calls are retried up to
// three attempts total with a fixed wait on any non-2xx response or
// transport failure.
type Client struct {
	url        string
	apiKey     string
	retryWait  time.Duration
	httpClient *http.Client
}

func NewClient(url, apiKey string, retryWait time.Duration) *Client {
	return &Client{
		url:        url,
		apiKey:     apiKey,
		retryWait:  retryWait,
		httpClient: &http.Client{},
	}
}

type response struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends audio to the engine and returns the transcript text. An
// engine response without transcript text is a failure, never an empty
// success.
func (c *Client) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	operation := func() ([]byte, error) {
		body, err := c.call(ctx, audio, contentType)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("speech-to-text call failed")
			return nil, err
		}
		return body, nil
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryWait)),
		backoff.WithMaxTries(maxAttempts),
	)
	if err != nil {
		return "", err
	}

	return extractTranscript(body)
}

func (c *Client) call(ctx context.Context, audio []byte, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("speech-to-text engine returned status %d", resp.StatusCode)
	}

	return body, nil
}

func extractTranscript(body []byte) (string, error) {
	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode engine response: %w", err)
	}

	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", ErrEmptyTranscript
	}
	transcript := parsed.Results.Channels[0].Alternatives[0].Transcript
	if transcript == "" {
		return "", ErrEmptyTranscript
	}

	return transcript, nil
}
