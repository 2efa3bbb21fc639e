package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// WhisperClient calls the external whisper speech server's /analyze endpoint,
// posting the audio and the expected text as multipart form data.
type WhisperClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewWhisperClient builds a client for the given base URL (e.g.
// "http://whisper:8000"). An empty URL yields no client; callers should fall
// back to Unavailable.
func NewWhisperClient(baseURL string) *WhisperClient {
	if baseURL == "" {
		return nil
	}
	return &WhisperClient{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 120 * time.Second},
	}
}

// analyzeResponse mirrors the speech server's /analyze JSON body.
type analyzeResponse struct {
	Text           string  `json:"text"`
	Duration       float64 `json:"duration"`
	WordsPerMinute float64 `json:"words_per_minute"`
	PauseCount     int     `json:"pause_count"`
	FluencyScore   float64 `json:"fluency_score"`
	AccuracyScore  float64 `json:"accuracy_score"`
}

// Analyze uploads the audio with the reference text and maps the service's
// metrics onto a Result, deriving per-word status and the pace class locally.
// Connection failures and 5xx responses surface as ErrUnavailable so the
// consumer records the recording as unanalyzed rather than erroring opaquely.
func (wc *WhisperClient) Analyze(ctx context.Context, audio io.Reader, filename, referenceText string) (*Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio_file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, err
	}
	if err := mw.WriteField("expected_text", referenceText); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wc.BaseURL+"/analyze", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := wc.HTTP.Do(req)
	if err != nil {
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech service: unexpected status %d", resp.StatusCode)
	}

	var ar analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("speech service: decode response: %w", err)
	}

	return &Result{
		Transcript:      ar.Text,
		AccuracyPct:     ar.AccuracyScore,
		FluencyScore:    ar.FluencyScore,
		WordsPerMinute:  ar.WordsPerMinute,
		PauseCount:      ar.PauseCount,
		DurationSeconds: ar.Duration,
		Pace:            paceClass(ar.WordsPerMinute),
		Words:           alignWords(referenceText, ar.Text),
	}, nil
}
