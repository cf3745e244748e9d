package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultWhisperURL   = "https://api.openai.com/v1/audio/transcriptions"
	DefaultWhisperModel = "whisper-1"

	maxErrorBodySize = 4 << 10
)

// WhisperClient transcribes audio with an OpenAI compatible transcription endpoint.
type WhisperClient struct {
	endpoint string
	apiKey   string
	model    string
	language string
	cl       *http.Client
}

func NewWhisperClient(endpoint, apiKey, model, language string, timeout time.Duration) *WhisperClient {
	if endpoint == "" {
		endpoint = DefaultWhisperURL
	}
	if model == "" {
		model = DefaultWhisperModel
	}
	return &WhisperClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		language: language,
		cl:       &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads the audio and returns the recognized text.
// Format is the audio container extension, e.g. "ogg".
func (c *WhisperClient) Transcribe(ctx context.Context, audio io.Reader, format string) (string, error) {
	body, contentType, err := c.multipartBody(audio, format)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", errors.Wrap(err, "failed to create transcription request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.cl.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "transcription request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return "", errors.Errorf("transcription API responded with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(msg)),
		)
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrap(err, "failed to decode transcription response")
	}
	return strings.TrimSpace(result.Text), nil
}

func (c *WhisperClient) multipartBody(audio io.Reader, format string) (io.Reader, string, error) {
	if format == "" {
		format = "ogg"
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "voice."+format)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create multipart file field")
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return nil, "", errors.Wrap(err, "failed to copy audio into request")
	}
	fields := [][2]string{{"model", c.model}, {"response_format", "json"}}
	if c.language != "" {
		fields = append(fields, [2]string{"language", c.language})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", errors.Wrapf(err, "failed to write multipart field %q", f[0])
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", errors.Wrap(err, "failed to close multipart writer")
	}
	return &buf, mw.FormDataContentType(), nil
}
