package linkup

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/devscout/devscout/tools/web_search/models"
)

// DefaultBaseURL is the public Linkup endpoint.
const DefaultBaseURL = "https://api.linkup.so"

type Search struct {
	ApiKey  string
	BaseURL string
	Timeout time.Duration
}

func (s Search) Search(ctx context.Context, q string, depth models.Depth) (*models.Response, error) {
	// https://docs.linkup.so/pages/documentation/get-started
	base := s.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	payload := map[string]any{
		"q":          q,
		"depth":      string(depth),
		"outputType": "sourcedAnswer",
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", base+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &models.StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}

	var raw struct {
		Answer  string          `json:"answer"`
		Sources []models.Source `json:"sources"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return &models.Response{Answer: raw.Answer, Sources: raw.Sources}, nil
}
