package serper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devscout/devscout/tools/web_search/models"
)

type Search struct {
	ApiKey  string
	Timeout time.Duration
}

func (s Search) Search(ctx context.Context, q string, depth models.Depth) (*models.Response, error) {
	// https://serper.dev/ docs
	num := 10
	if depth == models.DepthDeep {
		num = 20
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	body, _ := json.Marshal(map[string]any{"q": q, "num": num})
	req, _ := http.NewRequestWithContext(ctx, "POST", "https://google.serper.dev/search", strings.NewReader(string(body)))
	req.Header.Set("X-API-KEY", s.ApiKey)
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

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	out := &models.Response{}
	if box, ok := raw["answerBox"].(map[string]any); ok {
		if v, ok := box["answer"].(string); ok && v != "" {
			out.Answer = v
		} else if v, ok := box["snippet"].(string); ok {
			out.Answer = v
		}
	}
	if items, ok := raw["organic"].([]any); ok {
		for i, it := range items {
			if i >= num {
				break
			}
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			out.Sources = append(out.Sources, models.Source{
				Name: str(m["title"]), URL: str(m["link"]), Snippet: str(m["snippet"]),
			})
		}
	}
	return out, nil
}

func str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
