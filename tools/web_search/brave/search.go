package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/devscout/devscout/tools/web_search/models"
)

type Search struct {
	ApiKey  string
	Timeout time.Duration
}

func (s Search) Search(ctx context.Context, q string, depth models.Depth) (*models.Response, error) {
	// https://api.search.brave.com/app/documentation/web-search
	count := 10
	if depth == models.DepthDeep {
		count = 20
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	endpoint := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d", url.QueryEscape(q), count)
	req, _ := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.ApiKey)

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
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	out := &models.Response{}
	var lead []string
	for i, r := range raw.Web.Results {
		if i >= count {
			break
		}
		out.Sources = append(out.Sources, models.Source{Name: r.Title, URL: r.URL, Snippet: r.Snippet})
		if i < 3 && r.Snippet != "" {
			lead = append(lead, r.Snippet)
		}
	}
	// Brave has no answer synthesis; the top snippets stand in.
	out.Answer = strings.Join(lead, " ")
	return out, nil
}
