package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/devscout/devscout/config"
	websearch "github.com/devscout/devscout/tools/web_search"
	"github.com/devscout/devscout/tools/web_search/models"
)

// Sentinel strings returned in place of search results. The prompts
// teach the model to treat anything starting with "Error:" as a failed
// search, so the exact wording is part of the tool contract.
const errSearchKeyMissing = "Error: search API key not configured"

// newSearcher builds the configured search client. A missing API key
// yields nil so tool calls degrade to sentinel errors instead of
// failing the whole run.
func newSearcher(cfg config.SearchConfig) websearch.WebSearcher {
	key := cfg.ActiveKey()
	if key == "" {
		return nil
	}
	searcher, err := websearch.NewWebSearcher(websearch.Provider(cfg.Provider), key, cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil
	}
	return searcher
}

// FormatSearchResult renders a search response the way the agents
// consume it: the synthesized answer followed by a numbered source
// list. Discovery searches include snippets, the worker's category
// searches omit them. maxSources of 0 keeps every source.
func FormatSearchResult(resp *models.Response, withSnippets bool, maxSources int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Answer: %s\n\n", resp.Answer)

	sources := resp.Sources
	if maxSources > 0 && len(sources) > maxSources {
		sources = sources[:maxSources]
	}
	if len(sources) == 0 {
		return b.String()
	}

	b.WriteString("Sources:\n")
	for i, src := range sources {
		title := src.Name
		if title == "" {
			title = "No title"
		}
		url := src.URL
		if url == "" {
			url = "No URL"
		}
		if withSnippets {
			snippet := src.Snippet
			if snippet == "" {
				snippet = "No snippet"
			}
			fmt.Fprintf(&b, "%d. %s - %s\n%s\n\n", i+1, title, url, snippet)
		} else {
			fmt.Fprintf(&b, "%d. %s - %s\n", i+1, title, url)
		}
	}
	return b.String()
}

// searchErrorString maps a search failure onto the stable sentinel
// strings the agents recognize.
func searchErrorString(err error) string {
	var statusErr *models.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("Error: search API returned status %d", statusErr.Code)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Error: search request timed out"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Error: search request timed out"
	}
	return fmt.Sprintf("Error: search failed - %v", err)
}
