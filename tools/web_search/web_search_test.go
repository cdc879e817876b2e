package web_search

import "testing"

func TestNewWebSearcherProviders(t *testing.T) {
	for _, p := range []Provider{LinkupProvider, SerperProvider, BraveProvider} {
		s, err := NewWebSearcher(p, "key", "", 0)
		if err != nil {
			t.Fatalf("expected %s provider to construct, got %v", p, err)
		}
		if s == nil {
			t.Fatalf("expected non-nil searcher for %s", p)
		}
	}
}

func TestNewWebSearcherUnsupported(t *testing.T) {
	if _, err := NewWebSearcher("duckduckgo", "key", "", 0); err != ErrUnsupportedProvider {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}
