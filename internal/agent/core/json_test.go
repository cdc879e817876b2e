package core

import "testing"

func TestExtractFirstJSON(t *testing.T) {
	// bare object passes through
	if got := extractFirstJSON(`{"a":1}`); got != `{"a":1}` {
		t.Fatalf("bare object: got %q", got)
	}

	// prose and markdown wrapping is stripped
	if got := extractFirstJSON("Here is the record:\n```json\n{\"title\":\"Algolia\"}\n```\nDone."); got != `{"title":"Algolia"}` {
		t.Fatalf("fenced object: got %q", got)
	}

	// nested braces stay balanced
	if got := extractFirstJSON(`prefix {"a":{"b":{"c":2}}} suffix`); got != `{"a":{"b":{"c":2}}}` {
		t.Fatalf("nested object: got %q", got)
	}

	// only the first object is returned
	if got := extractFirstJSON(`{"a":1} {"b":2}`); got != `{"a":1}` {
		t.Fatalf("first of two: got %q", got)
	}

	// input without any object comes back unchanged
	if got := extractFirstJSON("no json here"); got != "no json here" {
		t.Fatalf("no object: got %q", got)
	}

	// unbalanced input comes back unchanged
	if got := extractFirstJSON(`{"a": 1`); got != `{"a": 1` {
		t.Fatalf("unbalanced object: got %q", got)
	}
}
