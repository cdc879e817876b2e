package core

// extractFirstJSON returns the first balanced JSON object found in s.
// Models often wrap their JSON in prose or markdown fences; this strips
// the wrapping without parsing. When no balanced object exists the input
// is returned unchanged so the caller sees the malformed text as-is.
func extractFirstJSON(s string) string {
	start := -1
	depth := 0
	for i, ch := range s {
		if ch == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == '}' {
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return s
}
