package parser

// firstObject returns the text from the first '{' to its matching '}'.
// Braces inside JSON strings are ignored; escapes inside strings are
// skipped. Scanning bytes is safe because the delimiters are ASCII and
// never occur inside a multi-byte UTF-8 sequence.
func firstObject(s string) (string, bool) {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}

	var (
		depth    int
		inString bool
		escape   bool
	)
	for i := start; i < len(s); i++ {
		b := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
