package cache

// Match reports whether key matches the Redis-style glob pattern.
// Unlike path.Match, '*' also matches across separators, so
// "admin:*" matches "admin:material-submissions:list".
//
// Every token other than '*' consumes exactly one byte of key, so only the
// most recent '*' needs to be retried. This keeps matching
// O(len(pattern)*len(key)) however many stars the pattern holds.
func Match(pattern, key string) bool {
	p, k := 0, 0
	starP, starK := -1, 0
	for k < len(key) {
		if p < len(pattern) {
			if pattern[p] == '*' {
				starP, starK = p, k
				p++
				continue
			}
			if width, ok := matchOne(pattern[p:], key[k]); ok {
				p += width
				k++
				continue
			}
		}
		if starP < 0 {
			return false
		}
		// Let the last '*' swallow one more byte and retry from there.
		starK++
		p, k = starP+1, starK
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// matchOne matches the single non-star token at the start of pattern
// against c. It returns the token's width in pattern and whether c matched.
func matchOne(pattern string, c byte) (int, bool) {
	switch pattern[0] {
	case '?':
		return 1, true
	case '[':
		end, ok := matchClass(pattern, c)
		if end < 0 {
			// Unterminated class: treat '[' literally.
			return 1, c == '['
		}
		return end, ok
	case '\\':
		if len(pattern) >= 2 {
			return 2, pattern[1] == c
		}
		return 1, c == '\\'
	default:
		return 1, pattern[0] == c
	}
}

// matchClass evaluates the bracket expression at the start of pattern against c.
// It returns the index just past ']' (or -1 if unterminated) and whether c matched.
func matchClass(pattern string, c byte) (int, bool) {
	i := 1
	negate := false
	if i < len(pattern) && pattern[i] == '^' {
		negate = true
		i++
	}
	matched := false
	first := true
	for i < len(pattern) {
		if pattern[i] == ']' && !first {
			return i + 1, matched != negate
		}
		first = false
		lo := pattern[i]
		if lo == '\\' && i+1 < len(pattern) {
			i++
			lo = pattern[i]
		}
		hi := lo
		if i+2 < len(pattern) && pattern[i+1] == '-' && pattern[i+2] != ']' {
			hi = pattern[i+2]
			if hi == '\\' && i+3 < len(pattern) {
				i++
				hi = pattern[i+2]
			}
			i += 2
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		if c >= lo && c <= hi {
			matched = true
		}
		i++
	}
	return -1, false
}
