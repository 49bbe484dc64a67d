package broker

import (
	"fmt"
	"strings"
)

const (
	wildcardOne  = "*"
	wildcardMany = "#"
)

// MatchTopic reports whether routingKey matches pattern under topic exchange
// rules: words are separated by '.', '*' matches exactly one word and '#'
// matches zero or more words.
func MatchTopic(pattern, routingKey string) bool {
	p := strings.Split(pattern, ".")
	k := strings.Split(routingKey, ".")

	// match[j] reports whether p[:i] matches k[:j] for the current i.
	match := make([]bool, len(k)+1)
	match[0] = true
	for i := 1; i <= len(p); i++ {
		word := p[i-1]
		next := make([]bool, len(k)+1)
		if word == wildcardMany {
			next[0] = match[0]
		}
		for j := 1; j <= len(k); j++ {
			switch word {
			case wildcardMany:
				next[j] = match[j] || next[j-1]
			case wildcardOne:
				next[j] = match[j-1]
			default:
				next[j] = match[j-1] && word == k[j-1]
			}
		}
		match = next
	}
	return match[len(k)]
}

// ValidatePattern rejects empty patterns and words that mix wildcards with text.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPattern)
	}
	for _, word := range strings.Split(pattern, ".") {
		if word == wildcardOne || word == wildcardMany {
			continue
		}
		if strings.ContainsAny(word, wildcardOne+wildcardMany) {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}
	}
	return nil
}

// literalPrefix returns the words of pattern before its first wildcard, joined by '.'.
func literalPrefix(pattern string) (prefix string, wildcard bool) {
	words := strings.Split(pattern, ".")
	for i, word := range words {
		if word == wildcardOne || word == wildcardMany {
			return strings.Join(words[:i], "."), true
		}
	}
	return pattern, false
}
