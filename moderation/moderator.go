// Package moderation censors configured words in chat text before it is stored.
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator matches every pattern in one pass using an Aho-Corasick automaton.
// A Moderator built without usable patterns leaves text untouched.
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
	log          *slog.Logger
}

// textMapping keeps, for every normalized rune, its index in the original text.
type textMapping struct {
	normalized []rune
	origIdx    []int
}

func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (*Moderator, error) {
	seen := make(map[string]struct{}, len(censoredWords))
	patterns := make([][]rune, 0, len(censoredWords))
	for _, word := range censoredWords {
		pattern := normalizeRunes([]rune(word))
		// Words made only of noise would match nothing meaningful
		if len(pattern) == 0 {
			continue
		}
		if _, dup := seen[string(pattern)]; dup {
			continue
		}
		seen[string(pattern)] = struct{}{}
		patterns = append(patterns, pattern)
	}

	moderator := &Moderator{censoredChar: censoredChar, log: log}
	if len(patterns) == 0 {
		log.Warn("Moderator built without any usable word")
		return moderator, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	moderator.matcher = m
	log.Info("Moderator ready", "words", len(patterns))
	return moderator, nil
}

// Censor replaces matched words with the censor rune, keeping the original spacing.
// It returns the censored text and the normalized words found, in order of appearance.
func (m *Moderator) Censor(original string) (string, []string) {
	if m.matcher == nil {
		return original, nil
	}
	mapping := normalize(original)
	if len(mapping.normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var words []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}

		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.censoredChar
		}
		words = append(words, string(span.Word))
	}

	if len(words) > 0 {
		m.log.Debug("Censored chat text", "words", len(words))
	}
	return string(origRunes), words
}

func normalize(input string) textMapping {
	origRunes := []rune(input)
	mapping := textMapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		mapping.normalized = append(mapping.normalized, unicode.ToLower(clean))
		mapping.origIdx = append(mapping.origIdx, i)
	}
	return mapping
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps leet speak back to letters: "b4dg3r" reads as "badger".
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
