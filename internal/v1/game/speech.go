package game

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Speaking-time estimate: how long a prompt takes to read aloud. The host's
// board locks buzzers while the clue is "being read"; this heuristic sets
// that delay from the text alone so every client unlocks at the same moment.

const (
	msPerSyllable   = 250 * time.Millisecond // ~4 syllables per second
	minSpeakingTime = 2 * time.Second
	maxSpeakingTime = 10 * time.Second
)

var (
	leadingAsideRe  = regexp.MustCompile(`^\s*\([^)]*\)\s*`)
	underscoreRunRe = regexp.MustCompile(`_+`)
)

// SpeakingTime estimates the reading duration for a clue prompt.
func SpeakingTime(prompt string) time.Duration {
	text := leadingAsideRe.ReplaceAllString(prompt, "")
	text = underscoreRunRe.ReplaceAllString(text, " blank ")

	syllables := 0
	for _, word := range strings.Fields(text) {
		syllables += syllableCount(word)
	}

	d := time.Duration(syllables) * msPerSyllable
	if d < minSpeakingTime {
		return minSpeakingTime
	}
	if d > maxSpeakingTime {
		return maxSpeakingTime
	}
	return d
}

// syllableCount estimates syllables in a single word: short words count one;
// otherwise count vowel groups with a trailing silent e stripped.
func syllableCount(word string) int {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	w := b.String()
	if w == "" {
		return 0
	}
	if len(w) <= 3 {
		return 1
	}

	// "…ate" keeps its e as part of a vowel group; a bare trailing e after a
	// consonant is almost always silent.
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "ee") && !isVowel(rune(w[len(w)-2])) {
		w = w[:len(w)-1]
	}

	groups := 0
	inGroup := false
	for _, r := range w {
		if isVowel(r) {
			if !inGroup {
				groups++
				inGroup = true
			}
		} else {
			inGroup = false
		}
	}

	if groups == 0 {
		return 1
	}
	return groups
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
