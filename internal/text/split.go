package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitSentences breaks text into parts of at most maxRunes runes, cutting
// after sentence-ending punctuation where it can. A sentence longer than
// maxRunes is cut at whitespace, and a single word longer than that is cut
// mid-word. Parts are trimmed and never empty.
func SplitSentences(text string, maxRunes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}

	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			parts = append(parts, s)
		}
		cur.Reset()
		n = 0
	}
	for _, sentence := range sentences(text) {
		size := utf8.RuneCountInString(sentence)
		if size > maxRunes {
			flush()
			parts = append(parts, splitWords(sentence, maxRunes)...)
			continue
		}
		if n > 0 && n+1+size > maxRunes {
			flush()
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(sentence)
		n += size
	}
	flush()
	return parts
}

// sentences splits after runs of . ! ? and their full-width forms.
func sentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		for i+1 < len(runes) && isSentenceEnd(runes[i+1]) {
			i++
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '\n':
		return true
	}
	return false
}

func splitWords(sentence string, maxRunes int) []string {
	var (
		parts []string
		cur   []rune
	)
	for _, word := range strings.FieldsFunc(sentence, unicode.IsSpace) {
		w := []rune(word)
		for len(w) > maxRunes {
			if len(cur) > 0 {
				parts = append(parts, string(cur))
				cur = cur[:0]
			}
			parts = append(parts, string(w[:maxRunes]))
			w = w[maxRunes:]
		}
		if len(cur) > 0 && len(cur)+1+len(w) > maxRunes {
			parts = append(parts, string(cur))
			cur = cur[:0]
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}
