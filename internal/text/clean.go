// Package text holds transcript clean-up and language code helpers.
package text

import "strings"

// noisePrefixes are lowercase line prefixes Whisper prints besides the transcript.
var noisePrefixes = []string{
	"detected language",
	"detecting language",
}

// CleanTranscription strips timestamp lines ("[00:00.000 --> ...]"), language
// detection notices and blank lines, then joins what is left into one line.
// Applying it twice yields the same result as applying it once.
func CleanTranscription(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") || isNoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, " ")
}

func isNoise(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range noisePrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
