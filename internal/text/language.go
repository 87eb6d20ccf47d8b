package text

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// SupportedTargetLanguages maps the target languages the dubbing backends
// accept (translation and TTS) to their English names.
var SupportedTargetLanguages = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"ru": "Russian",
	"ar": "Arabic",
	"hi": "Hindi",
}

// NormalizeLanguage parses a BCP 47 tag ("es", "es-MX", "zh_Hans") and returns
// its base ISO 639-1 code.
func NormalizeLanguage(code string) (string, error) {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return "", fmt.Errorf("empty language code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", fmt.Errorf("unknown language %q", code)
	}
	return base.String(), nil
}

// ValidateTargetLanguage normalizes code and checks it is supported.
func ValidateTargetLanguage(code string) (string, error) {
	base, err := NormalizeLanguage(code)
	if err != nil {
		return "", err
	}
	if _, ok := SupportedTargetLanguages[base]; !ok {
		return "", fmt.Errorf("unsupported target language %q", code)
	}
	return base, nil
}

// IsValidTargetLanguage checks if a language code is a valid target language.
func IsValidTargetLanguage(code string) bool {
	_, err := ValidateTargetLanguage(code)
	return err == nil
}

// GetLanguageName returns the English name for a language code.
// If the code cannot be parsed, it returns the code itself.
func GetLanguageName(code string) string {
	if name, ok := SupportedTargetLanguages[code]; ok {
		return name
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// GetTargetLanguageCodes returns all valid target language codes, sorted.
func GetTargetLanguageCodes() []string {
	codes := make([]string, 0, len(SupportedTargetLanguages))
	for code := range SupportedTargetLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
