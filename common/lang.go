package common

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLang normalizes language code the way documentation builds expect
// it: BCP 47 tag with region in upper case ("en_us" -> "en-US").
func NormalizeLang(in string) (string, error) {
	s := strings.TrimSpace(in)
	if s == "" {
		return "", nil
	}
	s = strings.ReplaceAll(s, "_", "-")

	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", in, err)
	}
	return tag.String(), nil
}

// BaseLang returns base language subtag ("ja-JP" -> "ja"), it falls back to
// the part before first dash when code could not be parsed.
func BaseLang(code string) string {
	if tag, err := language.Parse(strings.ReplaceAll(code, "_", "-")); err == nil {
		base, _ := tag.Base()
		return base.String()
	}
	base, _, _ := strings.Cut(code, "-")
	return strings.ToLower(base)
}
