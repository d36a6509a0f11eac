package util

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const maxFileNameRunes = 200

// SanitizeFileName keeps the last path element of a client supplied name,
// drops control characters and caps its length.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." {
		return "", errors.New("invalid file name")
	}
	if utf8.RuneCountInString(s) > maxFileNameRunes {
		s = string([]rune(s)[:maxFileNameRunes])
	}
	return s, nil
}
