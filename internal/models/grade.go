package models

import "strings"

// ParseGradeLabel splits a label like "6A" or "10B" into its numeric grade
// and section letter. Labels that don't match digits-then-one-letter ("A6",
// "6", "") report ok=false; callers drop them from selectable sets instead of
// failing the whole view.
func ParseGradeLabel(label string) (number string, section string, ok bool) {
	label = strings.TrimSpace(label)
	if len(label) < 2 {
		return "", "", false
	}
	num, sec := label[:len(label)-1], label[len(label)-1:]
	for _, r := range num {
		if r < '0' || r > '9' {
			return "", "", false
		}
	}
	c := sec[0]
	if !('A' <= c && c <= 'Z' || 'a' <= c && c <= 'z') {
		return "", "", false
	}
	return num, strings.ToUpper(sec), true
}
