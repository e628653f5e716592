package utils

import (
	"hash/fnv"
	"strings"

	"github.com/google/uuid"
)

// userPalette สีสำหรับ avatar / presence indicator
var userPalette = []string{
	"#ef4444", "#f97316", "#f59e0b", "#eab308", "#84cc16", "#22c55e",
	"#10b981", "#14b8a6", "#06b6d4", "#0ea5e9", "#3b82f6", "#6366f1",
	"#8b5cf6", "#a855f7", "#d946ef", "#ec4899", "#f43f5e",
}

// UserColor picks a stable palette colour for a user id.
func UserColor(id uuid.UUID) string {
	h := fnv.New32a()
	h.Write(id[:])
	return userPalette[h.Sum32()%uint32(len(userPalette))]
}

// Initials returns up to two upper-case initials of a display name.
func Initials(name string) string {
	var out []rune
	inWord := false
	for _, r := range name {
		if r == ' ' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			out = append(out, r)
			inWord = true
			if len(out) == 2 {
				break
			}
		}
	}
	return strings.ToUpper(string(out))
}
