package telegram

import (
	"strings"
	"unicode/utf8"
)

// chunks splits text into pieces of at most limit runes. Pieces break
// between lines; a single line longer than limit is cut by runes.
func chunks(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		out  []string
		cur  strings.Builder
		size int
		open bool
	)
	flush := func() {
		if open && strings.TrimSpace(cur.String()) != "" {
			out = append(out, cur.String())
		}
		cur.Reset()
		size, open = 0, false
	}

	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		if open && size+1+n > limit {
			flush()
		}
		for n > limit {
			runes := []rune(line)
			out = append(out, string(runes[:limit]))
			line = string(runes[limit:])
			n -= limit
		}
		if open {
			cur.WriteByte('\n')
			size++
		}
		cur.WriteString(line)
		size += n
		open = true
	}
	flush()

	return out
}
