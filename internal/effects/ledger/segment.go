package ledger

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/sheet"
)

// FormatSegment renders the text a segment patch appends.
func FormatSegment(value, label string) string {
	value = strings.TrimSpace(value)
	label = strings.TrimSpace(label)
	switch {
	case label == "":
		return value
	case value == "":
		return "[" + label + "]"
	default:
		return value + " [" + label + "]"
	}
}

func flagField(p effects.Patch) string {
	if p.Flag != "" {
		return p.Flag
	}
	return p.Field + "_flag"
}

func applySegment(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	first := book.Segments.Keys(p.Field) == 0
	book.markCreated(rec, p.Field, first)
	book.markCreated(rec, flagField(p), first)
	text, _ := rec.Get(p.Field)
	if prior, ok := book.Segments.get(p.Field, key); ok {
		text, _ = cutSegment(text, prior)
	}
	segment := FormatSegment(p.Value, p.Label)
	text = strings.TrimSpace(text)
	if text == "" {
		text = segment
	} else {
		text += " " + segment
	}
	rec.Set(p.Field, text)
	syncFlag(rec, p, text)
	book.Segments.put(p.Field, key, segment)
	return nil
}

func removeSegment(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	segment, ok := book.Segments.get(p.Field, key)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrMissingEntry, key, p.Field)
	}
	text, _ := rec.Get(p.Field)
	text, _ = cutSegment(text, segment)
	rec.Set(p.Field, text)
	syncFlag(rec, p, text)
	book.Segments.drop(p.Field, key)
	if book.Segments.Keys(p.Field) == 0 {
		book.releaseCreated(rec, p.Field)
		book.releaseCreated(rec, flagField(p))
	}
	return nil
}

func syncFlag(rec sheet.Record, p effects.Patch, text string) {
	if strings.TrimSpace(text) == "" {
		rec.Set(flagField(p), "0")
		return
	}
	rec.Set(flagField(p), "1")
}

// cutSegment removes the first occurrence of segment bounded by whitespace or the
// ends of text, together with one adjacent separator. It reports whether a match was cut.
func cutSegment(text, segment string) (string, bool) {
	if segment == "" {
		return strings.TrimSpace(text), false
	}
	from := 0
	for from <= len(text)-len(segment) {
		i := strings.Index(text[from:], segment)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(segment)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			if _, size := spaceAfter(text, end); size > 0 {
				end += size
			} else if _, size := spaceBefore(text, start); size > 0 {
				start -= size
			}
			return strings.TrimSpace(text[:start] + text[end:]), true
		}
		from = start + 1
	}
	return strings.TrimSpace(text), false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	ok, _ := spaceBefore(text, i)
	return ok
}

func boundaryAfter(text string, i int) bool {
	if i == len(text) {
		return true
	}
	ok, _ := spaceAfter(text, i)
	return ok
}

// spaceBefore reports whether the rune ending at i is whitespace, and its width.
func spaceBefore(text string, i int) (bool, int) {
	if i == 0 {
		return false, 0
	}
	r, size := utf8.DecodeLastRuneInString(text[:i])
	if r == utf8.RuneError || !unicode.IsSpace(r) {
		return false, 0
	}
	return true, size
}

// spaceAfter reports whether the rune starting at i is whitespace, and its width.
func spaceAfter(text string, i int) (bool, int) {
	if i >= len(text) {
		return false, 0
	}
	r, size := utf8.DecodeRuneInString(text[i:])
	if r == utf8.RuneError || !unicode.IsSpace(r) {
		return false, 0
	}
	return true, size
}
