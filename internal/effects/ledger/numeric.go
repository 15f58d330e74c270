package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/sheet"
)

func applyNumeric(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	delta, err := parseNumber(p.Value)
	if err != nil {
		return fmt.Errorf("%s delta: %w", p.Field, err)
	}
	current, err := readNumber(rec, p.Field)
	if err != nil {
		return err
	}
	prior, _ := book.Numeric.get(p.Field, key)
	next := current - prior + delta
	if !finite(next) {
		return fmt.Errorf("%w: %s overflows", ErrInvalidNumber, p.Field)
	}
	book.markCreated(rec, p.Field, book.Numeric.Keys(p.Field) == 0)
	rec.Set(p.Field, formatNumber(next))
	book.Numeric.put(p.Field, key, delta)
	return nil
}

func removeNumeric(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	delta, ok := book.Numeric.get(p.Field, key)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrMissingEntry, key, p.Field)
	}
	current, err := readNumber(rec, p.Field)
	if err != nil {
		return err
	}
	next := current - delta
	if !finite(next) {
		return fmt.Errorf("%w: %s overflows", ErrInvalidNumber, p.Field)
	}
	rec.Set(p.Field, formatNumber(next))
	book.Numeric.drop(p.Field, key)
	if book.Numeric.Keys(p.Field) == 0 {
		book.releaseCreated(rec, p.Field)
	}
	return nil
}

// readNumber parses a numeric field. Missing and blank fields read as 0.
func readNumber(rec sheet.Record, field string) (float64, error) {
	raw, _ := rec.Get(field)
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	v, err := parseNumber(raw)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", field, err)
	}
	return v, nil
}

func parseNumber(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !finite(v) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return v, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
