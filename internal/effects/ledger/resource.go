package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/sheet"
)

func applyResource(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	maxValue, err := parseCount(p.Value)
	if err != nil {
		return fmt.Errorf("%s max: %w", p.Field, err)
	}
	current := maxValue
	if strings.TrimSpace(p.Current) != "" {
		if current, err = parseCount(p.Current); err != nil {
			return fmt.Errorf("%s current: %w", p.Field, err)
		}
		if current > maxValue {
			current = maxValue
		}
	}

	maxField, currentField, cadenceField := sheet.ResourceFields(p.Field)
	if _, ok := book.Resources.get(p.Field, key); !ok {
		prior := ResourceEntry{}
		if v, ok := rec.Get(maxField); ok {
			prior.Existed = true
			prior.Max = v
			prior.Current, _ = rec.Get(currentField)
			prior.Cadence, _ = rec.Get(cadenceField)
		}
		book.Resources.put(p.Field, key, prior)
	}

	rec.Set(maxField, strconv.Itoa(maxValue))
	rec.Set(currentField, strconv.Itoa(current))
	if cadence := strings.TrimSpace(p.Cadence); cadence != "" {
		rec.Set(cadenceField, cadence)
	} else {
		rec.Delete(cadenceField)
	}
	return nil
}

func removeResource(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	prior, ok := book.Resources.get(p.Field, key)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrMissingEntry, key, p.Field)
	}
	maxField, currentField, cadenceField := sheet.ResourceFields(p.Field)
	rec.Delete(maxField)
	rec.Delete(currentField)
	rec.Delete(cadenceField)
	if prior.Existed {
		rec.Set(maxField, prior.Max)
		if prior.Current != "" {
			rec.Set(currentField, prior.Current)
		}
		if prior.Cadence != "" {
			rec.Set(cadenceField, prior.Cadence)
		}
	}
	book.Resources.drop(p.Field, key)
	return nil
}

func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return n, nil
}
