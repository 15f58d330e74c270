package ledger

import (
	"fmt"
	"strings"

	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/sheet"
)

const hookSeparator = "|"

func hookToken(p effects.Patch) string {
	if v := strings.TrimSpace(p.Value); v != "" {
		return v
	}
	return strings.TrimSpace(p.Label)
}

func applyHook(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	token := hookToken(p)
	if strings.Contains(token, hookSeparator) {
		return fmt.Errorf("%w: %q", ErrInvalidHook, token)
	}
	hooks := readHooks(rec, p.Field)
	if prior, ok := book.Hooks.get(p.Field, key); ok {
		hooks = dropHook(hooks, prior)
	}
	writeHooks(rec, p.Field, append(hooks, token))
	book.Hooks.put(p.Field, key, token)
	return nil
}

func removeHook(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	token, ok := book.Hooks.get(p.Field, key)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrMissingEntry, key, p.Field)
	}
	writeHooks(rec, p.Field, dropHook(readHooks(rec, p.Field), token))
	book.Hooks.drop(p.Field, key)
	return nil
}

// Hooks returns the identifiers registered in a pipe-delimited hook list.
func Hooks(rec sheet.Record, field string) []string {
	return readHooks(rec, field)
}

func readHooks(rec sheet.Record, field string) []string {
	raw, _ := rec.Get(field)
	var hooks []string
	for _, h := range strings.Split(raw, hookSeparator) {
		if h = strings.TrimSpace(h); h != "" {
			hooks = append(hooks, h)
		}
	}
	return hooks
}

func writeHooks(rec sheet.Record, field string, hooks []string) {
	if len(hooks) == 0 {
		rec.Delete(field)
		return
	}
	rec.Set(field, strings.Join(hooks, hookSeparator))
}

// dropHook removes the first occurrence of token.
func dropHook(hooks []string, token string) []string {
	for i, h := range hooks {
		if h == token {
			return append(hooks[:i:i], hooks[i+1:]...)
		}
	}
	return hooks
}
