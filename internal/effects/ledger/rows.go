package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/sheet"
)

// RowAttribute names the attribute holding sub-field sub of a repeating row.
func RowAttribute(section, rowID, sub string) string {
	return fmt.Sprintf("repeating_%s_%s_%s", section, rowID, sub)
}

// OrderAttribute names the attribute holding the display order of a repeating section.
func OrderAttribute(section string) string {
	return "_reporder_repeating_" + section
}

func rowPrefix(section, rowID string) string {
	return fmt.Sprintf("repeating_%s_%s_", section, rowID)
}

func (a *Adapter) applyRow(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	if prior, ok := book.Rows.get(p.Field, key); ok {
		for _, rowID := range prior {
			deleteRow(rec, p.Field, rowID)
		}
	}

	rowID := a.newRowID()
	subs := make(map[string]string, len(p.Row)+1)
	for sub, v := range p.Row {
		subs[sub] = v
	}
	if _, ok := subs[a.labelField]; !ok && strings.TrimSpace(p.Label) != "" {
		subs[a.labelField] = p.Label
	}
	names := make([]string, 0, len(subs))
	for sub := range subs {
		names = append(names, sub)
	}
	sort.Strings(names)
	for _, sub := range names {
		rec.Set(RowAttribute(p.Field, rowID, sub), subs[sub])
	}

	order := readOrder(rec, p.Field)
	writeOrder(rec, p.Field, append(order, rowID))
	book.Rows.put(p.Field, key, []string{rowID})
	return nil
}

func removeRow(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	rowIDs, ok := book.Rows.get(p.Field, key)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrMissingEntry, key, p.Field)
	}
	for _, rowID := range rowIDs {
		deleteRow(rec, p.Field, rowID)
	}
	book.Rows.drop(p.Field, key)
	return nil
}

func deleteRow(rec sheet.Record, section, rowID string) {
	for _, name := range rec.Names(rowPrefix(section, rowID)) {
		rec.Delete(name)
	}
	order := readOrder(rec, section)
	kept := order[:0]
	for _, id := range order {
		if id != rowID {
			kept = append(kept, id)
		}
	}
	writeOrder(rec, section, kept)
}

func readOrder(rec sheet.Record, section string) []string {
	raw, _ := rec.Get(OrderAttribute(section))
	var order []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			order = append(order, id)
		}
	}
	return order
}

func writeOrder(rec sheet.Record, section string, order []string) {
	if len(order) == 0 {
		rec.Delete(OrderAttribute(section))
		return
	}
	rec.Set(OrderAttribute(section), strings.Join(order, ","))
}

// findRow returns the first row in section whose label sub-field matches label.
// Rows listed in the section order are searched first.
func (a *Adapter) findRow(rec sheet.Record, section, label string) (string, bool) {
	want := strings.TrimSpace(label)
	matches := func(rowID string) bool {
		got, ok := rec.Get(RowAttribute(section, rowID, a.labelField))
		return ok && strings.EqualFold(strings.TrimSpace(got), want)
	}

	seen := make(map[string]bool)
	for _, rowID := range readOrder(rec, section) {
		seen[rowID] = true
		if matches(rowID) {
			return rowID, true
		}
	}

	prefix := "repeating_" + section + "_"
	suffix := "_" + a.labelField
	for _, name := range rec.Names(prefix) {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		rowID := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
		if rowID == "" || seen[rowID] {
			continue
		}
		if matches(rowID) {
			return rowID, true
		}
	}
	return "", false
}

func (a *Adapter) applyToggle(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	if strings.TrimSpace(p.Label) == "" {
		return fmt.Errorf("%w: toggle needs a row label", ErrEmptyPatch)
	}
	mode, err := toggleMode(p.Value)
	if err != nil {
		return err
	}
	rowID, ok := a.findRow(rec, p.Field, p.Label)
	if !ok {
		return fmt.Errorf("%w: %q in %s", ErrRowNotFound, p.Label, p.Field)
	}

	if prior, ok := book.Toggles.get(p.Field, key); ok {
		a.restoreToggle(rec, p.Field, prior)
	}

	attr := RowAttribute(p.Field, rowID, a.activeField)
	prior, had := rec.Get(attr)
	next := mode
	if next == "" {
		next = "1"
		if isOn(prior) {
			next = "0"
		}
	}
	rec.Set(attr, next)
	book.Toggles.put(p.Field, key, ToggleEntry{Row: rowID, Prior: prior, HadPrior: had})
	return nil
}

func (a *Adapter) removeToggle(rec sheet.Record, book *Book, p effects.Patch, key string) error {
	entry, ok := book.Toggles.get(p.Field, key)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrMissingEntry, key, p.Field)
	}
	a.restoreToggle(rec, p.Field, entry)
	book.Toggles.drop(p.Field, key)
	return nil
}

// restoreToggle puts back the prior active flag unless the row has since been deleted.
func (a *Adapter) restoreToggle(rec sheet.Record, section string, entry ToggleEntry) {
	if len(rec.Names(rowPrefix(section, entry.Row))) == 0 {
		return
	}
	attr := RowAttribute(section, entry.Row, a.activeField)
	if entry.HadPrior {
		rec.Set(attr, entry.Prior)
		return
	}
	rec.Delete(attr)
}

// toggleMode returns "1", "0", or "" for a flip.
func toggleMode(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "toggle", "flip":
		return "", nil
	case "on", "1", "true", "yes":
		return "1", nil
	case "off", "0", "false", "no":
		return "0", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidToggle, value)
	}
}

func isOn(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "on", "true", "yes":
		return true
	default:
		return false
	}
}
