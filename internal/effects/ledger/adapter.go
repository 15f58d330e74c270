package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/sheet"
	"go.uber.org/zap"
)

// Name is the adapter name stored on instances the ledger applies.
const Name = "ledger"

// SheetTypeAttribute is compared against the configured sheet type during detection.
const SheetTypeAttribute = "sheet_type"

var (
	ErrEmptyPatch    = errors.New("patch has neither value nor label")
	ErrUnknownTarget = errors.New("target record not found")
	ErrMissingField  = errors.New("patch field is required")
	ErrMissingEntry  = errors.New("no ledger entry for key")
	ErrInvalidNumber = errors.New("value is not a number")
	ErrRowNotFound   = errors.New("no row matches label")
	ErrInvalidToggle = errors.New("toggle value must be on, off or toggle")
	ErrUnsupportedOp = errors.New("patch kind not supported by ledger adapter")
	ErrInvalidHook   = errors.New("hook identifier may not contain a pipe")
)

// Records resolves target ids to records. *sheet.Roster satisfies it.
type Records interface {
	Record(id string) (sheet.Record, bool)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithSheetType restricts detection to records whose sheet_type attribute matches.
func WithSheetType(sheetType string) Option {
	return func(a *Adapter) { a.sheetType = strings.TrimSpace(sheetType) }
}

// WithRowFields overrides the row sub-field names used for labels and active flags.
func WithRowFields(label, active string) Option {
	return func(a *Adapter) {
		if label != "" {
			a.labelField = label
		}
		if active != "" {
			a.activeField = active
		}
	}
}

// WithRowIDGenerator replaces the repeating-row id generator.
func WithRowIDGenerator(gen func() string) Option {
	return func(a *Adapter) {
		if gen != nil {
			a.newRowID = gen
		}
	}
}

// Adapter applies patches to sheet records and keeps a ledger of every contribution
// so each can be removed independently.
type Adapter struct {
	records     Records
	logger      *zap.Logger
	sheetType   string
	labelField  string
	activeField string
	newRowID    func() string
}

// New builds a ledger adapter over records.
func New(records Records, opts ...Option) *Adapter {
	a := &Adapter{
		records:     records,
		logger:      zap.NewNop(),
		labelField:  "name",
		activeField: "active",
		newRowID:    defaultRowID,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func defaultRowID() string {
	return "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:19]
}

func (a *Adapter) Name() string {
	return Name
}

// Detect accepts any known record, optionally filtered by sheet type.
func (a *Adapter) Detect(targetID string) bool {
	rec, ok := a.records.Record(targetID)
	if !ok {
		return false
	}
	if a.sheetType == "" {
		return true
	}
	got, _ := rec.Get(SheetTypeAttribute)
	return strings.EqualFold(strings.TrimSpace(got), a.sheetType)
}

func (a *Adapter) Apply(targetID string, patch effects.Patch, effect effects.EffectRef) error {
	return a.mutate(targetID, patch, effect, "apply")
}

func (a *Adapter) Remove(targetID string, patch effects.Patch, effect effects.EffectRef) error {
	return a.mutate(targetID, patch, effect, "remove")
}

func (a *Adapter) mutate(targetID string, patch effects.Patch, effect effects.EffectRef, op string) error {
	if patch.Empty() && len(patch.Row) == 0 {
		return ErrEmptyPatch
	}
	field := strings.TrimSpace(patch.Field)
	if field == "" {
		return ErrMissingField
	}
	patch.Field = field
	key := patch.LedgerKey
	if key == "" {
		key = effects.DefaultLedgerKey(effect.ID, patch.Label)
	}

	rec, ok := a.records.Record(targetID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	}
	book, err := Read(rec)
	if err != nil {
		return err
	}

	saved := snapshotAttributes(rec)
	apply := op == "apply"
	switch patch.Kind {
	case effects.PatchAddNumeric:
		if apply {
			err = applyNumeric(rec, book, patch, key)
		} else {
			err = removeNumeric(rec, book, patch, key)
		}
	case effects.PatchAppendSegment:
		if apply {
			err = applySegment(rec, book, patch, key)
		} else {
			err = removeSegment(rec, book, patch, key)
		}
	case effects.PatchCreateRow:
		if apply {
			err = a.applyRow(rec, book, patch, key)
		} else {
			err = removeRow(rec, book, patch, key)
		}
	case effects.PatchToggleRow:
		if apply {
			err = a.applyToggle(rec, book, patch, key)
		} else {
			err = a.removeToggle(rec, book, patch, key)
		}
	case effects.PatchDefineResource:
		if apply {
			err = applyResource(rec, book, patch, key)
		} else {
			err = removeResource(rec, book, patch, key)
		}
	case effects.PatchRegisterHook:
		if apply {
			err = applyHook(rec, book, patch, key)
		} else {
			err = removeHook(rec, book, patch, key)
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedOp, patch.Kind)
	}
	if err == nil {
		err = Write(rec, book)
	}
	if err != nil {
		restoreAttributes(rec, saved)
		return err
	}
	a.logger.Debug("ledger "+op,
		zap.String("target_id", targetID),
		zap.String("effect_id", effect.ID),
		zap.String("kind", patch.Kind.String()),
		zap.String("field", patch.Field),
		zap.String("ledger_key", key))
	return nil
}

func snapshotAttributes(rec sheet.Record) map[string]string {
	names := rec.Names("")
	saved := make(map[string]string, len(names))
	for _, name := range names {
		saved[name], _ = rec.Get(name)
	}
	return saved
}

// restoreAttributes rolls rec back to saved after a failed patch.
func restoreAttributes(rec sheet.Record, saved map[string]string) {
	for _, name := range rec.Names("") {
		if _, ok := saved[name]; !ok {
			rec.Delete(name)
		}
	}
	for name, value := range saved {
		if current, ok := rec.Get(name); !ok || current != value {
			rec.Set(name, value)
		}
	}
}
