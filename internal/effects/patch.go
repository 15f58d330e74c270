package effects

import "strings"

// PatchKind identifies the mutation a Patch describes.
type PatchKind string

const (
	// PatchAddNumeric accumulates a signed delta into a numeric field.
	PatchAddNumeric PatchKind = "add-numeric"
	// PatchAppendSegment appends a labelled "<value> [<label>]" segment to a text field.
	PatchAppendSegment PatchKind = "append-segment"
	// PatchCreateRow adds a repeating sub-record under a section.
	PatchCreateRow PatchKind = "create-row"
	// PatchToggleRow flips the active flag of an existing row matched by label.
	PatchToggleRow PatchKind = "toggle-row"
	// PatchDefineResource creates a named current/max/cadence triple.
	PatchDefineResource PatchKind = "define-resource"
	// PatchRegisterHook appends an identifier to a pipe-delimited trigger list.
	PatchRegisterHook PatchKind = "register-hook"
	// PatchGroup holds nested patches that are flattened in order before application.
	PatchGroup PatchKind = "group"
)

// Valid reports whether the kind is one the engine knows about.
func (k PatchKind) Valid() bool {
	switch k {
	case PatchAddNumeric, PatchAppendSegment, PatchCreateRow, PatchToggleRow,
		PatchDefineResource, PatchRegisterHook, PatchGroup:
		return true
	default:
		return false
	}
}

func (k PatchKind) String() string {
	return string(k)
}

// Patch is one unit of mutation intent. Field names the target field, row section,
// resource namespace or hook list depending on Kind.
type Patch struct {
	Kind      PatchKind         `json:"kind" yaml:"kind"`
	Field     string            `json:"field,omitempty" yaml:"field,omitempty"`
	Value     string            `json:"value,omitempty" yaml:"value,omitempty"`
	Label     string            `json:"label,omitempty" yaml:"label,omitempty"`
	LedgerKey string            `json:"ledgerKey,omitempty" yaml:"ledger_key,omitempty"`
	Flag      string            `json:"flag,omitempty" yaml:"flag,omitempty"`
	Row       map[string]string `json:"row,omitempty" yaml:"row,omitempty"`
	Current   string            `json:"current,omitempty" yaml:"current,omitempty"`
	Cadence   string            `json:"cadence,omitempty" yaml:"cadence,omitempty"`
	Patches   []Patch           `json:"patches,omitempty" yaml:"patches,omitempty"`
}

// Clone returns a deep copy of the patch.
func (p Patch) Clone() Patch {
	out := p
	if p.Row != nil {
		out.Row = make(map[string]string, len(p.Row))
		for k, v := range p.Row {
			out.Row[k] = v
		}
	}
	if p.Patches != nil {
		out.Patches = clonePatches(p.Patches)
	}
	return out
}

// Empty reports whether the patch carries neither a value nor a label.
func (p Patch) Empty() bool {
	return strings.TrimSpace(p.Value) == "" && strings.TrimSpace(p.Label) == ""
}

// DefaultLedgerKey derives the ledger key used when a patch does not name one.
func DefaultLedgerKey(effectID, label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return effectID
	}
	return effectID + "|" + label
}

// WithLedgerKey returns a copy of the patch with its ledger key resolved against effectID.
func (p Patch) WithLedgerKey(effectID string) Patch {
	out := p.Clone()
	if strings.TrimSpace(out.LedgerKey) == "" {
		out.LedgerKey = DefaultLedgerKey(effectID, out.Label)
	}
	return out
}

func clonePatches(patches []Patch) []Patch {
	if patches == nil {
		return nil
	}
	out := make([]Patch, len(patches))
	for i, p := range patches {
		out[i] = p.Clone()
	}
	return out
}

// Flatten expands group patches depth-first and returns the leaf patches in order.
func Flatten(patches []Patch) []Patch {
	out := make([]Patch, 0, len(patches))
	for _, p := range patches {
		if p.Kind == PatchGroup {
			out = append(out, Flatten(p.Patches)...)
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}
