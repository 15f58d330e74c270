package effects

import "time"

// PatchResult records the outcome of one patch inside an apply or remove call.
type PatchResult struct {
	Index int       `json:"index"`
	Kind  PatchKind `json:"kind"`
	Field string    `json:"field,omitempty"`
	OK    bool      `json:"ok"`
	Error string    `json:"error,omitempty"`
}

// Instance is the runtime record of one successful Apply, used to drive Remove.
type Instance struct {
	ID         string        `json:"id"`
	EffectID   string        `json:"effectId"`
	EffectName string        `json:"effectName"`
	TargetID   string        `json:"targetId"`
	Adapter    string        `json:"adapter"`
	Patches    []Patch       `json:"patches"`
	Results    []PatchResult `json:"results"`
	CreatedAt  time.Time     `json:"createdAt"`
	Source     string        `json:"source,omitempty"`
}

// Clone returns a deep copy of the instance.
func (i Instance) Clone() Instance {
	out := i
	out.Patches = clonePatches(i.Patches)
	if i.Results != nil {
		out.Results = append([]PatchResult(nil), i.Results...)
	}
	return out
}

// Applied reports whether the patch at index applied successfully.
func (i Instance) Applied(index int) bool {
	if index < 0 || index >= len(i.Results) {
		return false
	}
	return i.Results[index].OK
}

// Ref returns the effect reference handed to adapters for this instance.
func (i Instance) Ref() EffectRef {
	return EffectRef{ID: i.EffectID, Name: i.EffectName, Source: i.Source}
}

// State is the JSON-serialisable engine document.
type State struct {
	Instances map[string]Instance `json:"instances"`
	Order     []string            `json:"order"`
	Index     map[string][]string `json:"index"`
}

// NewState returns an empty document.
func NewState() State {
	return State{
		Instances: make(map[string]Instance),
		Order:     make([]string, 0),
		Index:     make(map[string][]string),
	}
}

// Clone returns a deep copy of the document.
func (s State) Clone() State {
	out := NewState()
	for id, inst := range s.Instances {
		out.Instances[id] = inst.Clone()
	}
	out.Order = append(out.Order, s.Order...)
	for target, ids := range s.Index {
		out.Index[target] = append([]string(nil), ids...)
	}
	return out
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
