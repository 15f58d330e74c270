package sheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	maxSuffix     = "_max"
	currentSuffix = "_current"
	cadenceSuffix = "_cadence"
)

var (
	ErrUnknownResource = errors.New("resource is not defined")
	ErrInvalidAmount   = errors.New("amount must be positive")
)

// Resource is a named current/max/cadence triple stored as three attributes.
type Resource struct {
	Name    string `json:"name"`
	Current int    `json:"current"`
	Max     int    `json:"max"`
	Cadence string `json:"cadence,omitempty"`
}

// ResourceFields returns the attribute names backing namespace ns.
func ResourceFields(ns string) (maxField, currentField, cadenceField string) {
	return ns + maxSuffix, ns + currentSuffix, ns + cadenceSuffix
}

// ReadResource loads the resource stored under ns. A resource exists when its max attribute does.
func ReadResource(rec Record, ns string) (Resource, error) {
	maxField, currentField, cadenceField := ResourceFields(ns)
	rawMax, ok := rec.Get(maxField)
	if !ok {
		return Resource{}, fmt.Errorf("%w: %s", ErrUnknownResource, ns)
	}
	maxValue, err := atoi(rawMax)
	if err != nil {
		return Resource{}, fmt.Errorf("resource %s max: %w", ns, err)
	}
	current := maxValue
	if raw, ok := rec.Get(currentField); ok {
		if current, err = atoi(raw); err != nil {
			return Resource{}, fmt.Errorf("resource %s current: %w", ns, err)
		}
	}
	cadence, _ := rec.Get(cadenceField)
	return Resource{Name: ns, Current: current, Max: maxValue, Cadence: cadence}, nil
}

// Resources lists every resource defined on the record, sorted by name.
func Resources(rec Record) []Resource {
	var out []Resource
	for _, name := range rec.Names("") {
		if !strings.HasSuffix(name, maxSuffix) {
			continue
		}
		res, err := ReadResource(rec, strings.TrimSuffix(name, maxSuffix))
		if err != nil {
			continue
		}
		out = append(out, res)
	}
	return out
}

// Spend removes amount from the resource. Will not go below 0.
func Spend(rec Record, ns string, amount int) (Resource, error) {
	if amount <= 0 {
		return Resource{}, ErrInvalidAmount
	}
	res, err := ReadResource(rec, ns)
	if err != nil {
		return Resource{}, err
	}
	if res.Current >= amount {
		res.Current -= amount
	} else {
		res.Current = 0
	}
	writeCurrent(rec, res)
	return res, nil
}

// Gain adds amount to the resource, capped at its max.
func Gain(rec Record, ns string, amount int) (Resource, error) {
	if amount <= 0 {
		return Resource{}, ErrInvalidAmount
	}
	res, err := ReadResource(rec, ns)
	if err != nil {
		return Resource{}, err
	}
	if amount >= res.Max-res.Current {
		res.Current = res.Max
	} else {
		res.Current += amount
	}
	writeCurrent(rec, res)
	return res, nil
}

// Refresh resets every resource with the given cadence to its max and returns the
// refreshed resources. Cadences compare case-insensitively.
func Refresh(rec Record, cadence string) []Resource {
	cadence = strings.TrimSpace(cadence)
	var refreshed []Resource
	for _, res := range Resources(rec) {
		if cadence == "" || !strings.EqualFold(strings.TrimSpace(res.Cadence), cadence) {
			continue
		}
		res.Current = res.Max
		writeCurrent(rec, res)
		refreshed = append(refreshed, res)
	}
	return refreshed
}

func writeCurrent(rec Record, res Resource) {
	_, currentField, _ := ResourceFields(res.Name)
	rec.Set(currentField, strconv.Itoa(res.Current))
}

func atoi(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
