package models

import (
	"encoding/json"
	"fmt"
)

// RateState tells who owns the value of a rate field.
type RateState string

const (
	// RateEmpty means nobody has filled the field yet; resolution may fill it.
	RateEmpty RateState = ""
	// RateAuto means the value came from benchmarks and may be overwritten.
	RateAuto RateState = "auto"
	// RateLocked means the user typed the value; resolution never touches it.
	RateLocked RateState = "locked"
)

// Rate is a user-editable rate input (CPI, CTR, CR install).
//
// In JSON a bare number is a locked rate. In the object form a non-zero value
// without a state is also locked, since only benchmark-filled rates carry
// "auto"; {"value": 0} with no state is empty.
type Rate struct {
	Value float64   `json:"value"`
	State RateState `json:"state,omitempty"`
}

// Auto returns a benchmark-derived rate.
func Auto(v float64) Rate { return Rate{Value: v, State: RateAuto} }

// Locked returns a user-entered rate.
func Locked(v float64) Rate { return Rate{Value: v, State: RateLocked} }

// Resolvable reports whether benchmark resolution may overwrite the rate.
func (r Rate) Resolvable() bool {
	return r.State != RateLocked
}

// IsEmpty reports whether neither benchmarks nor the user filled the rate.
func (r Rate) IsEmpty() bool {
	return r.State == RateEmpty
}

// IsLocked reports whether the user owns the value.
func (r Rate) IsLocked() bool {
	return r.State == RateLocked
}

// IsAuto reports whether the value is benchmark-derived.
func (r Rate) IsAuto() bool {
	return r.State == RateAuto
}

// UnmarshalJSON accepts a bare number or the object form; see Rate for how a missing state is read.
func (r *Rate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Rate{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*r = Locked(v)
		return nil
	}
	type plain Rate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid rate: %w", err)
	}
	switch p.State {
	case RateEmpty, RateAuto, RateLocked:
	default:
		return fmt.Errorf("invalid rate state %q", p.State)
	}
	if p.State == RateEmpty && p.Value != 0 {
		p.State = RateLocked
	}
	*r = Rate(p)
	return nil
}
