package connection

import (
	"encoding/json"
	"fmt"
)

// ValueState tags the three states a wallet-reported field can be in.
type ValueState int

// Value states. Unresolved means a refresh is pending.
const (
	StateUnresolved ValueState = iota
	StateAbsent
	StatePresent
)

func (s ValueState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePresent:
		return "present"
	case StateUnresolved:
		return "unresolved"
	default:
		return "unresolved"
	}
}

// Value is an account or chain reading that distinguishes "refresh pending"
// from "no value".
type Value[T any] struct {
	state ValueState
	v     T
}

// Unresolved returns a value whose refresh has not completed.
func Unresolved[T any]() Value[T] {
	return Value[T]{state: StateUnresolved}
}

// Absent returns a confirmed empty value.
func Absent[T any]() Value[T] {
	return Value[T]{state: StateAbsent}
}

// Present wraps a confirmed value.
func Present[T any](v T) Value[T] {
	return Value[T]{state: StatePresent, v: v}
}

// Get returns the value and whether it is present.
func (v Value[T]) Get() (T, bool) {
	return v.v, v.state == StatePresent
}

// State returns the tag.
func (v Value[T]) State() ValueState {
	return v.state
}

// IsResolved reports whether the value is Absent or Present.
func (v Value[T]) IsResolved() bool {
	return v.state != StateUnresolved
}

// OrElse returns the value when present and fallback otherwise.
func (v Value[T]) OrElse(fallback T) T {
	if v.state == StatePresent {
		return v.v
	}
	return fallback
}

func (v Value[T]) String() string {
	if v.state == StatePresent {
		return fmt.Sprint(v.v)
	}
	return "<" + v.state.String() + ">"
}

type valueJSON[T any] struct {
	State string `json:"state"`
	Value *T     `json:"value,omitempty"`
}

// MarshalJSON encodes as {"state":"present","value":...}.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	out := valueJSON[T]{State: v.state.String()}
	if v.state == StatePresent {
		out.Value = &v.v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	var in valueJSON[T]
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.State {
	case "present":
		if in.Value == nil {
			return fmt.Errorf("present value missing payload")
		}
		*v = Present(*in.Value)
	case "absent":
		*v = Absent[T]()
	case "unresolved", "":
		*v = Unresolved[T]()
	default:
		return fmt.Errorf("unknown value state %q", in.State)
	}
	return nil
}
