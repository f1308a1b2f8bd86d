package docstore

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// compareRaw compares two JSON values. Numbers compare numerically,
// RFC 3339 strings compare as instants and other strings compare
// lexically. ok is false when the values are not comparable.
func compareRaw(a, b json.RawMessage) (c int, ok bool) {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return 0, false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return 0, false
	}
	return compareValues(av, bv)
}

func compareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		return cmp.Compare(av, bv), true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		at, aerr := time.Parse(time.RFC3339Nano, av)
		bt, berr := time.Parse(time.RFC3339Nano, bv)
		if aerr == nil && berr == nil {
			return at.Compare(bt), true
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case nil:
		if b == nil {
			return 0, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func (op Op) valid() bool {
	switch op {
	case Eq, Neq, Lt, Lte, Gt, Gte:
		return true
	}
	return false
}

func matches(raw json.RawMessage, present bool, op Op, want json.RawMessage) bool {
	if !present {
		return op == Neq
	}
	c, ok := compareRaw(raw, want)
	if !ok {
		return op == Neq
	}
	switch op {
	case Eq:
		return c == 0
	case Neq:
		return c != 0
	case Lt:
		return c < 0
	case Lte:
		return c <= 0
	case Gt:
		return c > 0
	case Gte:
		return c >= 0
	}
	return false
}

func encodeValue(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode value: %v", ErrInvalidInput, err)
	}
	return data, nil
}
