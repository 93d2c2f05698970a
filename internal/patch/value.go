package patch

import (
	"fmt"
	"strconv"
	"strings"
)

// Role names the semantic value a patch site carries.
type Role string

// Roles known to the catalog. Earlier variant generations expose a subset.
const (
	RoleNormalModeGravityModifier Role = "normal_mode_gravity_modifier"
	RoleGlobalGravity             Role = "global_gravity"
	RoleForceHCPhysics            Role = "force_hc_physics"
)

// ValueKind tells which field of a Value is meaningful.
type ValueKind int

const (
	KindFloat ValueKind = iota
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a decoded site value.
type Value struct {
	Kind  ValueKind
	Float float32
	Bool  bool
}

// Values maps roles to values, as read from or written to an image.
type Values map[Role]Value

// Float returns a float value.
func Float(f float32) Value {
	return Value{Kind: KindFloat, Float: f}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

func (v Value) String() string {
	if v.Kind == KindBool {
		return strconv.FormatBool(v.Bool)
	}
	return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
}

// ParseFloat parses a user-supplied 32-bit float such as "-9.81".
func ParseFloat(s string) (Value, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q is not a float value", ErrInvalidValue, s)
	}
	return Float(float32(f)), nil
}

// ParseBool parses a user-supplied boolean.
func ParseBool(s string) (Value, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q is not a boolean value", ErrInvalidValue, s)
	}
	return Bool(b), nil
}
