package patch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// SiteKind identifies the encode/decode rule of a patch site.
type SiteKind int

const (
	// SiteFloat is a plain little-endian float32 constant.
	SiteFloat SiteKind = iota
	// SiteLoadImmediate is a load-from-memory instruction that patching
	// turns into a load-immediate of a float32.
	SiteLoadImmediate
	// SiteBranchToggle is a conditional branch sequence with a forced
	// alternative of the same length.
	SiteBranchToggle
)

var siteKindNames = map[SiteKind]string{
	SiteFloat:         "float",
	SiteLoadImmediate: "load_immediate",
	SiteBranchToggle:  "branch_toggle",
}

func (k SiteKind) String() string {
	if name, ok := siteKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("site_kind(%d)", int(k))
}

// Site widths in bytes.
const (
	FloatWidth         = 4
	LoadImmediateWidth = 6
)

// SiteState is what the bytes at a site currently look like.
type SiteState int

const (
	StateOriginal SiteState = iota
	StatePatched
	// StateUnknown is reported for branch toggles holding neither the
	// original nor the forced sequence.
	StateUnknown
)

func (s SiteState) String() string {
	switch s {
	case StateOriginal:
		return "original"
	case StatePatched:
		return "patched"
	default:
		return "unknown"
	}
}

// Site is one fixed-offset, fixed-width byte region of a variant.
//
// The set of implementations is closed: *FloatSite, *LoadImmediateSite and
// *BranchToggleSite.
type Site interface {
	Role() Role
	Kind() SiteKind
	ValueKind() ValueKind
	Offset() int
	Width() int
	// Original returns the bytes found at the site in an unpatched file.
	Original() []byte
	Decode(image []byte) (Value, error)
	Encode(image []byte, v Value) error
	State(image []byte) (SiteState, error)

	sealed()
}

// region returns the site's bytes within image, or ErrTooSmall.
func region(image []byte, s Site) ([]byte, error) {
	end := s.Offset() + s.Width()
	if s.Offset() < 0 || end > len(image) {
		return nil, fmt.Errorf("%w: %s site at 0x%X needs %d bytes, image has %d",
			ErrTooSmall, s.Role(), s.Offset(), end, len(image))
	}
	return image[s.Offset():end], nil
}

func checkKind(s Site, v Value) error {
	if v.Kind != s.ValueKind() {
		return fmt.Errorf("%w: %s expects a %s, got a %s", ErrInvalidValue, s.Role(), s.ValueKind(), v.Kind)
	}
	return nil
}

func putFloat(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

func getFloat(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// FloatSite holds a little-endian float32 constant.
type FloatSite struct {
	role     Role
	offset   int
	original [FloatWidth]byte
}

// NewFloatSite creates a direct numeric site.
func NewFloatSite(role Role, offset int, original [FloatWidth]byte) *FloatSite {
	return &FloatSite{role: role, offset: offset, original: original}
}

func (s *FloatSite) Role() Role           { return s.role }
func (s *FloatSite) Kind() SiteKind       { return SiteFloat }
func (s *FloatSite) ValueKind() ValueKind { return KindFloat }
func (s *FloatSite) Offset() int          { return s.offset }
func (s *FloatSite) Width() int           { return FloatWidth }
func (s *FloatSite) Original() []byte     { return s.original[:] }
func (s *FloatSite) sealed()              {}

// Decode reads the float unconditionally.
func (s *FloatSite) Decode(image []byte) (Value, error) {
	b, err := region(image, s)
	if err != nil {
		return Value{}, err
	}
	return Float(getFloat(b)), nil
}

// Encode writes the float unconditionally.
func (s *FloatSite) Encode(image []byte, v Value) error {
	if err := checkKind(s, v); err != nil {
		return err
	}
	b, err := region(image, s)
	if err != nil {
		return err
	}
	putFloat(b, v.Float)
	return nil
}

func (s *FloatSite) State(image []byte) (SiteState, error) {
	b, err := region(image, s)
	if err != nil {
		return StateUnknown, err
	}
	if bytes.Equal(b, s.original[:]) {
		return StateOriginal, nil
	}
	return StatePatched, nil
}

// LoadImmediateSite is an instruction that loads a value from a fixed
// memory address in the unpatched file. Patching rewrites it into a
// load-immediate: a two byte opcode followed by the float32 operand.
type LoadImmediateSite struct {
	role     Role
	offset   int
	original [LoadImmediateWidth]byte
	opcode   [2]byte
	def      float32
}

// NewLoadImmediateSite creates an instruction-replaced numeric site. def
// is reported while the site still holds its original instruction.
func NewLoadImmediateSite(role Role, offset int, original [LoadImmediateWidth]byte, opcode [2]byte, def float32) *LoadImmediateSite {
	return &LoadImmediateSite{role: role, offset: offset, original: original, opcode: opcode, def: def}
}

func (s *LoadImmediateSite) Role() Role           { return s.role }
func (s *LoadImmediateSite) Kind() SiteKind       { return SiteLoadImmediate }
func (s *LoadImmediateSite) ValueKind() ValueKind { return KindFloat }
func (s *LoadImmediateSite) Offset() int          { return s.offset }
func (s *LoadImmediateSite) Width() int           { return LoadImmediateWidth }
func (s *LoadImmediateSite) Original() []byte     { return s.original[:] }
func (s *LoadImmediateSite) Opcode() [2]byte      { return s.opcode }
func (s *LoadImmediateSite) Default() float32     { return s.def }
func (s *LoadImmediateSite) sealed()              {}

// Decode returns the default while the original instruction is in place,
// since the run-time value then lives elsewhere in the process. Otherwise
// the immediate operand is the value.
func (s *LoadImmediateSite) Decode(image []byte) (Value, error) {
	b, err := region(image, s)
	if err != nil {
		return Value{}, err
	}
	if bytes.Equal(b, s.original[:]) {
		return Float(s.def), nil
	}
	return Float(getFloat(b[2:])), nil
}

// Encode always rewrites all six bytes; once patched the site never
// decodes to the default again unless reverted.
func (s *LoadImmediateSite) Encode(image []byte, v Value) error {
	if err := checkKind(s, v); err != nil {
		return err
	}
	b, err := region(image, s)
	if err != nil {
		return err
	}
	b[0], b[1] = s.opcode[0], s.opcode[1]
	putFloat(b[2:], v.Float)
	return nil
}

func (s *LoadImmediateSite) State(image []byte) (SiteState, error) {
	b, err := region(image, s)
	if err != nil {
		return StateUnknown, err
	}
	if bytes.Equal(b, s.original[:]) {
		return StateOriginal, nil
	}
	return StatePatched, nil
}

// BranchToggleSite switches a conditional branch sequence between its
// original form and a forced form padded with NOPs to the same length.
type BranchToggleSite struct {
	role     Role
	offset   int
	original []byte
	forced   []byte
}

// NewBranchToggleSite creates a branch toggle. original and forced must
// have the same non-zero length.
func NewBranchToggleSite(role Role, offset int, original, forced []byte) (*BranchToggleSite, error) {
	if len(original) == 0 || len(original) != len(forced) {
		return nil, fmt.Errorf("%w: %s toggle has %d original and %d forced bytes",
			ErrInvalidCatalog, role, len(original), len(forced))
	}
	return &BranchToggleSite{
		role:     role,
		offset:   offset,
		original: bytes.Clone(original),
		forced:   bytes.Clone(forced),
	}, nil
}

func (s *BranchToggleSite) Role() Role           { return s.role }
func (s *BranchToggleSite) Kind() SiteKind       { return SiteBranchToggle }
func (s *BranchToggleSite) ValueKind() ValueKind { return KindBool }
func (s *BranchToggleSite) Offset() int          { return s.offset }
func (s *BranchToggleSite) Width() int           { return len(s.original) }
func (s *BranchToggleSite) Original() []byte     { return s.original }
func (s *BranchToggleSite) Forced() []byte       { return s.forced }
func (s *BranchToggleSite) sealed()              {}

// Decode reports false only for the exact original sequence. Anything
// else counts as forced; State tells forced and foreign bytes apart.
func (s *BranchToggleSite) Decode(image []byte) (Value, error) {
	b, err := region(image, s)
	if err != nil {
		return Value{}, err
	}
	return Bool(!bytes.Equal(b, s.original)), nil
}

// Encode overwrites the whole region with the sequence for v.
func (s *BranchToggleSite) Encode(image []byte, v Value) error {
	if err := checkKind(s, v); err != nil {
		return err
	}
	b, err := region(image, s)
	if err != nil {
		return err
	}
	if v.Bool {
		copy(b, s.forced)
	} else {
		copy(b, s.original)
	}
	return nil
}

func (s *BranchToggleSite) State(image []byte) (SiteState, error) {
	b, err := region(image, s)
	if err != nil {
		return StateUnknown, err
	}
	switch {
	case bytes.Equal(b, s.original):
		return StateOriginal, nil
	case bytes.Equal(b, s.forced):
		return StatePatched, nil
	default:
		return StateUnknown, nil
	}
}
