package patch

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestFloatSiteRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value float32
	}{
		{name: "Default gravity", value: -9.81},
		{name: "Zero", value: 0},
		{name: "Negative zero", value: float32(math.Copysign(0, -1))},
		{name: "Positive gravity", value: 9.81},
		{name: "Smallest denormal", value: math.SmallestNonzeroFloat32},
		{name: "Max float", value: math.MaxFloat32},
		{name: "Infinity", value: float32(math.Inf(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := NewFloatSite(RoleGlobalGravity, 4, [FloatWidth]byte{0xC3, 0xF5, 0x1C, 0xC1})
			image := make([]byte, 16)

			if err := site.Encode(image, Float(tt.value)); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := site.Decode(image)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if math.Float32bits(got.Float) != math.Float32bits(tt.value) {
				t.Errorf("Decode() = %v, want %v", got.Float, tt.value)
			}
		})
	}
}

func TestFloatSiteDecodesOriginal(t *testing.T) {
	site := NewFloatSite(RoleGlobalGravity, 0, [FloatWidth]byte{0xC3, 0xF5, 0x1C, 0xC1})
	image := []byte{0xC3, 0xF5, 0x1C, 0xC1}

	got, err := site.Decode(image)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Float != -9.81 {
		t.Errorf("Decode() = %v, want -9.81", got.Float)
	}

	state, _ := site.State(image)
	if state != StateOriginal {
		t.Errorf("State() = %v, want original", state)
	}
}

func TestLoadImmediateSiteDefault(t *testing.T) {
	original := [LoadImmediateWidth]byte{0x8B, 0x0D, 0x1C, 0xA2, 0xF8, 0x00}

	tests := []struct {
		name string
		def  float32
	}{
		{name: "One", def: 1.0},
		{name: "Custom default", def: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := NewLoadImmediateSite(RoleNormalModeGravityModifier, 2, original, [2]byte{0xC7, 0xC1}, tt.def)
			image := make([]byte, 10)
			copy(image[2:], original[:])

			got, err := site.Decode(image)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Float != tt.def {
				t.Errorf("Decode() = %v, want %v", got.Float, tt.def)
			}
		})
	}
}

func TestLoadImmediateSiteEncode(t *testing.T) {
	site := NewLoadImmediateSite(RoleNormalModeGravityModifier, 0,
		[LoadImmediateWidth]byte{0x8B, 0x0D, 0x1C, 0xA2, 0xF8, 0x00}, [2]byte{0xC7, 0xC1}, 1.0)
	image := []byte{0x8B, 0x0D, 0x1C, 0xA2, 0xF8, 0x00}

	if err := site.Encode(image, Float(0.2)); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	want := []byte{0xC7, 0xC1, 0xCD, 0xCC, 0x4C, 0x3E}
	if !bytes.Equal(image, want) {
		t.Errorf("image = % X, want % X", image, want)
	}

	got, _ := site.Decode(image)
	if got.Float != 0.2 {
		t.Errorf("Decode() = %v, want 0.2", got.Float)
	}

	// 1.0 written explicitly stays patched: the site no longer loads from memory.
	if err := site.Encode(image, Float(1.0)); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if state, _ := site.State(image); state != StatePatched {
		t.Errorf("State() = %v, want patched", state)
	}
}

func TestBranchToggleSite(t *testing.T) {
	site, err := NewBranchToggleSite(RoleForceHCPhysics, 1, testToggleOriginal, testToggleForced)
	if err != nil {
		t.Fatalf("NewBranchToggleSite() error = %v", err)
	}
	image := make([]byte, 1+len(testToggleOriginal))
	copy(image[1:], testToggleOriginal)

	tests := []struct {
		name      string
		write     *bool
		raw       []byte
		wantValue bool
		wantState SiteState
	}{
		{name: "Original", wantValue: false, wantState: StateOriginal},
		{name: "Force on", write: boolPtr(true), wantValue: true, wantState: StatePatched},
		{name: "Force off", write: boolPtr(false), wantValue: false, wantState: StateOriginal},
		{name: "Foreign bytes", raw: bytes.Repeat([]byte{0xCC}, 23), wantValue: true, wantState: StateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.write != nil {
				if err := site.Encode(image, Bool(*tt.write)); err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
			}
			if tt.raw != nil {
				copy(image[1:], tt.raw)
			}

			got, err := site.Decode(image)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Bool != tt.wantValue {
				t.Errorf("Decode() = %v, want %v", got.Bool, tt.wantValue)
			}

			state, err := site.State(image)
			if err != nil {
				t.Fatalf("State() error = %v", err)
			}
			if state != tt.wantState {
				t.Errorf("State() = %v, want %v", state, tt.wantState)
			}
		})
	}
}

func TestBranchToggleSiteLengthMismatch(t *testing.T) {
	_, err := NewBranchToggleSite(RoleForceHCPhysics, 0, testToggleOriginal, testToggleForced[:22])
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("NewBranchToggleSite() error = %v, want ErrInvalidCatalog", err)
	}
}

func TestSiteTooSmall(t *testing.T) {
	for _, site := range testSites(t) {
		t.Run(site.Kind().String(), func(t *testing.T) {
			end := site.Offset() + site.Width()
			value := Float(1)
			if site.ValueKind() == KindBool {
				value = Bool(true)
			}

			short := testImage(nil, end-1)
			if _, err := site.Decode(short); !errors.Is(err, ErrTooSmall) {
				t.Errorf("Decode() error = %v, want ErrTooSmall", err)
			}
			if err := site.Encode(short, value); !errors.Is(err, ErrTooSmall) {
				t.Errorf("Encode() error = %v, want ErrTooSmall", err)
			}
			if _, err := site.State(short); !errors.Is(err, ErrTooSmall) {
				t.Errorf("State() error = %v, want ErrTooSmall", err)
			}

			exact := testImage(nil, end)
			if _, err := site.Decode(exact); err != nil {
				t.Errorf("Decode() on exact size error = %v", err)
			}
			if err := site.Encode(exact, value); err != nil {
				t.Errorf("Encode() on exact size error = %v", err)
			}
		})
	}
}

func TestSiteEncodeWrongKind(t *testing.T) {
	for _, site := range testSites(t) {
		t.Run(site.Kind().String(), func(t *testing.T) {
			image := testImage(testSites(t), testImageSize)
			before := bytes.Clone(image)

			wrong := Bool(true)
			if site.ValueKind() == KindBool {
				wrong = Float(1)
			}
			if err := site.Encode(image, wrong); !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Encode() error = %v, want ErrInvalidValue", err)
			}
			if !bytes.Equal(image, before) {
				t.Error("Encode() with wrong kind modified the image")
			}
		})
	}
}

func boolPtr(b bool) *bool {
	return &b
}
