package patch

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

// cmp byte ptr [0xf82010],0; je +0xa; fld [0xf83000]; jmp +6; fld [0xf83004]
var testToggleOriginal = []byte{
	0x80, 0x3D, 0x10, 0x20, 0xF8, 0x00, 0x00,
	0x74, 0x0A,
	0xD9, 0x05, 0x00, 0x30, 0xF8, 0x00,
	0xEB, 0x06,
	0xD9, 0x05, 0x04, 0x30, 0xF8, 0x00,
}

// fld [0xf83004] followed by nops
var testToggleForced = append([]byte{0xD9, 0x05, 0x04, 0x30, 0xF8, 0x00}, bytes.Repeat([]byte{0x90}, 17)...)

const (
	testModifierOffset = 0x10
	testGravityOffset  = 0x40
	testToggleOffset   = 0x60
	testImageSize      = 0x100
)

func testSites(t *testing.T) []Site {
	t.Helper()
	toggle, err := NewBranchToggleSite(RoleForceHCPhysics, testToggleOffset, testToggleOriginal, testToggleForced)
	if err != nil {
		t.Fatalf("NewBranchToggleSite() error = %v", err)
	}
	return []Site{
		NewLoadImmediateSite(RoleNormalModeGravityModifier, testModifierOffset,
			[LoadImmediateWidth]byte{0x8B, 0x0D, 0x1C, 0xA2, 0xF8, 0x00}, [2]byte{0xC7, 0xC1}, 1.0),
		NewFloatSite(RoleGlobalGravity, testGravityOffset, [FloatWidth]byte{0xC3, 0xF5, 0x1C, 0xC1}),
		toggle,
	}
}

// testImage returns filler bytes with every site holding its original
// bytes.
func testImage(sites []Site, size int) []byte {
	image := make([]byte, size)
	for i := range image {
		image[i] = byte(i*31 + 7)
	}
	for _, s := range sites {
		copy(image[s.Offset():], s.Original())
	}
	return image
}

// testVariant returns a variant whose fingerprint matches pristine.
func testVariant(t *testing.T, name string, sites []Site, pristine []byte) *Variant {
	t.Helper()
	return &Variant{
		Name:        name,
		Fingerprint: FormatDigest(sha256.Sum256(pristine)),
		Sites:       sites,
	}
}

func testCatalog(t *testing.T, variants ...*Variant) *Catalog {
	t.Helper()
	c, err := NewCatalog(variants...)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c
}
