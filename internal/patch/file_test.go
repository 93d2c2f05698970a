package patch

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTestExe(t *testing.T, image []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "TestDriveUnlimited.exe")
	if err := os.WriteFile(path, image, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPatcherApply(t *testing.T) {
	sites := testSites(t)
	pristine := testImage(sites, testImageSize)
	catalog := testCatalog(t, testVariant(t, "test", sites, pristine))
	path := writeTestExe(t, pristine)

	p, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if p.Variant().Name != "test" {
		t.Errorf("Variant() = %s, want test", p.Variant().Name)
	}

	values := Values{
		RoleNormalModeGravityModifier: Float(0.2),
		RoleGlobalGravity:             Float(-9.81),
		RoleForceHCPhysics:            Bool(true),
	}
	if err := p.Apply(values); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	backup, err := os.ReadFile(BackupPath(path))
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if !bytes.Equal(backup, pristine) {
		t.Error("backup does not hold the pristine image")
	}

	reopened, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("Open() after patch error = %v", err)
	}
	got, err := reopened.Values()
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}
	for role, want := range values {
		if got[role] != want {
			t.Errorf("Values()[%s] = %v, want %v", role, got[role], want)
		}
	}

	// A second patch must not replace the pristine backup.
	if err := reopened.Apply(Values{RoleGlobalGravity: Float(-1)}); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	backup, _ = os.ReadFile(BackupPath(path))
	if !bytes.Equal(backup, pristine) {
		t.Error("second Apply() replaced the backup")
	}
}

func TestPatcherRevert(t *testing.T) {
	sites := testSites(t)
	pristine := testImage(sites, testImageSize)
	variant := testVariant(t, "test", sites, pristine)
	catalog := testCatalog(t, variant)

	patched := bytes.Clone(pristine)
	if err := WriteValues(variant, patched, Values{RoleForceHCPhysics: Bool(true), RoleGlobalGravity: Float(0)}); err != nil {
		t.Fatal(err)
	}
	path := writeTestExe(t, patched)

	p, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	changes, err := p.PreviewRevert()
	if err != nil {
		t.Fatalf("PreviewRevert() error = %v", err)
	}
	if len(changes) != 2 {
		t.Errorf("PreviewRevert() returned %d changes, want 2", len(changes))
	}

	if err := p.Revert(); err != nil {
		t.Fatalf("Revert() error = %v", err)
	}

	got, _ := os.ReadFile(path)
	if !bytes.Equal(got, pristine) {
		t.Error("Revert() did not restore the pristine file")
	}
	backup, _ := os.ReadFile(BackupPath(path))
	if !bytes.Equal(backup, patched) {
		t.Error("backup should hold the file as it was before Revert()")
	}
}

func TestPatcherPreview(t *testing.T) {
	sites := testSites(t)
	pristine := testImage(sites, testImageSize)
	catalog := testCatalog(t, testVariant(t, "test", sites, pristine))
	path := writeTestExe(t, pristine)

	p, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	changes, err := p.Preview(Values{
		RoleGlobalGravity:             Float(-9.81), // unchanged
		RoleNormalModeGravityModifier: Float(0.2),
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("Preview() returned %d changes, want 1", len(changes))
	}
	c := changes[0]
	if c.Role != RoleNormalModeGravityModifier || c.Offset != testModifierOffset {
		t.Errorf("change = %s at 0x%X", c.Role, c.Offset)
	}
	if !bytes.Equal(c.After, []byte{0xC7, 0xC1, 0xCD, 0xCC, 0x4C, 0x3E}) {
		t.Errorf("change.After = % X", c.After)
	}

	got, _ := os.ReadFile(path)
	if !bytes.Equal(got, pristine) {
		t.Error("Preview() modified the file")
	}
	if _, err := os.Stat(BackupPath(path)); !errors.Is(err, os.ErrNotExist) {
		t.Error("Preview() created a backup")
	}
}

func TestPatcherOpenErrors(t *testing.T) {
	sites := testSites(t)
	pristine := testImage(sites, testImageSize)
	catalog := testCatalog(t, testVariant(t, "test", sites, pristine))

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{
			name:    "Missing file",
			path:    filepath.Join(t.TempDir(), "nope.exe"),
			wantErr: ErrIO,
		},
		{
			name:    "Unknown file",
			path:    writeTestExe(t, make([]byte, testImageSize)),
			wantErr: ErrNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Open(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
