package patch

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Patcher holds an identified executable read from disk. It keeps the
// bytes as read so the backup always receives the file's content from
// before this patcher touched it.
type Patcher struct {
	path     string
	variant  *Variant
	original []byte
}

// Open reads and identifies the file at path against the default catalog.
func Open(path string) (*Patcher, error) {
	return defaultCatalog.Open(path)
}

// Open reads and identifies the file at path.
func (c *Catalog) Open(path string) (*Patcher, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: file %s not found", ErrIO, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %w", ErrIO, path, err)
	}

	v, err := c.Identify(data)
	if err != nil {
		return nil, fmt.Errorf("failed identifying %s: %w", path, err)
	}

	return &Patcher{
		path:     path,
		variant:  v,
		original: data,
	}, nil
}

// Path returns the file path.
func (p *Patcher) Path() string {
	return p.path
}

// Variant returns the identified variant.
func (p *Patcher) Variant() *Variant {
	return p.variant
}

// Size returns the file size in bytes.
func (p *Patcher) Size() int {
	return len(p.original)
}

// Image returns a copy of the bytes read from disk.
func (p *Patcher) Image() []byte {
	return bytes.Clone(p.original)
}

// Values decodes the current values of the file.
func (p *Patcher) Values() (Values, error) {
	return ReadValues(p.variant, p.original)
}

// Inspect reports every site of the file.
func (p *Patcher) Inspect() ([]SiteReport, error) {
	return Inspect(p.variant, p.original)
}

// Change is one byte range a patch would modify.
type Change struct {
	Role   Role
	Offset int
	Before []byte
	After  []byte
}

// Preview returns the site ranges that applying values would change,
// without touching the file.
func (p *Patcher) Preview(values Values) ([]Change, error) {
	patched := p.Image()
	if err := WriteValues(p.variant, patched, values); err != nil {
		return nil, err
	}
	return diffSites(p.variant, p.original, patched), nil
}

// PreviewRevert is Preview for Revert.
func (p *Patcher) PreviewRevert() ([]Change, error) {
	patched := p.Image()
	if err := Revert(p.variant, patched); err != nil {
		return nil, err
	}
	return diffSites(p.variant, p.original, patched), nil
}

// Apply writes values into the file. The pristine backup is made before
// the file is overwritten; a backup failure leaves the file untouched.
func (p *Patcher) Apply(values Values) error {
	patched := p.Image()
	if err := WriteValues(p.variant, patched, values); err != nil {
		return fmt.Errorf("failed patching %s: %w", p.path, err)
	}
	return p.commit(patched)
}

// Revert restores the original bytes of every site in the file.
func (p *Patcher) Revert() error {
	patched := p.Image()
	if err := Revert(p.variant, patched); err != nil {
		return fmt.Errorf("failed reverting %s: %w", p.path, err)
	}
	return p.commit(patched)
}

func (p *Patcher) commit(patched []byte) error {
	if err := EnsureBackup(p.path, p.original); err != nil {
		return err
	}

	info, err := os.Stat(p.path)
	if err != nil {
		return fmt.Errorf("%w: cannot stat %s: %w", ErrIO, p.path, err)
	}
	if err := os.WriteFile(p.path, patched, info.Mode().Perm()); err != nil {
		return fmt.Errorf("%w: failed writing patched file to %s: %w", ErrIO, p.path, err)
	}

	p.original = patched
	return nil
}

func diffSites(v *Variant, before, after []byte) []Change {
	var changes []Change
	for _, s := range v.Sites {
		end := s.Offset() + s.Width()
		if bytes.Equal(before[s.Offset():end], after[s.Offset():end]) {
			continue
		}
		changes = append(changes, Change{
			Role:   s.Role(),
			Offset: s.Offset(),
			Before: bytes.Clone(before[s.Offset():end]),
			After:  bytes.Clone(after[s.Offset():end]),
		})
	}
	return changes
}
