// Package patch identifies known builds of TestDriveUnlimited.exe by
// content fingerprint and reads and rewrites their patch sites.
package patch

import (
	"bytes"
	_ "embed"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var defaultCatalog = mustParseCatalog(catalogYAML)

// Variant is one known build of the target executable.
type Variant struct {
	Name string
	// Fingerprint is the hex SHA-256 of the file with all sites reverted.
	Fingerprint string
	Sites       []Site
}

// Site returns the variant's site for role.
func (v *Variant) Site(role Role) (Site, bool) {
	for _, s := range v.Sites {
		if s.Role() == role {
			return s, true
		}
	}
	return nil, false
}

// Roles returns the roles of the variant's sites in catalog order.
func (v *Variant) Roles() []Role {
	roles := make([]Role, 0, len(v.Sites))
	for _, s := range v.Sites {
		roles = append(roles, s.Role())
	}
	return roles
}

// MinSize is the smallest image length that holds every site.
func (v *Variant) MinSize() int {
	size := 0
	for _, s := range v.Sites {
		if end := s.Offset() + s.Width(); end > size {
			size = end
		}
	}
	return size
}

// Catalog is an ordered, immutable list of variants.
type Catalog struct {
	variants []*Variant
}

// Default returns the compiled-in catalog.
func Default() *Catalog {
	return defaultCatalog
}

// NewCatalog validates variants and returns them as a catalog. Catalog
// order is identification order.
func NewCatalog(variants ...*Variant) (*Catalog, error) {
	seen := make(map[string]string, len(variants))
	for _, v := range variants {
		if err := validateVariant(v); err != nil {
			return nil, err
		}
		key := strings.ToLower(v.Fingerprint)
		if other, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: variants %s and %s share fingerprint %s", ErrInvalidCatalog, other, v.Name, key)
		}
		seen[key] = v.Name
	}
	return &Catalog{variants: append([]*Variant(nil), variants...)}, nil
}

// Variants returns the catalog's variants in order.
func (c *Catalog) Variants() []*Variant {
	return append([]*Variant(nil), c.variants...)
}

// Lookup finds a variant by name.
func (c *Catalog) Lookup(name string) (*Variant, bool) {
	for _, v := range c.variants {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

func validateVariant(v *Variant) error {
	if v == nil || v.Name == "" {
		return fmt.Errorf("%w: variant without a name", ErrInvalidCatalog)
	}
	if _, err := ParseDigest(v.Fingerprint); err != nil {
		return fmt.Errorf("%w: variant %s: %v", ErrInvalidCatalog, v.Name, err)
	}
	if len(v.Sites) == 0 {
		return fmt.Errorf("%w: variant %s has no sites", ErrInvalidCatalog, v.Name)
	}

	roles := make(map[Role]bool, len(v.Sites))
	for _, s := range v.Sites {
		if s.Offset() < 0 {
			return fmt.Errorf("%w: variant %s: %s site has negative offset", ErrInvalidCatalog, v.Name, s.Role())
		}
		if len(s.Original()) != s.Width() {
			return fmt.Errorf("%w: variant %s: %s site has %d original bytes for width %d",
				ErrInvalidCatalog, v.Name, s.Role(), len(s.Original()), s.Width())
		}
		if roles[s.Role()] {
			return fmt.Errorf("%w: variant %s: duplicate role %s", ErrInvalidCatalog, v.Name, s.Role())
		}
		roles[s.Role()] = true
	}

	sorted := append([]Site(nil), v.Sites...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset() < sorted[j].Offset() })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Offset()+prev.Width() > cur.Offset() {
			return fmt.Errorf("%w: variant %s: sites %s (0x%X) and %s (0x%X) overlap",
				ErrInvalidCatalog, v.Name, prev.Role(), prev.Offset(), cur.Role(), cur.Offset())
		}
	}
	return nil
}

type catalogFile struct {
	Variants []variantEntry `yaml:"variants"`
}

type variantEntry struct {
	Name        string      `yaml:"name"`
	Fingerprint string      `yaml:"fingerprint"`
	Sites       []siteEntry `yaml:"sites"`
}

type siteEntry struct {
	Role     Role     `yaml:"role"`
	Kind     string   `yaml:"kind"`
	Offset   int      `yaml:"offset"`
	Original hexBytes `yaml:"original"`
	Forced   hexBytes `yaml:"forced,omitempty"`
	Opcode   hexBytes `yaml:"opcode,omitempty"`
	Default  *float32 `yaml:"default,omitempty"`
}

// hexBytes decodes strings such as "8B 0D 1C A2".
type hexBytes []byte

func (h *hexBytes) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return fmt.Errorf("line %d: bad hex bytes %q: %w", n.Line, s, err)
	}
	*h = b
	return nil
}

// ParseCatalog reads a catalog in the YAML format of the embedded one.
func ParseCatalog(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	variants := make([]*Variant, 0, len(file.Variants))
	for _, ve := range file.Variants {
		v := &Variant{Name: ve.Name, Fingerprint: ve.Fingerprint}
		for _, se := range ve.Sites {
			s, err := se.site()
			if err != nil {
				return nil, fmt.Errorf("variant %s: %w", ve.Name, err)
			}
			v.Sites = append(v.Sites, s)
		}
		variants = append(variants, v)
	}
	return NewCatalog(variants...)
}

func (e siteEntry) site() (Site, error) {
	if e.Role == "" {
		return nil, fmt.Errorf("%w: site at 0x%X has no role", ErrInvalidCatalog, e.Offset)
	}
	switch e.Kind {
	case SiteFloat.String():
		var orig [FloatWidth]byte
		if len(e.Original) != FloatWidth || len(e.Opcode) != 0 || len(e.Forced) != 0 {
			return nil, fmt.Errorf("%w: float site %s needs exactly %d original bytes and nothing else",
				ErrInvalidCatalog, e.Role, FloatWidth)
		}
		copy(orig[:], e.Original)
		return NewFloatSite(e.Role, e.Offset, orig), nil

	case SiteLoadImmediate.String():
		var orig [LoadImmediateWidth]byte
		var op [2]byte
		if len(e.Original) != LoadImmediateWidth || len(e.Opcode) != len(op) || len(e.Forced) != 0 {
			return nil, fmt.Errorf("%w: load_immediate site %s needs %d original and %d opcode bytes",
				ErrInvalidCatalog, e.Role, LoadImmediateWidth, len(op))
		}
		copy(orig[:], e.Original)
		copy(op[:], e.Opcode)
		def := float32(1.0)
		if e.Default != nil {
			def = *e.Default
		}
		return NewLoadImmediateSite(e.Role, e.Offset, orig, op, def), nil

	case SiteBranchToggle.String():
		if len(e.Opcode) != 0 {
			return nil, fmt.Errorf("%w: branch_toggle site %s takes no opcode", ErrInvalidCatalog, e.Role)
		}
		return NewBranchToggleSite(e.Role, e.Offset, e.Original, e.Forced)

	default:
		return nil, fmt.Errorf("%w: site %s has unknown kind %q", ErrInvalidCatalog, e.Role, e.Kind)
	}
}

func mustParseCatalog(data []byte) *Catalog {
	c, err := ParseCatalog(data)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}
