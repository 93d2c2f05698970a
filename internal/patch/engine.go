package patch

import (
	"bytes"
	"fmt"
)

// ReadValues decodes every site of v from image. The image is bounds
// checked again here even if it was identified earlier.
func ReadValues(v *Variant, image []byte) (Values, error) {
	values := make(Values, len(v.Sites))
	for _, s := range v.Sites {
		val, err := s.Decode(image)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.Role(), err)
		}
		values[s.Role()] = val
	}
	return values, nil
}

// WriteValues encodes values into image in place. Sites without a value
// are left alone and values for roles v lacks are ignored. Every targeted
// site is checked before the first byte is written.
//
// v must describe image; a mismatched variant is not detected beyond
// bounds checks.
func WriteValues(v *Variant, image []byte, values Values) error {
	var targets []Site
	for _, s := range v.Sites {
		val, ok := values[s.Role()]
		if !ok {
			continue
		}
		if _, err := region(image, s); err != nil {
			return fmt.Errorf("writing %s: %w", s.Role(), err)
		}
		if err := checkKind(s, val); err != nil {
			return fmt.Errorf("writing %s: %w", s.Role(), err)
		}
		targets = append(targets, s)
	}

	for _, s := range targets {
		if err := s.Encode(image, values[s.Role()]); err != nil {
			return fmt.Errorf("writing %s: %w", s.Role(), err)
		}
	}
	return nil
}

// Revert puts the original bytes back at every site of v.
func Revert(v *Variant, image []byte) error {
	if len(image) < v.MinSize() {
		return fmt.Errorf("reverting %s: %w: needs %d bytes, image has %d", v.Name, ErrTooSmall, v.MinSize(), len(image))
	}
	for _, s := range v.Sites {
		copy(image[s.Offset():], s.Original())
	}
	return nil
}

// SiteReport describes the current content of one site.
type SiteReport struct {
	Role   Role
	Kind   SiteKind
	Offset int
	Width  int
	State  SiteState
	Value  Value
	// Current is a copy of the bytes at the site.
	Current []byte
}

// Inspect reports the state and value of every site of v in image.
func Inspect(v *Variant, image []byte) ([]SiteReport, error) {
	reports := make([]SiteReport, 0, len(v.Sites))
	for _, s := range v.Sites {
		state, err := s.State(image)
		if err != nil {
			return nil, fmt.Errorf("inspecting %s: %w", s.Role(), err)
		}
		val, err := s.Decode(image)
		if err != nil {
			return nil, fmt.Errorf("inspecting %s: %w", s.Role(), err)
		}
		reports = append(reports, SiteReport{
			Role:    s.Role(),
			Kind:    s.Kind(),
			Offset:  s.Offset(),
			Width:   s.Width(),
			State:   state,
			Value:   val,
			Current: bytes.Clone(image[s.Offset() : s.Offset()+s.Width()]),
		})
	}
	return reports, nil
}
