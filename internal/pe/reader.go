// Package pe summarises the PE headers of an executable image for display.
package pe

import (
	"bytes"
	"debug/pe"
	"fmt"
)

// Layout is the header summary of a PE image.
type Layout struct {
	Architecture string
	Machine      uint16
	Is64         bool
	Subsystem    string
	EntryPoint   uint64
	ImageBase    uint64
	Checksum     *ChecksumInfo
	Sections     []SectionInfo
}

// SectionInfo contains information about a PE section.
type SectionInfo struct {
	Name            string
	VirtualAddress  uint32
	VirtualSize     uint32
	Offset          uint32
	Size            uint32
	Characteristics uint32
	Permissions     string
}

// Parse reads the PE headers of image.
func Parse(image []byte) (*Layout, error) {
	f, err := pe.NewFile(bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("parsing PE headers: %w", err)
	}
	defer func() { _ = f.Close() }()

	l := &Layout{
		Machine:      f.Machine,
		Architecture: getArchitecture(f.Machine),
	}

	switch opt := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		l.EntryPoint = uint64(opt.AddressOfEntryPoint)
		l.ImageBase = uint64(opt.ImageBase)
		l.Subsystem = getSubsystem(opt.Subsystem)
	case *pe.OptionalHeader64:
		l.Is64 = true
		l.EntryPoint = uint64(opt.AddressOfEntryPoint)
		l.ImageBase = opt.ImageBase
		l.Subsystem = getSubsystem(opt.Subsystem)
	}

	for _, s := range f.Sections {
		l.Sections = append(l.Sections, SectionInfo{
			Name:            s.Name,
			VirtualAddress:  s.VirtualAddress,
			VirtualSize:     s.VirtualSize,
			Offset:          s.Offset,
			Size:            s.Size,
			Characteristics: s.Characteristics,
			Permissions:     getSectionPermissions(s.Characteristics),
		})
	}

	if checksum, err := VerifyChecksum(f, image); err == nil {
		l.Checksum = checksum
	}

	return l, nil
}

// SectionAt returns the section whose raw data contains file offset off.
func (l *Layout) SectionAt(off int64) (*SectionInfo, bool) {
	for i := range l.Sections {
		s := &l.Sections[i]
		if off >= int64(s.Offset) && off < int64(s.Offset)+int64(s.Size) {
			return s, true
		}
	}
	return nil, false
}

// OffsetToVA maps a file offset to its virtual address once loaded.
func (l *Layout) OffsetToVA(off int64) (uint64, bool) {
	s, ok := l.SectionAt(off)
	if !ok {
		return 0, false
	}
	return l.ImageBase + uint64(s.VirtualAddress) + uint64(off-int64(s.Offset)), true
}
