package pe

import (
	"debug/pe"
	"encoding/binary"
	"fmt"
)

// ChecksumInfo contains PE checksum verification results.
type ChecksumInfo struct {
	Stored   uint32
	Computed uint32
	// Valid is true when the stored checksum is zero (not checksummed)
	// or matches the computed one.
	Valid bool
}

// VerifyChecksum compares the optional header checksum of f with the one
// computed over image.
func VerifyChecksum(f *pe.File, image []byte) (*ChecksumInfo, error) {
	var stored uint32
	switch opt := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		stored = opt.CheckSum
	case *pe.OptionalHeader64:
		stored = opt.CheckSum
	default:
		return nil, fmt.Errorf("no optional header")
	}

	offset, err := ChecksumOffset(image)
	if err != nil {
		return nil, err
	}
	computed := ComputeChecksum(image, offset)

	return &ChecksumInfo{
		Stored:   stored,
		Computed: computed,
		Valid:    stored == 0 || stored == computed,
	}, nil
}

// ChecksumOffset returns the file offset of the optional header CheckSum
// field: e_lfanew + signature(4) + COFF header(20) + 64.
func ChecksumOffset(image []byte) (int64, error) {
	if len(image) < 64 {
		return 0, fmt.Errorf("image too small for a DOS header")
	}
	peHeaderOffset := int64(binary.LittleEndian.Uint32(image[60:64]))
	offset := peHeaderOffset + 4 + 20 + 64
	if offset+4 > int64(len(image)) {
		return 0, fmt.Errorf("checksum field at 0x%X is past the end of the image", offset)
	}
	return offset, nil
}

// ComputeChecksum calculates the PE image checksum: the 16-bit one's
// complement style sum of all words, skipping the 4 byte checksum field at
// checksumOffset (-1 for none), plus the file size.
func ComputeChecksum(image []byte, checksumOffset int64) uint32 {
	var sum uint32
	for i := 0; i < len(image); i += 2 {
		if checksumOffset >= 0 && int64(i) >= checksumOffset && int64(i) < checksumOffset+4 {
			continue
		}

		var word uint32
		if i+1 < len(image) {
			word = uint32(binary.LittleEndian.Uint16(image[i:]))
		} else {
			word = uint32(image[i])
		}

		sum += word
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	sum = (sum & 0xFFFF) + (sum >> 16)

	return sum + uint32(len(image))
}
