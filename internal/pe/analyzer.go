package pe

import (
	"debug/pe"
	"fmt"
)

var machineNames = map[uint16]string{
	pe.IMAGE_FILE_MACHINE_I386:  "x86 (32-bit)",
	pe.IMAGE_FILE_MACHINE_AMD64: "x64 (64-bit)",
	pe.IMAGE_FILE_MACHINE_ARM:   "ARM",
	pe.IMAGE_FILE_MACHINE_ARM64: "ARM64",
}

var subsystemNames = map[uint16]string{
	pe.IMAGE_SUBSYSTEM_WINDOWS_GUI: "Windows GUI",
	pe.IMAGE_SUBSYSTEM_WINDOWS_CUI: "Windows console",
	pe.IMAGE_SUBSYSTEM_NATIVE:      "Native",
}

func getArchitecture(machine uint16) string {
	if name, ok := machineNames[machine]; ok {
		return name
	}
	return fmt.Sprintf("unknown (0x%X)", machine)
}

func getSubsystem(subsystem uint16) string {
	if name, ok := subsystemNames[subsystem]; ok {
		return name
	}
	return fmt.Sprintf("unknown (0x%X)", subsystem)
}

// getSectionPermissions renders the memory flags of a section as "RWX",
// with "-" for each missing right.
func getSectionPermissions(c uint32) string {
	flags := [3]struct {
		mask uint32
		char byte
	}{
		{pe.IMAGE_SCN_MEM_READ, 'R'},
		{pe.IMAGE_SCN_MEM_WRITE, 'W'},
		{pe.IMAGE_SCN_MEM_EXECUTE, 'X'},
	}

	perms := []byte("---")
	for i, f := range flags {
		if c&f.mask != 0 {
			perms[i] = f.char
		}
	}
	return string(perms)
}
