package patch

import (
	"bytes"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Instruction is one decoded instruction of a site.
type Instruction struct {
	// Offset is relative to the start of the site.
	Offset int
	Bytes  []byte
	Text   string
}

// Disassemble decodes the current bytes of s as 32-bit x86 code. pc is the
// virtual address of the site's first byte and is only used to render
// branch targets. Bytes that do not decode are listed one at a time as
// "(bad)".
func Disassemble(s Site, image []byte, pc uint64) ([]Instruction, error) {
	code, err := region(image, s)
	if err != nil {
		return nil, err
	}

	var out []Instruction
	for off := 0; off < len(code); {
		inst, err := x86asm.Decode(code[off:], 32)
		if err != nil || inst.Len == 0 {
			out = append(out, Instruction{Offset: off, Bytes: bytes.Clone(code[off : off+1]), Text: "(bad)"})
			off++
			continue
		}
		out = append(out, Instruction{
			Offset: off,
			Bytes:  bytes.Clone(code[off : off+inst.Len]),
			Text:   x86asm.IntelSyntax(inst, pc+uint64(off), nil),
		})
		off += inst.Len
	}
	return out, nil
}

func (i Instruction) String() string {
	return fmt.Sprintf("+%02X  % X  %s", i.Offset, i.Bytes, i.Text)
}
