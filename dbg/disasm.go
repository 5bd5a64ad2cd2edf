package dbg

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Disasm decodes the 64-bit instruction at the start of b and renders it
// in GNU syntax, with pc as the address for rip-relative operands.
func Disasm(b []byte, pc uint64) (string, error) {
	inst, err := x86asm.Decode(b, 64)
	if err != nil {
		return "", fmt.Errorf("decoding %#02x: %w", b, err)
	}

	return x86asm.GNUSyntax(inst, pc, nil), nil
}

// Image is a flat guest code image loaded at Base, backing CodeReader for
// breakpoint reports.
type Image struct {
	Base uint64
	Data []byte
}

func (im *Image) ReadCode(addr uint64, b []byte) (int, error) {
	if addr < im.Base || addr >= im.Base+uint64(len(im.Data)) {
		return 0, fmt.Errorf("address %#x outside image [%#x, %#x)",
			addr, im.Base, im.Base+uint64(len(im.Data)))
	}

	n := copy(b, im.Data[addr-im.Base:])

	return n, nil
}
