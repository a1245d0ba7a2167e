package models

import (
	"encoding/hex"
	"fmt"
	"strings"
)

func printable(p []byte) string {
	o := make([]byte, len(p))
	for i, c := range p {
		if c >= 0x20 && c <= 0x7e {
			o[i] = c
		} else {
			o[i] = '.'
		}
	}
	return string(o)
}

// HexDump renders mem as word-grouped hex with an ascii column, sized to fit
// an 80 column terminal.
func HexDump(base Addr, mem []byte, bits uint) []string {
	bsz := int(bits / 8)
	if bsz == 0 {
		bsz = 4
	}
	hexFmt := fmt.Sprintf("0x%%0%dx:", bsz*2)
	padBlock := strings.Repeat(" ", bsz*2)
	padTail := strings.Repeat(" ", bsz)

	addrSize := bsz*2 + 4
	blockCount := ((80 - addrSize) * 3 / 4) / ((bsz + 1) * 2)
	lineSize := blockCount * bsz
	var out []string
	blocks := make([]string, blockCount)
	tail := make([]string, blockCount)
	for i := 0; i < len(mem); i += lineSize {
		line := mem[i:]
		for j := 0; j < blockCount; j++ {
			start, end := j*bsz, (j+1)*bsz
			if start >= len(line) {
				blocks[j] = padBlock
				tail[j] = padTail
				continue
			}
			short := 0
			if end > len(line) {
				short = end - len(line)
				end = len(line)
			}
			block := line[start:end]
			blocks[j] = hex.EncodeToString(block) + strings.Repeat("  ", short)
			tail[j] = printable(block) + strings.Repeat(" ", short)
		}
		out = append(out, fmt.Sprintf(hexFmt, uint64(base)+uint64(i))+" "+
			strings.Join(blocks, " ")+" ["+strings.Join(tail, " ")+"]")
	}
	return out
}
