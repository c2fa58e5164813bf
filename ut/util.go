// Package ut holds small helpers shared across the module.
package ut

import (
	"fmt"
	"strings"
)

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// PowerUp rounds n up to the nearest power of two.
func PowerUp(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// MinInt returns the smaller of a and b.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// PrintBuf formats a byte buffer in hex and ASCII.
func PrintBuf(buf []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "len %d; hex ", len(buf))
	for _, v := range buf {
		fmt.Fprintf(&b, "%02x", v)
	}
	b.WriteString("; asc ")
	for _, v := range buf {
		if v >= 32 && v <= 126 {
			b.WriteByte(v)
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteString(";")
	return b.String()
}
