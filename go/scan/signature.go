package scan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrEmptySignature = errors.New("empty signature")
	ErrMaskLength     = errors.New("mask length does not match signature")
)

// Signature is a byte pattern with per-position wildcards. Mask[i] is true
// when Bytes[i] must match literally.
type Signature struct {
	Bytes []byte
	Mask  []bool
}

// Compile builds a Signature from a raw byte string and a mask of the same
// length, where 'x' marks a literal byte and '?' a wildcard.
func Compile(sig, mask string) (Signature, error) {
	if len(sig) == 0 {
		return Signature{}, ErrEmptySignature
	}
	if len(sig) != len(mask) {
		return Signature{}, errors.Wrapf(ErrMaskLength, "%d != %d", len(sig), len(mask))
	}
	s := Signature{Bytes: []byte(sig), Mask: make([]bool, len(mask))}
	for i, c := range mask {
		switch c {
		case 'x':
			s.Mask[i] = true
		case '?':
		default:
			return Signature{}, errors.Errorf("bad mask character %q at %d", c, i)
		}
	}
	return s, nil
}

func MustCompile(sig, mask string) Signature {
	s, err := Compile(sig, mask)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseIDA reads the space separated form "E8 ?? ?? ?? ?? 83 C4 04", where
// "?" or "??" is a wildcard.
func ParseIDA(pattern string) (Signature, error) {
	fields := strings.Fields(pattern)
	if len(fields) == 0 {
		return Signature{}, ErrEmptySignature
	}
	s := Signature{Bytes: make([]byte, len(fields)), Mask: make([]bool, len(fields))}
	for i, f := range fields {
		if f == "?" || f == "??" {
			continue
		}
		b, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return Signature{}, errors.Errorf("bad signature byte %q at %d", f, i)
		}
		s.Bytes[i] = byte(b)
		s.Mask[i] = true
	}
	return s, nil
}

func (s Signature) Len() int {
	return len(s.Bytes)
}

func (s Signature) valid() error {
	if len(s.Bytes) == 0 {
		return ErrEmptySignature
	}
	if len(s.Bytes) != len(s.Mask) {
		return ErrMaskLength
	}
	return nil
}

// MaskString renders the mask in 'x'/'?' form.
func (s Signature) MaskString() string {
	var b strings.Builder
	for _, lit := range s.Mask {
		if lit {
			b.WriteByte('x')
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

func (s Signature) String() string {
	parts := make([]string, len(s.Bytes))
	for i, b := range s.Bytes {
		if s.Mask[i] {
			parts[i] = fmt.Sprintf("%02X", b)
		} else {
			parts[i] = "??"
		}
	}
	return strings.Join(parts, " ")
}
