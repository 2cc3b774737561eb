package maskpass

import (
	"bytes"
	"encoding/hex"
	"errors"
)

// Mask XORs src with mask into dst, cycling through mask. dst and src may be the
// same slice. Unmask is the same operation.
func Mask(dst, src, mask []byte) error {
	if len(mask) == 0 {
		return newError(KindCrypto, nil, "xor mask is empty")
	}
	if len(dst) < len(src) {
		return newError(KindFormat, nil, "destination holds %d bytes, need %d", len(dst), len(src))
	}
	for i := range src {
		dst[i] = src[i] ^ mask[i%len(mask)]
	}
	return nil
}

// Unmask reverses Mask.
func Unmask(dst, src, mask []byte) error {
	return Mask(dst, src, mask)
}

// HexEncode renders b as upper case hexadecimal digits.
func HexEncode(b []byte) string {
	out := make([]byte, hex.EncodedLen(len(b)))
	hex.Encode(out, b)
	return string(bytes.ToUpper(out))
}

// HexDecode parses s, accepting either case. Odd length and characters outside
// 0-9a-fA-F are FormatErrors; the latter names the first offending character.
func HexDecode(s string) ([]byte, error) {
	dst := make([]byte, len(s)/2)
	if err := hexDecodeInto(dst, s); err != nil {
		return nil, err
	}
	return dst, nil
}

// hexDecodeInto decodes s into dst, which must hold len(s)/2 bytes.
func hexDecodeInto(dst []byte, s string) error {
	if len(s)%2 != 0 {
		return newError(KindFormat, nil, "hexadecimal string length %d is odd", len(s))
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		var bad hex.InvalidByteError
		if errors.As(err, &bad) {
			return newError(KindFormat, nil, "'%c' is not a valid digit (0-9, a-f, or A-F)", byte(bad))
		}
		return newError(KindFormat, err, "invalid hexadecimal string")
	}
	return nil
}
