package sourcemap

import (
	"errors"
	"strings"
)

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var errBadVLQ = errors.New("sourcemap: malformed VLQ")

var base64Index = func() [128]int8 {
	var idx [128]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(base64Chars); i++ {
		idx[base64Chars[i]] = int8(i)
	}
	return idx
}()

// appendVLQ appends the base64 VLQ encoding of v.
func appendVLQ(sb *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = (-v << 1) | 1
	}
	for {
		digit := u & 0x1f
		u >>= 5
		if u > 0 {
			digit |= 0x20
		}
		sb.WriteByte(base64Chars[digit])
		if u == 0 {
			return
		}
	}
}

// readVLQ decodes one value from s starting at i and returns the next index.
func readVLQ(s string, i int) (int, int, error) {
	var (
		result int
		shift  uint
	)
	for {
		if i >= len(s) || s[i] >= 128 || base64Index[s[i]] < 0 {
			return 0, i, errBadVLQ
		}
		digit := int(base64Index[s[i]])
		i++
		result |= (digit & 0x1f) << shift
		if digit&0x20 == 0 {
			break
		}
		shift += 5
	}
	if result&1 == 1 {
		return -(result >> 1), i, nil
	}
	return result >> 1, i, nil
}
