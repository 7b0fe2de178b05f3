package row

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Size tokens use decimal (1000-based) units, matching the listing format.
// Binary (1024-based) units would change the rendered text and break
// round-tripping against existing captures.
const sizeUnits = "KMGTP"

// FormatSize renders a byte count as a compact token: plain digits below
// 1000, otherwise a scaled value with a decimal unit suffix. Values below 10
// that are not exact integers keep one decimal digit.
func FormatSize(bytes int64) string {
	if bytes < 1000 {
		return strconv.FormatInt(bytes, 10)
	}

	v := float64(bytes)
	unit := -1
	for v >= 1000 && unit < len(sizeUnits)-1 {
		v /= 1000
		unit++
	}

	if v < 10 && v != math.Trunc(v) {
		return fmt.Sprintf("%.1f%c", v, sizeUnits[unit])
	}
	return fmt.Sprintf("%.0f%c", v, sizeUnits[unit])
}

// ParseSize is the inverse of FormatSize, within rounding tolerance of the
// dropped digits. Unparseable input yields 0: the caller treats a mangled
// size field as lossy-but-safe rather than failing the whole line.
func ParseSize(token string) int64 {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0
	}

	last := token[len(token)-1]
	if idx := strings.IndexByte(sizeUnits, upperByte(last)); idx >= 0 {
		value, err := strconv.ParseFloat(token[:len(token)-1], 64)
		if err != nil {
			return 0
		}
		return int64(math.Round(value * math.Pow(1000, float64(idx+1))))
	}

	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
