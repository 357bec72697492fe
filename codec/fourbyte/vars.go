package fourbyte

import "strconv"

// Four-byte float layout, most significant bit first:
//
//	| sign (1) | digits (25) | digit count - 1 (3) | decimal position - 1 (3) |
//
// The digits field holds the decimal digits of the value with the point removed, the
// digit count restores leading zeros and the decimal position counts digits right of the
// point.
const (
	floatDigitsBits     = 25
	floatMaxDigits      = 8
	floatDigitsMask     = 1<<floatDigitsBits - 1
	floatCountShift     = 3
	floatDigitsShift    = 6
	floatSignBit        = 1 << 31
	floatSmallFieldMask = 0x7
)

// encodeInteger encodes s as a four-byte integer variable.
//
// Only canonical decimal integers fitting in int32 are accepted, so decoding reproduces
// s exactly ("007", "+1" and "-0" stay dictionary variables).
func encodeInteger(s string) (uint32, bool) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil || strconv.FormatInt(v, 10) != s {
		return 0, false
	}

	return uint32(int32(v)), true //nolint:gosec
}

func decodeInteger(v uint32) string {
	return strconv.FormatInt(int64(int32(v)), 10) //nolint:gosec
}

// encodeFloat encodes s as a four-byte float variable.
//
// s must be an optional '-', up to 8 decimal digits and exactly one '.' followed by at
// least one digit.
func encodeFloat(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}

	var (
		negative  bool
		digits    uint32
		numDigits int
		pointPos  = -1
	)

	i := 0
	if s[0] == '-' {
		negative = true
		i = 1
	}

	for ; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			if pointPos >= 0 {
				return 0, false
			}
			pointPos = numDigits

			continue
		}
		if c < '0' || c > '9' {
			return 0, false
		}
		numDigits++
		if numDigits > floatMaxDigits {
			return 0, false
		}
		digits = digits*10 + uint32(c-'0')
	}

	if pointPos < 0 || numDigits == 0 {
		return 0, false
	}
	decimalPos := numDigits - pointPos
	if decimalPos == 0 || digits > floatDigitsMask {
		return 0, false
	}

	v := digits<<floatDigitsShift |
		uint32(numDigits-1)<<floatCountShift | //nolint:gosec
		uint32(decimalPos-1) //nolint:gosec
	if negative {
		v |= floatSignBit
	}

	return v, true
}

// decodeFloat reverses encodeFloat. ok is false when the fields are inconsistent.
func decodeFloat(v uint32) (string, bool) {
	digits := (v >> floatDigitsShift) & floatDigitsMask
	numDigits := int((v>>floatCountShift)&floatSmallFieldMask) + 1
	decimalPos := int(v&floatSmallFieldMask) + 1
	if decimalPos > numDigits {
		return "", false
	}

	digitStr := strconv.FormatUint(uint64(digits), 10)
	if len(digitStr) > numDigits {
		return "", false
	}

	out := make([]byte, 0, numDigits+2)
	if v&floatSignBit != 0 {
		out = append(out, '-')
	}
	for range numDigits - len(digitStr) {
		out = append(out, '0')
	}
	out = append(out, digitStr...)

	point := len(out) - decimalPos
	out = append(out, 0)
	copy(out[point+1:], out[point:])
	out[point] = '.'

	return string(out), true
}

func isDecimalDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlphabet(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// isDelimiter reports whether c separates variable tokens. Letters, digits, bytes of
// multi-byte UTF-8 sequences and "+-._" belong to tokens.
func isDelimiter(c byte) bool {
	return !(isDecimalDigit(c) || isAlphabet(c) || c >= 0x80 ||
		c == '+' || c == '-' || c == '.' || c == '_')
}

// nextVariable finds the next variable token in msg starting at pos.
//
// A token is a variable when it contains a decimal digit or directly follows '='.
// Returns begin == end == len(msg) when no variable remains.
func nextVariable(msg string, pos int) (begin, end int) {
	for pos < len(msg) {
		for pos < len(msg) && isDelimiter(msg[pos]) {
			pos++
		}
		begin = pos

		hasDigit := false
		for pos < len(msg) && !isDelimiter(msg[pos]) {
			if isDecimalDigit(msg[pos]) {
				hasDigit = true
			}
			pos++
		}
		end = pos

		if begin == end {
			break
		}
		if hasDigit || (begin > 0 && msg[begin-1] == '=') {
			return begin, end
		}
	}

	return len(msg), len(msg)
}
