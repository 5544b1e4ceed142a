package markup

import (
	"regexp"
	"strconv"
)

var (
	decimalRef = regexp.MustCompile(`&#([0-9]+);`)
	hexRef     = regexp.MustCompile(`&#[xX]([0-9a-fA-F]+);`)
)

// SanitizeText removes numeric character references to control characters.
// Tab, newline, carriage return, printable ASCII and code points above the C1
// range are kept; references that cannot be parsed are dropped.
func SanitizeText(s string) string {
	s = decimalRef.ReplaceAllStringFunc(s, func(m string) string {
		return keepRef(m, decimalRef.FindStringSubmatch(m)[1], 10)
	})
	return hexRef.ReplaceAllStringFunc(s, func(m string) string {
		return keepRef(m, hexRef.FindStringSubmatch(m)[1], 16)
	})
}

func keepRef(ref, digits string, base int) string {
	code, err := strconv.ParseInt(digits, base, 32)
	if err != nil {
		return ""
	}
	if allowedCodePoint(code) {
		return ref
	}
	return ""
}

func allowedCodePoint(code int64) bool {
	return code == 9 || code == 10 || code == 13 || (code >= 32 && code <= 126) || code > 159
}
