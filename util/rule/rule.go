package rule

const (
	CR     byte = '\r'
	LF     byte = '\n'
	SP     byte = ' '
	HYPHEN byte = '-'
	COLON  byte = ':'
	DQUOTE byte = '"'
)

var CRLF = []byte{CR, LF}

// MaxBoundaryLen is the longest boundary token accepted.
// Reference: https://datatracker.ietf.org/doc/html/rfc2046#section-5.1.1
const MaxBoundaryLen = 70

func IsAlpha(r rune) bool { return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') }
func IsDigit(r rune) bool { return '0' <= r && r <= '9' }

// IsBoundaryChar reports whether r may appear in a boundary token.
// This is the subset of RFC 2046 bchars observed on the wire; notably
// SP and "/" are excluded.
func IsBoundaryChar(r rune) bool {
	if IsAlpha(r) || IsDigit(r) {
		return true
	}

	switch r {
	case '\'', '(', ')', '+', '_', ',', '-', '.', ':', '=', '?':
		return true
	}

	return false
}

// IsValidBoundary reports whether s is a usable boundary token:
// non-empty, within [MaxBoundaryLen], and drawn from the boundary
// character set.
func IsValidBoundary(s string) bool {
	if len(s) == 0 || len(s) > MaxBoundaryLen {
		return false
	}
	for _, c := range s {
		if !IsBoundaryChar(c) {
			return false
		}
	}
	return true
}

// IsHeaderFieldChar reports whether r may appear in a mime part header
// field name.
func IsHeaderFieldChar(r rune) bool {
	return IsAlpha(r) || IsDigit(r) || r == rune(HYPHEN)
}
