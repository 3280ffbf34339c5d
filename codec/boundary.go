package codec

import (
	"strings"

	"github.com/google/uuid"

	"mime-stream/util/rule"
)

// contentTypeBoundaryPrefix is the request header announcing the
// boundary chosen by the encoder.
const contentTypeBoundaryPrefix = "Content-Type: multipart/form-data; boundary="

// boundaryParam introduces the boundary token inside a received
// content-type header line.
const boundaryParam = "boundary="

// BoundaryGenerator produces boundary tokens for outgoing requests.
type BoundaryGenerator func() string

// RandomBoundary returns a fresh boundary token. A UUID is long enough
// to make collision with part data a non-concern and matches what the
// service emits on the response side.
func RandomBoundary() string {
	return uuid.NewString()
}

// extractBoundary pulls the boundary parameter out of a content-type
// header line. The parameter name must appear literally, in lower
// case. It reports false when the line carries no usable boundary; a
// line that names a different header entirely is simply not a match,
// never an error.
func extractBoundary(line string) (string, bool) {
	at := strings.Index(line, boundaryParam)
	if at < 0 {
		return "", false
	}

	rest := line[at+len(boundaryParam):]
	if len(rest) > 0 && rest[0] == rule.DQUOTE {
		end := strings.IndexByte(rest[1:], rule.DQUOTE)
		if end < 0 {
			return "", false
		}
		rest = rest[1 : 1+end]
	} else if end := strings.IndexByte(rest, ';'); end >= 0 {
		rest = rest[:end]
	}

	if !rule.IsValidBoundary(rest) {
		return "", false
	}
	return rest, true
}
