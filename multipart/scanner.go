package multipart

import (
	"github.com/pkg/errors"

	"mime-stream/util/rule"
)

type scanState uint8

const (
	scanStart scanState = iota
	scanStartBoundary
	scanHeaderStart
	scanDupBoundary
	scanHeaderFieldStart
	scanHeaderField
	scanHeaderValueStart
	scanHeaderValue
	scanHeaderValueAlmostDone
	scanHeadersAlmostDone
	scanPartDataStart
	scanPartData
	scanEnd
	scanFailed
)

const (
	flagPartBoundary uint8 = 1 << iota
	flagLastBoundary
)

// Scanner is an incremental scanner for one multipart stream. Feed it
// the stream in arbitrarily sized chunks; it invokes the callbacks as
// part structure is recognized, never buffering part data internally.
//
// Byte slices handed to OnPartData are only valid for the duration of
// the callback.
type Scanner struct {
	OnPartBegin func(Headers)
	OnPartData  func([]byte)
	OnPartEnd   func()

	boundary     string // "\r\n--" + token
	dup          string // a full duplicated delimiter line: boundary + CRLF
	boundaryChar [256]bool

	state      scanState
	flags      uint8
	index      int
	dupVirtual int
	dataMark   int // start of unemitted part data in the current chunk; -1 when none
	lookbehind []byte

	headers Headers
	field   []byte
	value   []byte

	err error
}

// NewScanner returns a scanner for a stream delimited by the given
// boundary token (without the leading dashes).
func NewScanner(token string) (*Scanner, error) {
	if !rule.IsValidBoundary(token) {
		return nil, errors.Errorf("invalid boundary token: %q", token)
	}

	s := &Scanner{
		boundary: string(rule.CRLF) + "--" + token,
		state:    scanStart,
		dataMark: -1,
		headers:  Headers{},
	}
	s.dup = s.boundary + string(rule.CRLF)
	s.lookbehind = make([]byte, 0, len(s.boundary)+8)
	for i := 0; i < len(s.boundary); i++ {
		s.boundaryChar[s.boundary[i]] = true
	}

	return s, nil
}

// Finished reports whether the closing delimiter has been scanned.
func (s *Scanner) Finished() bool { return s.state == scanEnd }

// Feed scans the next chunk of the stream, invoking the callbacks for
// any part events it completes. A non-nil return means the stream is
// malformed; the scanner stays failed and every later call returns the
// same error.
func (s *Scanner) Feed(p []byte) error {
	if s.err != nil {
		return s.err
	}
	if s.state == scanEnd {
		// Everything after the closing delimiter is an epilogue.
		return nil
	}

	buf := p
	i := 0

	// Set while replaying a near-miss duplicate delimiter through the
	// header grammar: buf is then the replay bytes and these hold the
	// suspended chunk. Replays cannot nest because replay bytes are too
	// short to contain another delimiter.
	mainBuf := []byte(nil)
	mainResume := -1

	for {
		if i >= len(buf) {
			s.flushPartData(buf)
			if mainResume < 0 {
				break
			}
			buf, i = mainBuf, mainResume
			mainBuf, mainResume = nil, -1
			if s.dataMark >= 0 {
				s.dataMark = i
			}
			continue
		}

		c := buf[i]

		switch s.state {
		case scanStart:
			s.index = 0
			s.state = scanStartBoundary
			fallthrough

		case scanStartBoundary:
			// The stream opens with the delimiter minus its leading CRLF.
			switch s.index {
			case len(s.boundary) - 2:
				if c != rule.CR {
					s.fail("expected CR after opening delimiter")
					break
				}
				s.index++
			case len(s.boundary) - 1:
				if c != rule.LF {
					s.fail("expected LF after opening delimiter")
					break
				}
				s.index = 0
				s.beginPart()
				s.state = scanHeaderStart
			default:
				if c != s.boundary[s.index+2] {
					s.fail("stream does not open with the configured delimiter")
					break
				}
				s.index++
			}

		case scanHeaderStart:
			// Some senders repeat the delimiter line back to back; eat
			// any that show up where headers should begin.
			if c == rule.HYPHEN {
				s.state = scanDupBoundary
				s.index = 3
				s.dupVirtual = 2
				break
			}
			if c == rule.CR {
				s.state = scanDupBoundary
				s.index = 1
				s.dupVirtual = 0
				break
			}
			fallthrough

		case scanHeaderFieldStart:
			s.state = scanHeaderField
			fallthrough

		case scanHeaderField:
			if c == rule.CR {
				if len(s.field) > 0 {
					s.fail("header line without a colon")
					break
				}
				s.state = scanHeadersAlmostDone
				break
			}
			if c == rule.COLON {
				if len(s.field) == 0 {
					s.fail("empty header field name")
					break
				}
				s.state = scanHeaderValueStart
				break
			}
			if !rule.IsHeaderFieldChar(rune(c)) {
				s.fail("malformed header field name")
				break
			}
			s.field = append(s.field, c)

		case scanHeaderValueStart:
			if c == rule.SP {
				break
			}
			s.state = scanHeaderValue
			fallthrough

		case scanHeaderValue:
			if c == rule.CR {
				s.headers.Add(string(s.field), string(s.value))
				s.field = s.field[:0]
				s.value = s.value[:0]
				s.state = scanHeaderValueAlmostDone
				break
			}
			s.value = append(s.value, c)

		case scanHeaderValueAlmostDone:
			if c != rule.LF {
				s.fail("expected LF after header value")
				break
			}
			s.state = scanHeaderFieldStart

		case scanHeadersAlmostDone:
			if c != rule.LF {
				s.fail("expected LF at end of part headers")
				break
			}
			if s.OnPartBegin != nil {
				s.OnPartBegin(s.headers)
			}
			s.state = scanPartDataStart

		case scanPartDataStart:
			s.state = scanPartData
			s.dataMark = i
			fallthrough

		case scanPartData:
			i = s.processPartData(buf, i)
			if s.state == scanEnd {
				return nil
			}

		case scanDupBoundary:
			if c == s.dup[s.index] {
				s.index++
				if s.index == len(s.dup) {
					s.state = scanHeaderStart
					s.index = 0
				}
				break
			}
			// Near miss: the bytes consumed so far belong to a header
			// line, not a duplicate delimiter. Replay them through the
			// header grammar, then resume the suspended chunk.
			pending := append([]byte(nil), s.dup[s.dupVirtual:s.index]...)
			pending = append(pending, c)
			s.state = scanHeaderFieldStart
			s.index = 0
			mainBuf, mainResume = buf, i+1
			buf, i = pending, 0
			continue
		}

		if s.err != nil {
			return s.err
		}
		i++
	}

	return nil
}

// processPartData consumes part data starting at buf[i], watching for
// the next delimiter. It returns the index of the last byte consumed.
func (s *Scanner) processPartData(buf []byte, i int) int {
	prevIndex := s.index
	c := buf[i]

	if s.index == 0 {
		// Skip ahead: any delimiter ending within the next len(boundary)
		// bytes must place one of its characters at the probe position.
		for i+len(s.boundary) <= len(buf) && !s.boundaryChar[buf[i+len(s.boundary)-1]] {
			i += len(s.boundary)
		}
		if i >= len(buf) {
			return i
		}
		c = buf[i]
	}

	switch {
	case s.index < len(s.boundary):
		if s.boundary[s.index] == c {
			if s.index == 0 {
				if s.dataMark >= 0 {
					if i > s.dataMark {
						s.emitPartData(buf[s.dataMark:i])
					}
					s.dataMark = -1
				}
			}
			s.index++
		} else {
			s.index = 0
		}

	case s.index == len(s.boundary):
		s.index++
		switch c {
		case rule.CR:
			s.flags |= flagPartBoundary
		case rule.HYPHEN:
			s.flags |= flagLastBoundary
		default:
			s.index = 0
			s.flags = 0
		}

	default: // s.index == len(s.boundary)+1
		if s.flags&flagPartBoundary != 0 {
			s.index = 0
			s.flags = 0
			if c == rule.LF {
				s.endPart()
				s.beginPart()
				s.state = scanHeaderStart
				return i
			}
		} else if s.flags&flagLastBoundary != 0 {
			if c == rule.HYPHEN {
				s.endPart()
				s.state = scanEnd
				return i
			}
			s.index = 0
			s.flags = 0
		} else {
			s.index = 0
		}
	}

	if s.index > 0 {
		// Keep the candidate delimiter around in case it turns out to
		// be part data after all.
		s.lookbehind = append(s.lookbehind[:s.index-1], c)
	} else if prevIndex > 0 {
		// False alarm: the partial match was data. Emit it and
		// reconsider c as a possible start of a new match.
		s.emitPartData(s.lookbehind[:prevIndex])
		s.dataMark = i
		i--
	}

	return i
}

// flushPartData emits data pending at the end of a chunk and arranges
// for the next chunk to continue the same part.
func (s *Scanner) flushPartData(buf []byte) {
	if s.dataMark < 0 {
		return
	}
	if s.dataMark < len(buf) {
		s.emitPartData(buf[s.dataMark:])
	}
	s.dataMark = 0
}

func (s *Scanner) emitPartData(data []byte) {
	if s.OnPartData != nil {
		s.OnPartData(data)
	}
}

func (s *Scanner) beginPart() {
	s.headers = Headers{}
	s.field = s.field[:0]
	s.value = s.value[:0]
}

func (s *Scanner) endPart() {
	if s.OnPartEnd != nil {
		s.OnPartEnd()
	}
}

func (s *Scanner) fail(msg string) {
	s.state = scanFailed
	s.err = errors.New(msg)
}

// Snapshot captures the scanner's position. Restoring it and re-feeding
// the same bytes replays the exact same callback sequence, which lets a
// caller retry a chunk that its consumer could not accept.
type Snapshot struct {
	state      scanState
	flags      uint8
	index      int
	dupVirtual int
	dataMark   int
	lookbehind []byte
	headers    Headers
	field      []byte
	value      []byte
	err        error
}

// Snapshot returns a copy of the scanner's position, independent of any
// later scanning.
func (s *Scanner) Snapshot() Snapshot {
	return Snapshot{
		state:      s.state,
		flags:      s.flags,
		index:      s.index,
		dupVirtual: s.dupVirtual,
		dataMark:   s.dataMark,
		lookbehind: append([]byte(nil), s.lookbehind...),
		headers:    s.headers.clone(),
		field:      append([]byte(nil), s.field...),
		value:      append([]byte(nil), s.value...),
		err:        s.err,
	}
}

// Restore rewinds the scanner to a previously captured position. The
// snapshot remains usable afterwards.
func (s *Scanner) Restore(snap Snapshot) {
	s.state = snap.state
	s.flags = snap.flags
	s.index = snap.index
	s.dupVirtual = snap.dupVirtual
	s.dataMark = snap.dataMark
	s.lookbehind = append(s.lookbehind[:0], snap.lookbehind...)
	s.headers = snap.headers.clone()
	s.field = append(s.field[:0], snap.field...)
	s.value = append(s.value[:0], snap.value...)
	s.err = snap.err
}
