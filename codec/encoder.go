package codec

import (
	"fmt"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	bytesutil "mime-stream/util/bytes"
	"mime-stream/util/rule"
)

type encoderState uint8

const (
	stateNew encoderState = iota
	stateGettingFirstPartHeaders
	stateSendingFirstBoundary
	stateSendingPartHeaders
	stateSendingPartData
	stateSendingEndBoundary
	stateGettingNthPartHeaders
	stateSendingCRLFAfterBoundary
	stateSendingTerminatingDashes
	stateDone
	stateAbort
)

func (s encoderState) String() string {
	switch s {
	case stateNew:
		return "NEW"
	case stateGettingFirstPartHeaders:
		return "GETTING_1ST_PART_HEADERS"
	case stateSendingFirstBoundary:
		return "SENDING_1ST_BOUNDARY"
	case stateSendingPartHeaders:
		return "SENDING_PART_HEADERS"
	case stateSendingPartData:
		return "SENDING_PART_DATA"
	case stateSendingEndBoundary:
		return "SENDING_END_BOUNDARY"
	case stateGettingNthPartHeaders:
		return "GETTING_NTH_PART_HEADERS"
	case stateSendingCRLFAfterBoundary:
		return "SENDING_CRLF_AFTER_BOUNDARY"
	case stateSendingTerminatingDashes:
		return "SENDING_TERMINATING_DASHES"
	case stateDone:
		return "DONE"
	case stateAbort:
		return "ABORT"
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
}

// encoderTransitions is the set of legal state changes. Anything not
// listed here is a programming error and aborts the request.
var encoderTransitions = map[encoderState][]encoderState{
	stateNew:                      {stateGettingFirstPartHeaders},
	stateGettingFirstPartHeaders:  {stateSendingFirstBoundary, stateDone, stateAbort},
	stateSendingFirstBoundary:     {stateSendingPartHeaders},
	stateSendingPartHeaders:       {stateSendingPartData},
	stateSendingPartData:          {stateSendingEndBoundary, stateAbort},
	stateSendingEndBoundary:       {stateGettingNthPartHeaders},
	stateGettingNthPartHeaders:    {stateSendingCRLFAfterBoundary, stateSendingTerminatingDashes, stateAbort},
	stateSendingCRLFAfterBoundary: {stateSendingPartHeaders},
	stateSendingTerminatingDashes: {stateDone},
}

// RequestEncoder serializes the parts supplied by a RequestSource into
// one multipart request body, filling whatever buffers the transport
// hands it. It performs no I/O of its own and is not safe for
// concurrent use.
type RequestEncoder struct {
	source   RequestSource
	generate BoundaryGenerator
	boundary string
	prefixed string // "\r\n--" + boundary

	state   encoderState
	cursor  bytesutil.Cursor
	headers HeaderLinesResult
	line    int

	logger log.Logger
}

// EncoderOption configures a RequestEncoder.
type EncoderOption func(*RequestEncoder)

// WithEncoderLogger routes the encoder's diagnostics to logger instead
// of discarding them.
func WithEncoderLogger(logger log.Logger) EncoderOption {
	return func(e *RequestEncoder) { e.logger = logger }
}

// WithBoundaryGenerator draws the boundary from gen instead of
// [RandomBoundary].
func WithBoundaryGenerator(gen BoundaryGenerator) EncoderOption {
	return func(e *RequestEncoder) { e.generate = gen }
}

// WithBoundary uses the given boundary token verbatim.
func WithBoundary(token string) EncoderOption {
	return WithBoundaryGenerator(func() string { return token })
}

// NewRequestEncoder returns an encoder that serializes the parts of
// source, delimited by a freshly generated boundary. A nil source
// encodes an empty body.
func NewRequestEncoder(source RequestSource, opts ...EncoderOption) (*RequestEncoder, error) {
	e := &RequestEncoder{
		source:   source,
		generate: RandomBoundary,
		state:    stateNew,
		logger:   log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.boundary = e.generate()
	if !rule.IsValidBoundary(e.boundary) {
		return nil, errors.Errorf("invalid boundary token: %q", e.boundary)
	}
	e.prefixed = string(rule.CRLF) + "--" + e.boundary

	return e, nil
}

// Boundary returns the boundary token delimiting the encoded parts.
func (e *RequestEncoder) Boundary() string { return e.boundary }

// RequestHeaderLines returns the source's request header lines plus the
// content-type line announcing the boundary.
func (e *RequestEncoder) RequestHeaderLines() []string {
	if e.source == nil {
		return nil
	}
	return append(e.source.RequestHeaderLines(), contentTypeBoundaryPrefix+e.boundary)
}

// OnSendData fills buf with the next bytes of the encoded body.
// CONTINUE carries the number of bytes written; PAUSE means nothing was
// written and the call should be repeated with the same arguments;
// COMPLETE means the body ended before this call wrote anything; ABORT
// is terminal.
func (e *RequestEncoder) OnSendData(buf []byte) SendResult {
	if e.source == nil {
		return ResultComplete
	}

	e.cursor.NextBuffer()

	for {
		switch e.state {
		case stateNew:
			e.setState(stateGettingFirstPartHeaders)

		case stateGettingFirstPartHeaders:
			e.headers = e.source.MimePartHeaderLines()
			switch e.headers.Status {
			case SendStatusContinue:
				e.cursor.Rewind()
				e.setState(stateSendingFirstBoundary)
			case SendStatusPause:
				return e.pauseResult()
			case SendStatusComplete:
				e.setState(stateDone)
				return e.continueResult()
			default:
				e.setState(stateAbort)
				return ResultAbort
			}

		case stateSendingFirstBoundary:
			if !e.cursor.CopyTextCRLF(buf, e.prefixed) {
				return e.continueResult()
			}
			e.line = 0
			e.cursor.Rewind()
			e.setState(stateSendingPartHeaders)

		case stateSendingPartHeaders:
			for e.line < len(e.headers.Lines) {
				if !e.cursor.CopyTextCRLF(buf, e.headers.Lines[e.line]) {
					return e.continueResult()
				}
				e.line++
				e.cursor.Rewind()
			}
			// Blank line separating headers from part data.
			if !e.cursor.CopyText(buf, string(rule.CRLF)) {
				return e.continueResult()
			}
			e.cursor.Rewind()
			e.setState(stateSendingPartData)

		case stateSendingPartData:
			remaining := e.cursor.Remaining(buf)
			if len(remaining) == 0 {
				return e.continueResult()
			}
			result := e.source.SendMimePartData(remaining)
			switch result.Status {
			case SendStatusContinue:
				if result.Size > len(remaining) {
					e.logger.Log("msg", "source overran the part data buffer",
						"size", result.Size, "capacity", len(remaining))
					e.setState(stateAbort)
					return ResultAbort
				}
				e.cursor.Advance(result.Size)
				if len(e.cursor.Remaining(buf)) == 0 {
					return e.continueResult()
				}
			case SendStatusPause:
				return e.pauseResult()
			case SendStatusComplete:
				e.cursor.Rewind()
				e.setState(stateSendingEndBoundary)
			default:
				e.setState(stateAbort)
				return ResultAbort
			}

		case stateSendingEndBoundary:
			if !e.cursor.CopyText(buf, e.prefixed) {
				return e.continueResult()
			}
			e.setState(stateGettingNthPartHeaders)

		case stateGettingNthPartHeaders:
			e.headers = e.source.MimePartHeaderLines()
			switch e.headers.Status {
			case SendStatusContinue:
				e.cursor.Rewind()
				e.setState(stateSendingCRLFAfterBoundary)
			case SendStatusPause:
				return e.pauseResult()
			case SendStatusComplete:
				e.cursor.Rewind()
				e.setState(stateSendingTerminatingDashes)
			default:
				e.setState(stateAbort)
				return ResultAbort
			}

		case stateSendingCRLFAfterBoundary:
			if !e.cursor.CopyText(buf, string(rule.CRLF)) {
				return e.continueResult()
			}
			e.line = 0
			e.cursor.Rewind()
			e.setState(stateSendingPartHeaders)

		case stateSendingTerminatingDashes:
			if e.cursor.CopyTextCRLF(buf, "--") {
				e.setState(stateDone)
			}
			return e.continueResult()

		case stateDone:
			return ResultComplete

		default: // stateAbort
			return ResultAbort
		}
	}
}

// pauseResult turns a source PAUSE into the right caller-facing result:
// a true PAUSE only when this call produced nothing, otherwise a
// partial CONTINUE so the produced bytes are not lost.
func (e *RequestEncoder) pauseResult() SendResult {
	if e.cursor.Written() != 0 {
		return e.continueResult()
	}
	return ResultPause
}

func (e *RequestEncoder) continueResult() SendResult {
	return ContinueResult(e.cursor.Written())
}

func (e *RequestEncoder) setState(next encoderState) {
	if next == e.state {
		return
	}
	for _, allowed := range encoderTransitions[e.state] {
		if next == allowed {
			e.state = next
			return
		}
	}
	e.logger.Log("msg", "illegal encoder state transition",
		"from", e.state, "to", next)
	e.state = stateAbort
}
