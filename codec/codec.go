package codec

import "mime-stream/multipart"

// RequestSource supplies the outgoing side of a multipart exchange: the
// request header lines, then per part the part's header lines and the
// part's data. Implementations are driven by a RequestEncoder and never
// block; when data is not ready yet they answer PAUSE and will be asked
// again with the same arguments.
type RequestSource interface {
	// RequestHeaderLines returns header lines to include in the
	// request, without line terminators.
	RequestHeaderLines() []string

	// MimePartHeaderLines returns the header lines of the next part to
	// send, CONTINUE to start that part, COMPLETE when there are no
	// more parts, PAUSE to be asked again, or ABORT to fail the
	// request.
	MimePartHeaderLines() HeaderLinesResult

	// SendMimePartData fills buf with the next data of the current
	// part. CONTINUE reports how much of buf was filled; COMPLETE ends
	// the part (any such call consumed nothing); PAUSE produced
	// nothing and will be retried; ABORT fails the request.
	SendMimePartData(buf []byte) SendResult
}

// ResponseSink consumes the incoming side of a multipart exchange.
// Implementations never block: data that cannot be accepted right now
// is answered with PAUSE and offered again later, byte for byte the
// same.
//
// Byte slices passed to OnMimeData and OnNonMimeData are only valid for
// the duration of the call.
type ResponseSink interface {
	// OnResponseCode reports the response code. A non-nil error fails
	// the response.
	OnResponseCode(code int) error

	// OnHeaderLine reports one response header line. A non-nil error
	// fails the response.
	OnHeaderLine(line string) error

	// OnBeginMimePart reports the start of a part and its headers. A
	// non-nil error fails the response.
	OnBeginMimePart(headers multipart.Headers) error

	// OnMimeData offers part data.
	OnMimeData(data []byte) ReceiveStatus

	// OnEndMimePart reports the end of the current part. A non-nil
	// error fails the response.
	OnEndMimePart() error

	// OnNonMimeData offers body data of a response that is not a
	// multipart stream, such as an error response.
	OnNonMimeData(data []byte) ReceiveStatus

	// OnResponseFinished reports that no further notifications will
	// follow, and why.
	OnResponseFinished(status FinishStatus)
}
