package codec

import (
	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"mime-stream/multipart"
	"mime-stream/util/rule"
)

// successResponseCode is the response code under which the body is a
// multipart stream; any other code carries non-mime data.
const successResponseCode = 200

// leadingCRLFCount is how many bytes of newline padding may precede the
// opening delimiter.
const leadingCRLFCount = 2

// ResponseDecoder splits a multipart response body back into parts and
// forwards them to a ResponseSink. The boundary is picked up from the
// response's content-type header line; the transport feeds headers and
// body chunks in as they arrive. Not safe for concurrent use.
type ResponseDecoder struct {
	sink   ResponseSink
	logger log.Logger

	scanner      *multipart.Scanner
	responseCode int
	crlfLeft     int

	status           ReceiveStatus
	index            int
	lastSuccessIndex int
}

// DecoderOption configures a ResponseDecoder.
type DecoderOption func(*ResponseDecoder)

// WithDecoderLogger routes the decoder's diagnostics to logger instead
// of discarding them.
func WithDecoderLogger(logger log.Logger) DecoderOption {
	return func(d *ResponseDecoder) { d.logger = logger }
}

// NewResponseDecoder returns a decoder delivering to sink.
func NewResponseDecoder(sink ResponseSink, opts ...DecoderOption) *ResponseDecoder {
	d := &ResponseDecoder{
		sink:     sink,
		logger:   log.NewNopLogger(),
		crlfLeft: leadingCRLFCount,
		status:   ReceiveStatusSuccess,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// OnReceiveResponseCode records the response code and forwards it to
// the sink. A non-success code switches the decoder to passing the body
// through as non-mime data.
func (d *ResponseDecoder) OnReceiveResponseCode(code int) error {
	d.responseCode = code
	if d.sink == nil {
		d.logger.Log("msg", "dropping response code, no sink attached", "code", code)
		return nil
	}
	return d.sink.OnResponseCode(code)
}

// OnReceiveHeaderLine forwards one response header line to the sink.
// The first line carrying a boundary parameter configures the multipart
// scanner; boundary parameters on later lines are ignored.
func (d *ResponseDecoder) OnReceiveHeaderLine(line string) error {
	if d.scanner == nil {
		if token, ok := extractBoundary(line); ok {
			scanner, err := multipart.NewScanner(token)
			if err != nil {
				return errors.Wrap(err, "configuring multipart scanner")
			}
			scanner.OnPartBegin = d.onPartBegin
			scanner.OnPartData = d.onPartData
			scanner.OnPartEnd = d.onPartEnd
			d.scanner = scanner
		}
	}

	if d.sink == nil {
		d.logger.Log("msg", "dropping header line, no sink attached")
		return nil
	}
	return d.sink.OnHeaderLine(line)
}

// OnReceiveData decodes the next chunk of the response body. SUCCESS
// means the chunk was consumed in full. PAUSE means it was not: the
// decoder rewound to the chunk's start, and the caller must offer the
// same bytes again; part data the sink accepted before the pause is not
// re-delivered on the retry. ABORT is terminal.
func (d *ResponseDecoder) OnReceiveData(p []byte) ReceiveStatus {
	d.index = 0

	if d.status == ReceiveStatusAbort {
		return ReceiveStatusAbort
	}
	if d.sink == nil {
		d.status = ReceiveStatusAbort
		return d.status
	}
	if d.responseCode != successResponseCode {
		d.status = d.sink.OnNonMimeData(p)
		return d.status
	}
	if d.scanner == nil {
		d.logger.Log("msg", "no boundary found in response headers")
		d.status = ReceiveStatusAbort
		return d.status
	}

	crlfMark := d.crlfLeft
	i := 0
	for d.crlfLeft > 0 && i < len(p) {
		switch {
		case d.crlfLeft == 2 && p[i] == rule.CR:
			d.crlfLeft--
			i++
		case d.crlfLeft == 1 && p[i] == rule.LF:
			d.crlfLeft--
			i++
		case d.crlfLeft == 2:
			// No newline padding; the body opens with the delimiter.
			d.crlfLeft = 0
		default:
			d.logger.Log("msg", "stray CR before opening delimiter")
			d.status = ReceiveStatusAbort
			return d.status
		}
	}
	if i == len(p) {
		return ReceiveStatusSuccess
	}

	checkpoint := d.scanner.Snapshot()
	d.status = ReceiveStatusSuccess

	if err := d.scanner.Feed(p[i:]); err != nil {
		d.logger.Log("msg", "malformed mime stream", "err", err)
		d.status = ReceiveStatusAbort
		return d.status
	}

	switch d.status {
	case ReceiveStatusPause:
		// The caller re-offers the same chunk; rewind so the replay
		// starts from the same scan position.
		d.scanner.Restore(checkpoint)
		d.crlfLeft = crlfMark
	case ReceiveStatusSuccess:
		d.lastSuccessIndex = 0
	}

	return d.status
}

// OnResponseFinished reports the end of the response to the sink.
func (d *ResponseDecoder) OnResponseFinished(status FinishStatus) {
	if d.sink == nil {
		d.logger.Log("msg", "dropping response finished, no sink attached",
			"status", status)
		return
	}
	d.sink.OnResponseFinished(status)
}

// deliver numbers the scan event that is firing and reports whether it
// should reach the sink. On a retry after PAUSE, events the sink
// already accepted are skipped; once a pause or abort is recorded,
// everything later in the chunk is skipped too.
func (d *ResponseDecoder) deliver() bool {
	d.index++
	return d.status == ReceiveStatusSuccess && d.index > d.lastSuccessIndex
}

func (d *ResponseDecoder) onPartBegin(headers multipart.Headers) {
	if !d.deliver() {
		return
	}
	if err := d.sink.OnBeginMimePart(headers); err != nil {
		d.logger.Log("msg", "sink rejected mime part", "err", err)
		d.status = ReceiveStatusAbort
		return
	}
	d.lastSuccessIndex = d.index
}

func (d *ResponseDecoder) onPartData(data []byte) {
	if !d.deliver() {
		return
	}
	if status := d.sink.OnMimeData(data); status != ReceiveStatusSuccess {
		d.status = status
		return
	}
	d.lastSuccessIndex = d.index
}

func (d *ResponseDecoder) onPartEnd() {
	if !d.deliver() {
		return
	}
	if err := d.sink.OnEndMimePart(); err != nil {
		d.logger.Log("msg", "sink rejected end of mime part", "err", err)
		d.status = ReceiveStatusAbort
		return
	}
	d.lastSuccessIndex = d.index
}
