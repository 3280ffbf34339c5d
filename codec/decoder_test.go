package codec

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mime-stream/multipart"
)

const testMessage = `{"directive":{"header":{"namespace":"SpeechRecognizer","name":` +
	`"StopCapture","messageId":"4e5612af-e05c-4611-8910-1e23f47ffb41"},` +
	`"payload":{}}}`

func newTestDecoder(t *testing.T, boundary string) (*ResponseDecoder, *stubSink) {
	t.Helper()

	sink := &stubSink{}
	decoder := NewResponseDecoder(sink)
	require.NoError(t, decoder.OnReceiveHeaderLine("content-type:mixed/multipart;boundary="+boundary))
	require.NoError(t, decoder.OnReceiveResponseCode(successResponseCode))
	return decoder, sink
}

func TestDecoderSanity(t *testing.T) {
	const bufferSize = 25

	decoder, sink := newTestDecoder(t, testBoundary)

	pauses, err := decodeAll(decoder, []byte(encodedPayload), bufferSize)
	require.NoError(t, err)
	assert.Zero(t, pauses)

	require.Len(t, sink.parts, 3)
	assert.Equal(t, multipart.Headers{
		"content-type": {"application/xml"},
		"xyz-abc":      {"123243124"},
		"holy-cow":     {"tellmehow"},
	}, sink.parts[0].headers)
	assert.Equal(t, multipart.Headers{
		"content-type": {"plain/text"},
		"x-amzn-id":    {"eg1782ge71g172ge1"},
	}, sink.parts[1].headers)
	assert.Equal(t, multipart.Headers{
		"content-type": {"plain/text"},
	}, sink.parts[2].headers)

	assert.Equal(t, payload1, sink.parts[0].data)
	assert.Equal(t, payload2, sink.parts[1].data)
	assert.Equal(t, payload3, sink.parts[2].data)
	for _, part := range sink.parts {
		assert.True(t, part.closed)
	}
}

func TestDecoderBoundaryHeaderLine(t *testing.T) {
	testcases := []struct {
		desc       string
		headerLine string
		decodes    bool
	}{
		{
			desc:       "plain parameter",
			headerLine: "content-type:mixed/multipart;boundary=tok",
			decodes:    true,
		},
		{
			desc:       "spaced with trailing parameter",
			headerLine: "Content-Type: multipart/related; boundary=tok; charset=UTF-8",
			decodes:    true,
		},
		{
			desc:       "quoted token",
			headerLine: `Content-Type: multipart/related; boundary="tok"`,
			decodes:    true,
		},
		{
			desc:       "empty token",
			headerLine: "content-type:mixed/multipart;boundary=",
			decodes:    false,
		},
		{
			desc:       "token with space",
			headerLine: "content-type:mixed/multipart;boundary=has space",
			decodes:    false,
		},
		{
			desc:       "token over the length limit",
			headerLine: "content-type:mixed/multipart;boundary=" + strings.Repeat("a", 71),
			decodes:    false,
		},
		{
			desc:       "unterminated quote",
			headerLine: `content-type:mixed/multipart;boundary="tok`,
			decodes:    false,
		},
		{
			desc:       "no boundary parameter",
			headerLine: "content-length: 42",
			decodes:    false,
		},
		{
			desc:       "upper-case parameter name",
			headerLine: "content-type:mixed/multipart;BOUNDARY=tok",
			decodes:    false,
		},
		{
			desc:       "multibyte runes before the parameter",
			headerLine: strings.Repeat("Ⱥ", 10) + "boundary=tok",
			decodes:    true,
		},
	}

	stream := []byte("--tok\r\ncontent-type: plain/text\r\n\r\nhello\r\n--tok--\r\n")

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			sink := &stubSink{}
			decoder := NewResponseDecoder(sink)

			require.NoError(t, decoder.OnReceiveHeaderLine(tc.headerLine))
			require.NoError(t, decoder.OnReceiveResponseCode(successResponseCode))

			// The header line always reaches the sink, boundary or not.
			assert.Equal(t, []string{tc.headerLine}, sink.headerLines)

			status := decoder.OnReceiveData(stream)
			if tc.decodes {
				require.Equal(t, ReceiveStatusSuccess, status)
				require.Len(t, sink.parts, 1)
				assert.Equal(t, "hello", sink.parts[0].data)
			} else {
				assert.Equal(t, ReceiveStatusAbort, status)
			}
		})
	}
}

// Only the first header line carrying a boundary parameter counts.
func TestDecoderFirstBoundaryWins(t *testing.T) {
	decoder, sink := newTestDecoder(t, "tok")
	require.NoError(t, decoder.OnReceiveHeaderLine("content-type:mixed/multipart;boundary=other"))

	status := decoder.OnReceiveData(
		[]byte("--tok\r\ncontent-type: plain/text\r\n\r\nhello\r\n--tok--\r\n"))
	require.Equal(t, ReceiveStatusSuccess, status)
	require.Len(t, sink.parts, 1)
	assert.Equal(t, "hello", sink.parts[0].data)
}

// A non-success response carries no multipart body; its bytes go to the
// sink untouched.
func TestDecoderNonSuccessCode(t *testing.T) {
	sink := &stubSink{}
	decoder := NewResponseDecoder(sink)
	require.NoError(t, decoder.OnReceiveResponseCode(403))

	body := `{"error":"INVALID_REQUEST_EXCEPTION"}`
	pauses, err := decodeAll(decoder, []byte(body), 10)
	require.NoError(t, err)

	assert.Zero(t, pauses)
	assert.Equal(t, body, sink.nonMime.String())
	assert.Empty(t, sink.parts)
	assert.Equal(t, 403, sink.code)
}

func TestDecoderNoBoundaryAborts(t *testing.T) {
	sink := &stubSink{}
	decoder := NewResponseDecoder(sink)
	require.NoError(t, decoder.OnReceiveResponseCode(successResponseCode))

	assert.Equal(t, ReceiveStatusAbort, decoder.OnReceiveData([]byte(encodedPayload[:100])))
	// And it stays that way.
	assert.Equal(t, ReceiveStatusAbort, decoder.OnReceiveData([]byte(encodedPayload[:100])))
}

func TestDecoderSinkAbortIsSticky(t *testing.T) {
	decoder, sink := newTestDecoder(t, testBoundary)
	sink.abort = true

	assert.Equal(t, ReceiveStatusAbort, decoder.OnReceiveData([]byte(encodedPayload)))

	sink.abort = false
	assert.Equal(t, ReceiveStatusAbort, decoder.OnReceiveData([]byte(encodedPayload)))
}

func TestDecoderNilSink(t *testing.T) {
	decoder := NewResponseDecoder(nil)

	assert.NoError(t, decoder.OnReceiveResponseCode(successResponseCode))
	assert.NoError(t, decoder.OnReceiveHeaderLine("content-type:mixed/multipart;boundary=tok"))
	decoder.OnResponseFinished(FinishStatusComplete)

	assert.Equal(t, ReceiveStatusAbort, decoder.OnReceiveData([]byte("--tok\r\n")))
}

// The body may open with the bare delimiter or one CRLF before it;
// anything else is malformed. Chunk splits inside the prefix must not
// change the verdict.
func TestDecoderPrefixCases(t *testing.T) {
	testcases := []struct {
		desc    string
		prefix  string
		decodes bool
	}{
		{desc: "empty", prefix: "", decodes: true},
		{desc: "crlf", prefix: "\r\n", decodes: true},
		{desc: "bare cr", prefix: "\r", decodes: false},
		{desc: "bare lf", prefix: "\n", decodes: false},
		{desc: "other byte", prefix: "x", decodes: false},
	}

	body := "--tok\r\nContent-Type: application/json\r\n\r\n" + testMessage + "\r\n--tok--"

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			data := tc.prefix + body

			for _, chunkSize := range []int{1, 2, 3, 7, 25, len(data)} {
				decoder, sink := newTestDecoder(t, "tok")

				status := ReceiveStatusSuccess
				for i := 0; i < len(data) && status == ReceiveStatusSuccess; i += chunkSize {
					end := i + chunkSize
					if end > len(data) {
						end = len(data)
					}
					status = decoder.OnReceiveData([]byte(data[i:end]))
				}

				if tc.decodes {
					require.Equal(t, ReceiveStatusSuccess, status, "chunk size %d", chunkSize)
					require.Len(t, sink.parts, 1, "chunk size %d", chunkSize)
					assert.Equal(t, testMessage, sink.parts[0].data, "chunk size %d", chunkSize)
				} else {
					assert.Equal(t, ReceiveStatusAbort, status, "chunk size %d", chunkSize)
				}
			}
		})
	}
}

// Streams observed in the wild sometimes repeat the delimiter line
// between parts, once or twice, with or without an extra CRLF. Those
// repeats must vanish without producing empty parts.
func TestDecoderDuplicateBoundaries(t *testing.T) {
	const boundary = "84109348-943b-4446-85e6-e73eda9fac43"

	r := rand.New(rand.NewSource(3))
	delim := "--" + boundary
	delimLine := "\r\n" + delim
	header := "Content-Type: application/json"
	normal := header + "\r\n\r\n" + testMessage + delimLine

	filler := func() string {
		return "\r\n" + header + "\r\n\r\n" + randomAlphaString(r, 100) + delimLine
	}

	payload := delimLine
	payload += filler()
	payload += filler()
	payload += "\r\n" + normal
	payload += filler()
	payload += "\r\n" + delim + "\r\n" + normal
	payload += filler()
	payload += "\r\n" + delimLine + "\r\n" + normal
	payload += filler()
	payload += "\r\n" + delim + "\r\n" + delim + "\r\n" + normal
	payload += filler()
	payload += "\r\n" + delimLine + "\r\n" + delimLine + "\r\n" + normal
	payload += filler()
	payload += "--"

	decoder, sink := newTestDecoder(t, boundary)

	pauses, err := decodeAll(decoder, []byte(payload), 25)
	require.NoError(t, err)
	assert.Zero(t, pauses)

	require.Len(t, sink.parts, 12)
	for i, part := range sink.parts {
		if i >= 2 && i%2 == 0 {
			assert.Equal(t, testMessage, part.data, "part %d", i)
		} else {
			assert.NotEqual(t, testMessage, part.data, "part %d", i)
		}
	}
}

// After a pause the transport offers the same chunk again; accepted
// part data must not be delivered twice and nothing may be lost.
func TestDecoderPauseReplay(t *testing.T) {
	decoder, sink := newTestDecoder(t, testBoundary)
	sink.slow = true

	pauses, err := decodeAll(decoder, []byte(encodedPayload), 25)
	require.NoError(t, err)

	assert.Positive(t, pauses)
	assert.Equal(t, pauses, sink.pauseCount)

	require.Len(t, sink.parts, 3)
	assert.Equal(t, payload1, sink.parts[0].data)
	assert.Equal(t, payload2, sink.parts[1].data)
	assert.Equal(t, payload3, sink.parts[2].data)
}

func TestDecoderResponseFinished(t *testing.T) {
	decoder, sink := newTestDecoder(t, testBoundary)

	decoder.OnResponseFinished(FinishStatusCancelled)
	assert.Equal(t, []FinishStatus{FinishStatusCancelled}, sink.finished)
}
