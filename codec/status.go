package codec

import "fmt"

// SendStatus reports the outcome of asking a source for outgoing data.
type SendStatus uint8

const (
	// SendStatusComplete means there is no further data to send.
	SendStatusComplete SendStatus = iota
	// SendStatusContinue means data was produced and more remains.
	SendStatusContinue
	// SendStatusPause means no data is available right now. Nothing was
	// consumed or produced; the call may be retried with the same
	// arguments.
	SendStatusPause
	// SendStatusAbort means the transfer failed and must not continue.
	SendStatusAbort
)

func (s SendStatus) String() string {
	switch s {
	case SendStatusComplete:
		return "COMPLETE"
	case SendStatusContinue:
		return "CONTINUE"
	case SendStatusPause:
		return "PAUSE"
	case SendStatusAbort:
		return "ABORT"
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
}

// SendResult pairs a send status with the number of bytes produced.
// Size is meaningful only for CONTINUE.
type SendResult struct {
	Status SendStatus
	Size   int
}

var (
	ResultComplete = SendResult{Status: SendStatusComplete}
	ResultPause    = SendResult{Status: SendStatusPause}
	ResultAbort    = SendResult{Status: SendStatusAbort}
)

// ContinueResult returns a CONTINUE result carrying size bytes.
func ContinueResult(size int) SendResult {
	return SendResult{Status: SendStatusContinue, Size: size}
}

// HeaderLinesResult carries the header lines of one outgoing mime part.
// Lines is meaningful only for CONTINUE; COMPLETE means there are no
// more parts.
type HeaderLinesResult struct {
	Status SendStatus
	Lines  []string
}

// ReceiveStatus reports the outcome of offering received data to a
// consumer.
type ReceiveStatus uint8

const (
	// ReceiveStatusSuccess means the data was accepted in full.
	ReceiveStatusSuccess ReceiveStatus = iota
	// ReceiveStatusPause means the data was not (fully) accepted. The
	// same bytes must be offered again later.
	ReceiveStatusPause
	// ReceiveStatusAbort means the transfer failed and must not
	// continue.
	ReceiveStatusAbort
)

func (s ReceiveStatus) String() string {
	switch s {
	case ReceiveStatusSuccess:
		return "SUCCESS"
	case ReceiveStatusPause:
		return "PAUSE"
	case ReceiveStatusAbort:
		return "ABORT"
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
}

// FinishStatus describes how a response ended.
type FinishStatus uint8

const (
	// FinishStatusComplete means the response was received in full.
	FinishStatusComplete FinishStatus = iota
	// FinishStatusTimedOut means the response timed out.
	FinishStatusTimedOut
	// FinishStatusCancelled means the request was cancelled before the
	// response completed.
	FinishStatusCancelled
	// FinishStatusInternalError means the transport failed.
	FinishStatusInternalError
)

func (s FinishStatus) String() string {
	switch s {
	case FinishStatusComplete:
		return "COMPLETE"
	case FinishStatusTimedOut:
		return "TIMED_OUT"
	case FinishStatusCancelled:
		return "CANCELLED"
	case FinishStatusInternalError:
		return "INTERNAL_ERROR"
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
}
