package t1

import (
	"errors"
	"fmt"
)

// Sentinel errors the transport surfaces, matching the error kinds from
// the protocol's error-handling design. Wrap these with fmt.Errorf(...%w...)
// or compare with errors.Is.
var (
	ErrTransmit    = errors.New("t1: bus write failed")
	ErrReceive     = errors.New("t1: bus read failed or timed out")
	ErrChecksum    = errors.New("t1: crc mismatch on received block")
	ErrProtocol    = errors.New("t1: protocol error, fatal, interface soft reset required")
	ErrRCode       = errors.New("t1: peer sent R-block with non-zero error field")
	ErrRetryBudget = errors.New("t1: exceeded retransmission budget")
)

// BufferOverrunError is returned by ReceiveAPDU when the response does
// not fit in the caller-supplied buffer. Excess reports how many bytes
// could not be written.
type BufferOverrunError struct {
	Excess int
}

func (e *BufferOverrunError) Error() string {
	return fmt.Sprintf("t1: response exceeds buffer by %d bytes", e.Excess)
}

// RCodeError wraps a non-zero R-block error field observed from the
// peer after the local retry budget is exhausted.
type RCodeError struct {
	Code uint8
}

func (e *RCodeError) Error() string {
	return fmt.Sprintf("t1: r-block error code %d from peer", e.Code)
}

func (e *RCodeError) Unwrap() error { return ErrRCode }
