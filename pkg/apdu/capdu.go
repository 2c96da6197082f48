package apdu

import "io"

// Class is the APDU class byte, per AN12413 §4.3.
type Class uint8

const (
	ClassStandardPlain     Class = 0b0000_0000
	ClassProprietaryPlain  Class = 0b1000_0000
	ClassProprietarySecure Class = 0b1000_0100
)

// CommandAPDU is an SE050 command APDU under construction: a 4-byte
// header, up to MaxTLVs data TLVs, and an optional expected response
// length (Le). It does not own a contiguous wire buffer; Cursor walks
// it field-by-field without materialising the whole APDU. The T=1
// layer does not consume a Cursor: t1.Transport.SendAPDU takes the
// complete APDU as one byte slice, which callers obtain from Bytes.
type CommandAPDU struct {
	Class Class
	Ins   byte
	P1    byte
	P2    byte
	Le    *int

	tlvs       []SimpleTLV
	payloadLen int
}

// NewCommandAPDU constructs an empty command APDU. le, if non-nil,
// requests le bytes of response data (0 requests "as much as the card
// will give").
func NewCommandAPDU(class Class, ins, p1, p2 byte, le *int) *CommandAPDU {
	return &CommandAPDU{Class: class, Ins: ins, P1: p1, P2: p2, Le: le}
}

// Push appends a TLV to the command's payload.
func (c *CommandAPDU) Push(tag byte, data []byte) error {
	if len(c.tlvs) >= MaxTLVs {
		return ErrTooManyTLVs
	}
	tlv := SimpleTLV{Tag: tag, Data: data}
	c.tlvs = append(c.tlvs, tlv)
	c.payloadLen += tlv.totalLen()
	return nil
}

// isExtended reports whether the payload or Le require extended
// (3-byte) length encoding rather than the 1-byte short form.
func (c *CommandAPDU) isExtended() bool {
	if c.payloadLen > 255 {
		return true
	}
	if c.Le != nil && *c.Le > 255 {
		return true
	}
	return false
}

func (c *CommandAPDU) header() []byte {
	h := []byte{byte(c.Class), c.Ins, c.P1, c.P2}
	if c.payloadLen == 0 {
		return h
	}
	if c.isExtended() {
		return append(h, 0x00, byte(c.payloadLen>>8), byte(c.payloadLen))
	}
	return append(h, byte(c.payloadLen))
}

func (c *CommandAPDU) trailer() []byte {
	if c.Le == nil {
		return nil
	}
	le := *c.Le
	if c.isExtended() {
		return []byte{0x00, byte(le >> 8), byte(le)}
	}
	return []byte{byte(le)}
}

// Bytes serialises the whole command APDU into one contiguous buffer,
// the form t1.Transport.SendAPDU accepts.
func (c *CommandAPDU) Bytes() []byte {
	out := make([]byte, 0, c.payloadLen+10)
	out = append(out, c.header()...)
	for _, tlv := range c.tlvs {
		out = tlv.appendTo(out)
	}
	out = append(out, c.trailer()...)
	return out
}

// Cursor is a lazy byte-stream reader over a CommandAPDU: it produces
// the header, each TLV's header and data in turn, then the trailer,
// without ever assembling them into one buffer. Grounded on the
// section-index walk the firmware's own APDU encoder uses to stream a
// command straight into fixed-size I-block fragments.
type Cursor struct {
	header  []byte
	tlvs    []SimpleTLV
	trailer []byte

	section int // 0=header, 1..2n=TLV headers/data interleaved, last=trailer
	off     int
}

// NewCursor constructs a Cursor over c. c must not be mutated while the
// cursor is in use.
func NewCursor(c *CommandAPDU) *Cursor {
	return &Cursor{
		header:  c.header(),
		tlvs:    c.tlvs,
		trailer: c.trailer(),
	}
}

// currentSlice returns the byte slice the cursor is currently walking,
// or nil once every section has been exhausted.
func (cu *Cursor) currentSlice() []byte {
	switch {
	case cu.section == 0:
		return cu.header
	case cu.section <= 2*len(cu.tlvs) && cu.section%2 == 1:
		return cu.tlvs[cu.section/2].header()
	case cu.section <= 2*len(cu.tlvs):
		return cu.tlvs[(cu.section-1)/2].Data
	case cu.section == 2*len(cu.tlvs)+1:
		return cu.trailer
	default:
		return nil
	}
}

// Next returns the next byte and true, or (0, false) once the command
// APDU is fully consumed.
func (cu *Cursor) Next() (byte, bool) {
	slice := cu.currentSlice()
	if slice == nil || cu.off >= len(slice) {
		return 0, false
	}
	b := slice[cu.off]
	cu.off++
	for {
		if s := cu.currentSlice(); s != nil && cu.off < len(s) {
			break
		}
		cu.off = 0
		cu.section++
		if cu.section > 2*len(cu.tlvs)+1 {
			break
		}
	}
	return b, true
}

// Read implements io.Reader by pulling bytes one at a time from Next;
// it lets a CommandAPDU be streamed through anything that accepts an
// io.Reader (e.g. for hashing) without a prior full serialisation.
func (cu *Cursor) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, ok := cu.Next()
		if !ok {
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		p[n] = b
		n++
	}
	return n, nil
}
