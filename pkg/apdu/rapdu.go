package apdu

import "fmt"

// Status word constants the façade layer checks against after every
// exchange.
const (
	SWSuccess                uint16 = 0x9000
	SWConditionsNotSatisfied uint16 = 0x6985
	SWWrongData              uint16 = 0x6A80
	SWSecurityStatus         uint16 = 0x6982
)

// ResponseAPDU is a decoded response: its TLV list plus SW1SW2. Data
// and sw are produced by the T=1 transport's ReceiveAPDU; ParseResponse
// only concerns itself with the TLV structure of the data portion.
type ResponseAPDU struct {
	TLVs []SimpleTLV
	SW   uint16
}

// ParseResponse decodes data (the APDU payload with SW1SW2 already
// stripped by the transport) as a sequence of simple TLVs, pairing it
// with sw.
func ParseResponse(data []byte, sw uint16) (ResponseAPDU, error) {
	tlvs, err := parseTLVs(data)
	if err != nil {
		return ResponseAPDU{}, err
	}
	return ResponseAPDU{TLVs: tlvs, SW: sw}, nil
}

// Get returns the first TLV carrying tag, if present.
func (r ResponseAPDU) Get(tag byte) (SimpleTLV, bool) {
	for _, tlv := range r.TLVs {
		if tlv.Tag == tag {
			return tlv, true
		}
	}
	return SimpleTLV{}, false
}

// RequireSuccess returns an error unless SW is 0x9000.
func (r ResponseAPDU) RequireSuccess() error {
	if r.SW != SWSuccess {
		return fmt.Errorf("apdu: card returned status word 0x%04x", r.SW)
	}
	return nil
}
