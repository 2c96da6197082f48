// Package t1 implements the ISO/IEC 7816-3 T=1 block transport as
// profiled by GlobalPlatform for I²C (AN12413): framing, CRC,
// sequencing, S-block control flow, R-block error recovery, I-block
// chaining, and the ATR exchange. It is the core of this driver.
package t1

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/nxpse050/se050go/pkg/bus"
)

// MaxRetransmissions is the number of times the same I-block may be
// resent (on R-block error or on a bus read failure) before the
// exchange fails fatally and the caller must perform a fresh interface
// soft reset.
const MaxRetransmissions = 3

// DefaultHostNAD and DefaultCardNAD are the NAD byte conventions this
// driver hard-codes absent configuration, matching the values observed
// on the wire in every worked example of this protocol.
const (
	DefaultHostNAD byte = 0x5A
	DefaultCardNAD byte = 0xA5
)

// Config configures a Transport. A zero HostNAD or CardNAD falls back
// to DefaultHostNAD or DefaultCardNAD; the other fields are used as
// given, except that a zero IFSC makes SendAPDU fragment at MaxIFSC.
type Config struct {
	Addr              uint8 // 7-bit I²C slave address of the secure element
	HostNAD           byte  // defaults to DefaultHostNAD if zero
	CardNAD           byte  // defaults to DefaultCardNAD if zero
	ValidateNAD       bool  // reject blocks whose NAD != CardNAD
	FallbackIFSC      uint16
	FallbackBWTMillis uint16
}

func (c Config) hostNAD() byte {
	if c.HostNAD == 0 {
		return DefaultHostNAD
	}
	return c.HostNAD
}

func (c Config) cardNAD() byte {
	if c.CardNAD == 0 {
		return DefaultCardNAD
	}
	return c.CardNAD
}

// Transport drives one T=1-over-I²C link. It is not safe for concurrent
// use: the link is inherently one-exchange-in-flight, matching the
// protocol's single-threaded, synchronous scheduling model.
type Transport struct {
	bus bus.Bus
	cfg Config

	hostSeq bool
	cardSeq bool
	ifsc    uint16
	bwtMs   uint16

	// pendingWTXMultiplier scales the timeout budget the next block read
	// should be granted, per the WTX handshake. Reset to 1 once consumed.
	// Informational only: this abstraction has no per-call read deadline,
	// so a concrete bus.Bus implementation that wants to honour it must
	// read it back via CurrentTimeoutMs.
	pendingWTXMultiplier uint32
}

// New constructs a Transport over b. Call InterfaceSoftReset before any
// other method; the sequence counters and IFSC are invalid until then.
func New(b bus.Bus, cfg Config) *Transport {
	return &Transport{
		bus:                  b,
		cfg:                  cfg,
		ifsc:                 cfg.FallbackIFSC,
		bwtMs:                cfg.FallbackBWTMillis,
		pendingWTXMultiplier: 1,
	}
}

// IFSC returns the currently negotiated Information Field Size for the
// Card.
func (t *Transport) IFSC() uint16 { return t.ifsc }

// CurrentTimeoutMs returns the block-waiting timeout, in milliseconds,
// that should govern the very next block read: the ATR-declared BWT
// multiplied by any pending WTX factor.
func (t *Transport) CurrentTimeoutMs() uint32 {
	return uint32(t.bwtMs) * t.pendingWTXMultiplier
}

func (t *Transport) consumeWTXMultiplier() {
	t.pendingWTXMultiplier = 1
}

// readBlock reads one complete block: first the 3-byte header to learn
// LEN, then the remaining INF+CRC bytes. Both reads block for as long
// as the bus adapter blocks; CurrentTimeoutMs is not passed to the
// adapter, so no BWT deadline is applied here.
func (t *Transport) readBlock() (Block, error) {
	hdr := make([]byte, HeaderLen)
	if err := t.bus.ReadExact(t.cfg.Addr, hdr); err != nil {
		return Block{}, fmt.Errorf("%w: %v", ErrReceive, err)
	}
	rest := make([]byte, RestLen(hdr[2]))
	if err := t.bus.ReadExact(t.cfg.Addr, rest); err != nil {
		return Block{}, fmt.Errorf("%w: %v", ErrReceive, err)
	}
	raw := make([]byte, 0, len(hdr)+len(rest))
	raw = append(raw, hdr...)
	raw = append(raw, rest...)

	block, err := Unmarshal(raw)
	if err != nil {
		return Block{}, err
	}
	if t.cfg.ValidateNAD && block.NAD != t.cfg.cardNAD() {
		return Block{}, fmt.Errorf("%w: unexpected NAD 0x%02x, want 0x%02x", ErrProtocol, block.NAD, t.cfg.cardNAD())
	}
	return block, nil
}

func (t *Transport) writeBlock(b Block) error {
	raw := Marshal(b)
	if err := t.bus.WriteAll(t.cfg.Addr, raw); err != nil {
		return fmt.Errorf("%w: %v", ErrTransmit, err)
	}
	return nil
}

func (t *Transport) sendS(code SCode, response bool, inf []byte) error {
	b := Block{NAD: t.cfg.hostNAD(), PCB: PCB{Kind: KindS, SCode: code, SResponse: response}, INF: inf}
	log.Debugf("[T1][TX] S(%s, response=%v) % x", code, response, inf)
	return t.writeBlock(b)
}

func (t *Transport) sendR(seq bool, errCode uint8) error {
	b := Block{NAD: t.cfg.hostNAD(), PCB: PCB{Kind: KindR, RSeq: seq, RErr: errCode}}
	log.Debugf("[T1][TX] R(seq=%v, err=%d)", seq, errCode)
	return t.writeBlock(b)
}

func (t *Transport) sendI(seq, more bool, inf []byte) error {
	b := Block{NAD: t.cfg.hostNAD(), PCB: PCB{Kind: KindI, Seq: seq, More: more}, INF: inf}
	log.Debugf("[T1][TX] I(seq=%v, more=%v) %d bytes", seq, more, len(inf))
	return t.writeBlock(b)
}

// InterfaceSoftReset resets transport state and performs the ATR
// exchange: S(InterfaceSoftReset, request) out, S(InterfaceSoftReset,
// response) in, its INF parsed as an ATR. On success both sequence
// counters are reset to 0 and the ATR-declared IFSC/BWT are adopted.
func (t *Transport) InterfaceSoftReset() (ATR, error) {
	if err := t.sendS(SCodeInterfaceSoftReset, false, nil); err != nil {
		return ATR{}, err
	}
	block, err := t.readBlock()
	if err != nil {
		return ATR{}, err
	}
	if block.PCB.Kind != KindS || block.PCB.SCode != SCodeInterfaceSoftReset || !block.PCB.SResponse {
		return ATR{}, fmt.Errorf("%w: expected S(InterfaceSoftReset, response), got %+v", ErrProtocol, block.PCB)
	}
	atr, err := ParseATR(block.INF)
	if err != nil {
		return ATR{}, err
	}

	t.hostSeq = false
	t.cardSeq = false
	t.ifsc = atr.DLLP.IFSC
	if atr.DLLP.BWTMillis != 0 {
		t.bwtMs = atr.DLLP.BWTMillis
	}
	t.pendingWTXMultiplier = 1
	log.Debugf("[T1] interface soft reset ok: ifsc=%d bwt=%dms", t.ifsc, t.bwtMs)
	return atr, nil
}

// Resync resets both sequence counters to 0 without re-reading the ATR.
func (t *Transport) Resync() error {
	if err := t.sendS(SCodeResync, false, nil); err != nil {
		return err
	}
	block, err := t.readBlock()
	if err != nil {
		return err
	}
	if block.PCB.Kind != KindS || block.PCB.SCode != SCodeResync || !block.PCB.SResponse {
		return fmt.Errorf("%w: expected S(Resync, response), got %+v", ErrProtocol, block.PCB)
	}
	t.hostSeq = false
	t.cardSeq = false
	return nil
}

// ProposeIFS sends S(IFS, request) carrying the proposed IFSC value and
// adopts it once the card echoes it back in S(IFS, response).
func (t *Transport) ProposeIFS(ifsc uint8) error {
	if err := t.sendS(SCodeIFS, false, []byte{ifsc}); err != nil {
		return err
	}
	block, err := t.readBlock()
	if err != nil {
		return err
	}
	if block.PCB.Kind != KindS || block.PCB.SCode != SCodeIFS || !block.PCB.SResponse || len(block.INF) != 1 || block.INF[0] != ifsc {
		return fmt.Errorf("%w: expected S(IFS, response) echoing 0x%02x, got %+v %v", ErrProtocol, ifsc, block.PCB, block.INF)
	}
	t.ifsc = uint16(ifsc)
	return nil
}

// EndAPDUSession, ChipReset and GetATRRequest are the remaining request/response
// S-block pairs used at shutdown or for diagnostics; they carry no
// payload semantics beyond request/response matching.
func (t *Transport) endSessionLike(code SCode) error {
	if err := t.sendS(code, false, nil); err != nil {
		return err
	}
	block, err := t.readBlock()
	if err != nil {
		return err
	}
	if block.PCB.Kind != KindS || block.PCB.SCode != code || !block.PCB.SResponse {
		return fmt.Errorf("%w: expected S(%s, response), got %+v", ErrProtocol, code, block.PCB)
	}
	return nil
}

func (t *Transport) EndAPDUSession() error { return t.endSessionLike(SCodeEndAPDUSession) }
func (t *Transport) ChipReset() error      { return t.endSessionLike(SCodeChipReset) }
func (t *Transport) GetATRRequest() error  { return t.endSessionLike(SCodeGetATR) }

// handleWTX replies to a card-initiated WTX request and scales the
// timeout budget for the very next block read. It never advances a
// sequence counter and never counts against the retransmission budget.
func (t *Transport) handleWTX(inf []byte) error {
	if len(inf) != 1 {
		return fmt.Errorf("%w: malformed WTX request payload %v", ErrProtocol, inf)
	}
	multiplier := inf[0]
	if err := t.sendS(SCodeWTX, true, []byte{multiplier}); err != nil {
		return err
	}
	t.pendingWTXMultiplier = uint32(multiplier)
	log.Debugf("[T1] WTX granted: multiplier=%d", multiplier)
	return nil
}

// handleIFS replies to a card-initiated IFS proposal, echoing it back
// and adopting it as the new IFSC. Like handleWTX it never advances a
// sequence counter and never counts against the retransmission budget.
func (t *Transport) handleIFS(inf []byte) error {
	if len(inf) != 1 {
		return fmt.Errorf("%w: malformed IFS request payload %v", ErrProtocol, inf)
	}
	proposed := inf[0]
	if err := t.sendS(SCodeIFS, true, []byte{proposed}); err != nil {
		return err
	}
	t.ifsc = uint16(proposed)
	log.Debugf("[T1] IFS proposed by peer adopted: ifsc=%d", proposed)
	return nil
}

// sendOneIBlock sends a single I-block fragment carrying the current
// hostSeq bit and waits for it to be acknowledged, retrying on
// R-block-error or bus read failure and transparently servicing WTX
// requests in between. On success it flips hostSeq.
func (t *Transport) sendOneIBlock(inf []byte, more bool) error {
	attempt := 0
	for {
		if err := t.sendI(t.hostSeq, more, inf); err != nil {
			return err
		}

		block, err := t.awaitIBlockAck()
		if err != nil {
			if errors.Is(err, ErrRetryBudget) {
				return err
			}
			if errors.Is(err, ErrProtocol) {
				// Fatal per the protocol's error table: no local
				// recovery, not routed through the resend path.
				return err
			}
			attempt++
			if attempt > MaxRetransmissions {
				return fmt.Errorf("%w: %v", ErrRetryBudget, err)
			}
			continue // resend same seq
		}

		if block.PCB.RErr != 0 {
			attempt++
			if attempt > MaxRetransmissions {
				return &RCodeError{Code: block.PCB.RErr}
			}
			continue // resend same seq
		}
		if block.PCB.RSeq != !t.hostSeq {
			return fmt.Errorf("%w: R-block acked unexpected sequence bit", ErrProtocol)
		}
		t.hostSeq = !t.hostSeq
		return nil
	}
}

// awaitIBlockAck reads blocks after an I-block was just sent, servicing
// any number of card-initiated WTX extensions transparently, until it
// sees the R-block that acknowledges (or rejects) the I-block. WTX
// round trips never count against the caller's retransmission budget.
func (t *Transport) awaitIBlockAck() (Block, error) {
	for {
		block, err := t.readBlock()
		if err != nil {
			return Block{}, err
		}
		t.consumeWTXMultiplier()

		switch block.PCB.Kind {
		case KindR:
			return block, nil

		case KindS:
			if block.PCB.SCode == SCodeWTX && !block.PCB.SResponse {
				if err := t.handleWTX(block.INF); err != nil {
					return Block{}, err
				}
				continue
			}
			if block.PCB.SCode == SCodeIFS && !block.PCB.SResponse {
				if err := t.handleIFS(block.INF); err != nil {
					return Block{}, err
				}
				continue
			}
			return Block{}, fmt.Errorf("%w: unexpected S-block while awaiting I-block ack: %+v", ErrProtocol, block.PCB)

		default:
			return Block{}, fmt.Errorf("%w: unexpected block kind while awaiting I-block ack", ErrProtocol)
		}
	}
}

// SendAPDU fragments apduBytes into I-blocks of at most the negotiated
// IFSC and sends them in sequence, per the protocol's chaining rule.
func (t *Transport) SendAPDU(apduBytes []byte) error {
	ifsc := int(t.ifsc)
	if ifsc == 0 {
		ifsc = MaxIFSC
	}

	if len(apduBytes) == 0 {
		return t.sendOneIBlock(nil, false)
	}

	for offset := 0; offset < len(apduBytes); {
		end := offset + ifsc
		more := true
		if end >= len(apduBytes) {
			end = len(apduBytes)
			more = false
		}
		if err := t.sendOneIBlock(apduBytes[offset:end], more); err != nil {
			return err
		}
		offset = end
	}
	return nil
}

// ReceiveAPDU reads I-blocks from the card into buf until the final
// (more-bit clear) fragment, acknowledging every non-final fragment
// with an R-block. The trailing two payload bytes of the reassembled
// stream are SW1SW2; the rest is returned as response data aliasing
// buf. If the response does not fit in buf, it returns
// *BufferOverrunError reporting the excess.
func (t *Transport) ReceiveAPDU(buf []byte) ([]byte, uint16, error) {
	written := 0
	attempt := 0

	for {
		block, err := t.readBlock()
		if err != nil {
			if errIsChecksum(err) {
				if sendErr := t.sendR(t.cardSeq, 1); sendErr != nil {
					return nil, 0, sendErr
				}
				attempt++
				if attempt >= MaxRetransmissions {
					return nil, 0, fmt.Errorf("%w: repeated checksum errors on receive", ErrRetryBudget)
				}
				continue
			}
			if errors.Is(err, ErrProtocol) {
				return nil, 0, err
			}
			attempt++
			if attempt >= MaxRetransmissions {
				return nil, 0, err
			}
			continue
		}
		t.consumeWTXMultiplier()

		if block.PCB.Kind == KindS && block.PCB.SCode == SCodeWTX && !block.PCB.SResponse {
			if err := t.handleWTX(block.INF); err != nil {
				return nil, 0, err
			}
			continue
		}

		if block.PCB.Kind == KindS && block.PCB.SCode == SCodeIFS && !block.PCB.SResponse {
			if err := t.handleIFS(block.INF); err != nil {
				return nil, 0, err
			}
			continue
		}

		if block.PCB.Kind != KindI {
			return nil, 0, fmt.Errorf("%w: expected I-block during receive, got %+v", ErrProtocol, block.PCB)
		}

		if block.PCB.Seq != t.cardSeq {
			// Duplicate retransmission of an already-acknowledged block:
			// our previous ack must have been lost. Re-ack without
			// re-appending its payload.
			if err := t.sendR(t.cardSeq, 0); err != nil {
				return nil, 0, err
			}
			attempt++
			if attempt >= MaxRetransmissions {
				return nil, 0, fmt.Errorf("%w: peer kept retransmitting an already-acked block", ErrRetryBudget)
			}
			continue
		}

		if written+len(block.INF) > len(buf) {
			return nil, 0, &BufferOverrunError{Excess: written + len(block.INF) - len(buf)}
		}
		copy(buf[written:], block.INF)
		written += len(block.INF)
		t.cardSeq = !t.cardSeq
		attempt = 0

		if block.PCB.More {
			if err := t.sendR(t.cardSeq, 0); err != nil {
				return nil, 0, err
			}
			continue
		}

		if written < 2 {
			return nil, 0, fmt.Errorf("%w: final fragment shorter than SW1SW2", ErrProtocol)
		}
		sw := uint16(buf[written-2])<<8 | uint16(buf[written-1])
		return buf[:written-2], sw, nil
	}
}

func errIsChecksum(err error) bool {
	return errors.Is(err, ErrChecksum)
}
