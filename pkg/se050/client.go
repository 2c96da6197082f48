package se050

import (
	"encoding/binary"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/nxpse050/se050go/pkg/apdu"
	"github.com/nxpse050/se050go/pkg/bus"
	"github.com/nxpse050/se050go/pkg/t1"
)

// maxResponseBuf is the receive buffer size every exchange uses: big
// enough for every fixed-size response this façade expects, per the
// short-length APDU path. A larger response fails with
// *t1.BufferOverrunError; the façade has no method taking a caller
// buffer.
const maxResponseBuf = t1.MaxIFSC + 5

// AppInfo is parsed from the GP SELECT response during SelectApplet.
type AppInfo struct {
	AppletVersion    uint32
	Features         uint16
	SecureBoxVersion uint16
}

// ObjectID is a 4-byte SE050 secure object identifier.
type ObjectID [4]byte

// Client is the SE050 operation façade: applet selection, object
// management and crypto one-shots built on top of a t1.Transport.
type Client struct {
	t1  *t1.Transport
	ATR t1.ATR
	App AppInfo
}

// NewClient constructs a façade over a transport on the given bus. Call
// Enable before any other method.
func NewClient(b bus.Bus, cfg t1.Config) *Client {
	return &Client{t1: t1.New(b, cfg)}
}

// Enable performs the interface soft reset and GP applet selection,
// the two steps every session must complete before any SE050 command
// can be exchanged.
func (c *Client) Enable() error {
	atr, err := c.t1.InterfaceSoftReset()
	if err != nil {
		return fmt.Errorf("se050: interface soft reset: %w", err)
	}
	c.ATR = atr
	log.Debugf("[SE050] ATR: %+v", atr)

	info, err := c.SelectApplet()
	if err != nil {
		return fmt.Errorf("se050: select applet: %w", err)
	}
	c.App = info
	log.Debugf("[SE050] app info: %+v", info)
	return nil
}

// exchange sends cmd and returns its parsed response, failing unless
// the card returned SW=0x9000.
func (c *Client) exchange(cmd *apdu.CommandAPDU) (apdu.ResponseAPDU, error) {
	if err := c.t1.SendAPDU(cmd.Bytes()); err != nil {
		return apdu.ResponseAPDU{}, fmt.Errorf("se050: send: %w", err)
	}
	buf := make([]byte, maxResponseBuf)
	data, sw, err := c.t1.ReceiveAPDU(buf)
	if err != nil {
		return apdu.ResponseAPDU{}, fmt.Errorf("se050: receive: %w", err)
	}
	resp, err := apdu.ParseResponse(data, sw)
	if err != nil {
		return apdu.ResponseAPDU{}, err
	}
	if err := resp.RequireSuccess(); err != nil {
		return resp, err
	}
	return resp, nil
}

// SelectApplet issues the ISO 7816-4 GP SELECT for AppletAID and parses
// the 7-byte application info from the response.
func (c *Client) SelectApplet() (AppInfo, error) {
	// SELECT carries a bare AID, not a TLV, so it is built directly
	// rather than through CommandAPDU's TLV-oriented Push.
	le := 0
	cmd := apdu.NewCommandAPDU(apdu.ClassStandardPlain, insSelectFile, 0x04, 0x00, &le)
	if err := c.t1.SendAPDU(selectBytes(cmd, AppletAID)); err != nil {
		return AppInfo{}, fmt.Errorf("se050: send select: %w", err)
	}
	buf := make([]byte, 32)
	data, sw, err := c.t1.ReceiveAPDU(buf)
	if err != nil {
		return AppInfo{}, fmt.Errorf("se050: receive select: %w", err)
	}
	if sw != apdu.SWSuccess || len(data) != 7 {
		return AppInfo{}, fmt.Errorf("se050: select applet failed: sw=0x%04x len=%d", sw, len(data))
	}
	return AppInfo{
		AppletVersion:    uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2]),
		Features:         binary.BigEndian.Uint16(data[3:5]),
		SecureBoxVersion: binary.BigEndian.Uint16(data[5:7]),
	}, nil
}

// selectBytes builds the raw SELECT APDU (header + bare AID + Le),
// bypassing the TLV-oriented CommandAPDU.Push path since SELECT's data
// field is not a simple TLV.
func selectBytes(cmd *apdu.CommandAPDU, aid []byte) []byte {
	out := []byte{byte(cmd.Class), cmd.Ins, cmd.P1, cmd.P2, byte(len(aid))}
	out = append(out, aid...)
	out = append(out, 0x00) // Le=0
	return out
}

// GetRandom requests n random bytes from the card's TRNG.
func (c *Client) GetRandom(n int) ([]byte, error) {
	le := n
	cmd := apdu.NewCommandAPDU(apdu.ClassProprietaryPlain, InsMgmt|InstructionTransient, P1CredDefault, P2Random, &le)
	size := make([]byte, 2)
	binary.BigEndian.PutUint16(size, uint16(n))
	if err := cmd.Push(Tag1, size); err != nil {
		return nil, err
	}
	resp, err := c.exchange(cmd)
	if err != nil {
		return nil, err
	}
	tlv, ok := resp.Get(Tag1)
	if !ok {
		return nil, fmt.Errorf("se050: random response missing tag1")
	}
	return tlv.Data, nil
}

// GenerateKey generates an EC key pair on curve and stores it under the
// caller-chosen object id. One parametrised helper replaces the
// source's one wrapper per curve.
func (c *Client) GenerateKey(id ObjectID, curve Curve) error {
	cmd := apdu.NewCommandAPDU(apdu.ClassProprietaryPlain, InsWrite|InstructionTransient, P1CredEC|P1KeyTypeKeyPair, P2Default, nil)
	if err := cmd.Push(Tag1, id[:]); err != nil {
		return err
	}
	if err := cmd.Push(Tag2, []byte{byte(curve)}); err != nil {
		return err
	}
	_, err := c.exchange(cmd)
	return err
}

// WriteSymmetricKey writes an AES, DES or HMAC key (selected via
// secObjType) under id.
func (c *Client) WriteSymmetricKey(id ObjectID, secObjType byte, key []byte) error {
	var p1 byte
	switch secObjType {
	case SecObjAESKey:
		p1 = P1CredAES
	case SecObjDESKey:
		p1 = P1CredDES
	case SecObjHMACKey:
		p1 = P1CredHMAC
	default:
		return fmt.Errorf("se050: unsupported symmetric secure object type 0x%02x", secObjType)
	}
	cmd := apdu.NewCommandAPDU(apdu.ClassProprietaryPlain, InsWrite|InstructionTransient, p1, P2Default, nil)
	if err := cmd.Push(Tag1, id[:]); err != nil {
		return err
	}
	if err := cmd.Push(Tag2, key); err != nil {
		return err
	}
	_, err := c.exchange(cmd)
	return err
}

// Encrypt performs a one-shot encrypt of plaintext under id using mode.
func (c *Client) Encrypt(id ObjectID, mode CipherMode, plaintext []byte) ([]byte, error) {
	return c.cipherOneshot(id, mode, P2EncryptOneshot, plaintext)
}

// Decrypt performs a one-shot decrypt of ciphertext under id using mode.
func (c *Client) Decrypt(id ObjectID, mode CipherMode, ciphertext []byte) ([]byte, error) {
	return c.cipherOneshot(id, mode, P2DecryptOneshot, ciphertext)
}

// cipherOneshot is the single parametrised helper backing Encrypt and
// Decrypt, collapsing the source's many near-identical
// encrypt_*/decrypt_* per-mode wrappers into one.
func (c *Client) cipherOneshot(id ObjectID, mode CipherMode, p2 byte, in []byte) ([]byte, error) {
	le := 0
	cmd := apdu.NewCommandAPDU(apdu.ClassProprietaryPlain, InsCrypto|InstructionTransient, P1CredCipher, p2, &le)
	if err := cmd.Push(Tag1, id[:]); err != nil {
		return nil, err
	}
	if err := cmd.Push(Tag2, []byte{byte(mode)}); err != nil {
		return nil, err
	}
	if err := cmd.Push(Tag3, in); err != nil {
		return nil, err
	}
	resp, err := c.exchange(cmd)
	if err != nil {
		return nil, err
	}
	out, ok := resp.Get(Tag1)
	if !ok {
		return nil, fmt.Errorf("se050: cipher response missing tag1")
	}
	return out.Data, nil
}

// VerifyUserID authenticates against a UserID secure object.
func (c *Client) VerifyUserID(id ObjectID, pin []byte) error {
	cmd := apdu.NewCommandAPDU(apdu.ClassProprietaryPlain, InsMgmt|InstructionAuthObject, P1CredUserID, P2SessionUserID, nil)
	if err := cmd.Push(Tag1, id[:]); err != nil {
		return err
	}
	if err := cmd.Push(Tag2, pin); err != nil {
		return err
	}
	_, err := c.exchange(cmd)
	return err
}

// Session is a handle returned by OpenSession; CloseSession releases
// it.
type Session struct {
	ID []byte
}

// OpenSession opens an authenticated session against id, returning the
// card-assigned session ID.
func (c *Client) OpenSession(id ObjectID) (Session, error) {
	cmd := apdu.NewCommandAPDU(apdu.ClassProprietaryPlain, InsMgmt|InstructionAuthObject, P1CredDefault, P2SessionCreate, nil)
	if err := cmd.Push(Tag1, id[:]); err != nil {
		return Session{}, err
	}
	resp, err := c.exchange(cmd)
	if err != nil {
		return Session{}, err
	}
	tlv, ok := resp.Get(TagSessionID)
	if !ok {
		return Session{}, fmt.Errorf("se050: open session response missing session id")
	}
	return Session{ID: append([]byte(nil), tlv.Data...)}, nil
}

// CloseSession closes s.
func (c *Client) CloseSession(s Session) error {
	cmd := apdu.NewCommandAPDU(apdu.ClassProprietaryPlain, InsMgmt|InstructionAuthObject, P1CredDefault, P2SessionClose, nil)
	if err := cmd.Push(TagSessionID, s.ID); err != nil {
		return err
	}
	_, err := c.exchange(cmd)
	return err
}

// DeleteObject deletes the secure object identified by id.
func (c *Client) DeleteObject(id ObjectID) error {
	cmd := apdu.NewCommandAPDU(apdu.ClassProprietaryPlain, InsMgmt, P1CredDefault, P2DeleteObject, nil)
	if err := cmd.Push(Tag1, id[:]); err != nil {
		return err
	}
	_, err := c.exchange(cmd)
	return err
}
