// Package se050 is the operation façade over pkg/t1 and pkg/apdu: GP
// applet selection, key/object management, crypto one-shots and
// session control, expressed as named Go methods instead of the
// source's one-function-per-curve/cipher sprawl.
package se050

// Instruction mask bits, AN12413 Table 18.
const (
	InstructionTransient  byte = 0x80
	InstructionAuthObject byte = 0x40
	InstructionAttest     byte = 0x20
)

// Instruction base codes, AN12413 Table 19 (mask 0x1f).
const (
	InsWrite          byte = 0x01
	InsRead           byte = 0x02
	InsCrypto         byte = 0x03
	InsMgmt           byte = 0x04
	InsProcess        byte = 0x05
	InsImportExternal byte = 0x06
)

// P1 key-type bits, AN12413 Table 21 (mask 0x60).
const (
	P1KeyTypeKeyPair byte = 0x60
	P1KeyTypePrivate byte = 0x40
	P1KeyTypePublic  byte = 0x20
)

// P1 credential-type codes, AN12413 Table 22.
const (
	P1CredDefault byte = 0x00
	P1CredEC      byte = 0x01
	P1CredRSA     byte = 0x02
	P1CredAES     byte = 0x03
	P1CredDES     byte = 0x04
	P1CredHMAC    byte = 0x05
	P1CredBinary  byte = 0x06
	P1CredUserID  byte = 0x07
	P1CredCounter byte = 0x08
	P1CredCurve   byte = 0x0B
	P1CredCipher  byte = 0x0E
)

// P2 parameter codes, AN12413 Table 23 (the subset this façade exercises).
const (
	P2Default        byte = 0x00
	P2Generate       byte = 0x03
	P2Create         byte = 0x04
	P2Sign           byte = 0x09
	P2Verify         byte = 0x0A
	P2SessionCreate  byte = 0x1B
	P2SessionClose   byte = 0x1C
	P2SessionUserID  byte = 0x2C
	P2EncryptOneshot byte = 0x37
	P2DecryptOneshot byte = 0x38
	P2DeleteObject   byte = 0x28
	P2Random         byte = 0x49
)

// Secure object types, AN12413 Table 24.
const (
	SecObjECKeyPair byte = 0x01
	SecObjAESKey    byte = 0x09
	SecObjDESKey    byte = 0x0A
	SecObjUserID    byte = 0x0C
	SecObjHMACKey   byte = 0x11
)

// TLV tags, AN12413 Table 27.
const (
	TagSessionID       byte = 0x10
	TagPolicy          byte = 0x11
	TagImportAuthData  byte = 0x13
	Tag1               byte = 0x41
	Tag2               byte = 0x42
	Tag3               byte = 0x43
	Tag4               byte = 0x44
	Tag5               byte = 0x45
)

// Curve is the ECC curve byte carried in Tag2 for key generation, the
// collapsed replacement for the source's per-curve generate_* wrappers.
type Curve byte

const (
	CurveNISTP192        Curve = 0x01
	CurveNISTP224        Curve = 0x02
	CurveNISTP256        Curve = 0x03
	CurveNISTP384        Curve = 0x04
	CurveNISTP521        Curve = 0x05
	CurveBrainpoolP256R1 Curve = 0x09
	CurveSecp256k1       Curve = 0x0C
)

// CipherMode is the cipher-mode byte for the Encrypt/Decrypt one-shot
// operations, the collapsed replacement for the source's per-mode
// encrypt_*/decrypt_* wrappers.
type CipherMode byte

const (
	CipherAESCBCNoPad     CipherMode = 0x0D
	CipherAESECBNoPad     CipherMode = 0x0E
	CipherDESCBCNoPad     CipherMode = 0x01
	CipherDESCBCISO9797M1 CipherMode = 0x02
	CipherDESCBCISO9797M2 CipherMode = 0x03
)

// AppletAID is the SE050 JCOP applet's Application ID, selected once
// per session via SelectApplet.
var AppletAID = []byte{
	0xA0, 0x00, 0x00, 0x03, 0x96, 0x54, 0x53, 0x00,
	0x00, 0x00, 0x01, 0x03, 0x00, 0x00, 0x00, 0x00,
}

// insSelectFile is the ISO 7816-4 standard instruction used for GP
// applet selection, distinct from the SE050-proprietary instruction set.
const insSelectFile byte = 0xA4
