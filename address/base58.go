package address

import (
	"errors"

	"github.com/mr-tron/base58"
	"github.com/rubin-dev/cashcore/consensus"
)

// Base58 version bytes (spec.md §4.B).
const (
	VersionPubKeyHash byte = 0x00
	VersionScriptHash byte = 0x05
)

var (
	errBase58TooLong   = errors.New("address: base58 string too long")
	errBase58BadLength = errors.New("address: base58 decoded payload has the wrong length")
	errBase58Checksum  = errors.New("address: base58 checksum mismatch")
)

const maxBase58Len = 55

// DecodeBase58Check decodes a Base58Check string, grounded on the
// mr-tron/base58 codec (carried into the pack by torrejonv-teranode's
// go.mod) plus the standard version-byte + 4-byte double-SHA-256
// checksum framing.
func DecodeBase58Check(s string) (version byte, payload []byte, err error) {
	if len(s) > maxBase58Len {
		return 0, nil, errBase58TooLong
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return 0, nil, err
	}
	if len(decoded) != 25 {
		return 0, nil, errBase58BadLength
	}
	body, checksum := decoded[:21], decoded[21:]
	want := consensus.DoubleSHA256(body)
	for i := 0; i < 4; i++ {
		if checksum[i] != want[i] {
			return 0, nil, errBase58Checksum
		}
	}
	return body[0], body[1:], nil
}

// EncodeBase58Check encodes version and a 20-byte hash as Base58Check.
func EncodeBase58Check(version byte, hash160 []byte) string {
	body := make([]byte, 0, 21)
	body = append(body, version)
	body = append(body, hash160...)
	checksum := consensus.DoubleSHA256(body)
	body = append(body, checksum[:4]...)
	return base58.Encode(body)
}
