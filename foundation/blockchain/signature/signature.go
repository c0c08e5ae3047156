// Package signature provides helper functions for handling the blockchain
// signature needs: content hashing, ECDSA signing and verification, and the
// string encoding of keys and signatures exchanged between nodes.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// avisenStamp is mixed into every signed digest so a signature produced for
// this ledger can't be replayed as a signature over some other system's data.
const avisenStamp = "\x19Avisen Signed Message:\n32"

// ErrInvalidKey is returned when a key string can't be decoded.
var ErrInvalidKey = errors.New("invalid key")

// =============================================================================

// Hash returns the hex encoded SHA-256 digest of the specified data.
func Hash(data string) string {
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// Sign uses the specified private key to sign the payload. The signature is
// returned hex encoded in the [R|S|V] format.
func Sign(privateKey *ecdsa.PrivateKey, payload string) (string, error) {
	if privateKey == nil {
		return "", fmt.Errorf("sign: %w: nil private key", ErrInvalidKey)
	}

	sig, err := crypto.Sign(stamp(payload), privateKey)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}

	return hexutil.Encode(sig), nil
}

// Verify reports whether the signature was produced over the payload by the
// private key matching the specified public key. Any decoding problem with the
// key or signature is reported as a failed verification.
func Verify(publicKey string, payload string, sig string) bool {
	pub, err := decodePublicKey(publicKey)
	if err != nil {
		return false
	}

	sigBytes, err := hexutil.Decode(sig)
	if err != nil || len(sigBytes) != crypto.SignatureLength {
		return false
	}

	// VerifySignature wants the [R|S] part only.
	return crypto.VerifySignature(pub, stamp(payload), sigBytes[:crypto.RecoveryIDOffset])
}

// =============================================================================

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// PublicKeyString returns the compressed, hex encoded form of the public key.
// This is the form publishers are identified by on the chain.
func PublicKeyString(pub ecdsa.PublicKey) string {
	return hexutil.Encode(crypto.CompressPubkey(&pub))
}

// PrivateKeyString returns the hex encoded form of the private key.
func PrivateKeyString(privateKey *ecdsa.PrivateKey) string {
	return hex.EncodeToString(crypto.FromECDSA(privateKey))
}

// ToPrivateKey decodes a hex encoded private key.
func ToPrivateKey(key string) (*ecdsa.PrivateKey, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(key, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}
	return pk, nil
}

// ToPublicKey decodes a hex encoded public key in either the compressed or
// uncompressed form.
func ToPublicKey(key string) (*ecdsa.PublicKey, error) {
	b, err := decodePublicKey(key)
	if err != nil {
		return nil, err
	}

	if len(b) == 33 {
		return crypto.DecompressPubkey(b)
	}
	return crypto.UnmarshalPubkey(b)
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents the payload with the
// Avisen stamp embedded into the final hash.
func stamp(payload string) []byte {
	payloadHash := crypto.Keccak256([]byte(payload))
	return crypto.Keccak256([]byte(avisenStamp), payloadHash)
}

// decodePublicKey decodes the key into bytes and checks it parses as a point
// on the curve.
func decodePublicKey(key string) ([]byte, error) {
	b, err := hexutil.Decode(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}

	switch len(b) {
	case 33:
		if _, err := crypto.DecompressPubkey(b); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
		}
	case 65:
		if _, err := crypto.UnmarshalPubkey(b); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidKey, len(b))
	}

	return b, nil
}
