package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Verifier checks that sig authenticates msg under pubKey.
type Verifier interface {
	Verify(pubKey, msg, sig []byte) bool
}

// VerifierFunc adapts a plain function to Verifier.
type VerifierFunc func(pubKey, msg, sig []byte) bool

func (f VerifierFunc) Verify(pubKey, msg, sig []byte) bool {
	return f(pubKey, msg, sig)
}

// ECDSAVerifier verifies DER encoded secp256k1 signatures over the double
// sha256 of the message.
type ECDSAVerifier struct{}

func (ECDSAVerifier) Verify(pubKey, msg, sig []byte) bool {
	pk, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return s.Verify(chainhash.DoubleHashB(msg), pk)
}

// Signer produces signatures ECDSAVerifier accepts.
type Signer struct {
	key *btcec.PrivateKey
}

func NewSigner() (*Signer, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &Signer{key: key}, nil
}

// SignerFromBytes rebuilds a signer from a 32 byte secret.
func SignerFromBytes(secret []byte) *Signer {
	key, _ := btcec.PrivKeyFromBytes(secret)
	return &Signer{key: key}
}

// PubKey returns the compressed public key.
func (s *Signer) PubKey() []byte {
	return s.key.PubKey().SerializeCompressed()
}

func (s *Signer) Sign(msg []byte) []byte {
	return ecdsa.Sign(s.key, chainhash.DoubleHashB(msg)).Serialize()
}
