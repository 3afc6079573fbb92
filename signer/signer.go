// Package signer implements the concrete, swappable signature provider
// used to sign and verify block headers and claims, and the partial/
// threshold signature scheme the scheduler and DKG engine operate on.
//
// spec.md §1 places "signature primitive (BLS threshold suite) beyond its
// abstract interface" out of scope: callers only ever depend on the
// Provider and QuorumProvider interfaces declared here. The concrete implementation
// is grounded on github.com/decred/dcrd/dcrec/secp256k1/v4, an indirect
// dependency of bsv-blockchain-teranode and a direct one of
// EXCCoin-exccd's own secp256k1 fork (exccec/secp256k1), both present in
// the retrieved pack.
package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	pocerrors "github.com/pocnode/core/errors"
)

func hexEncode(b []byte) string { return hex.EncodeToString(b) }

func hexDecode(s string) ([]byte, error) { return hex.DecodeString(s) }

// KeyPair is a secp256k1 signing key pair, hex-encoded for storage in
// Claim/header fields.
type KeyPair struct {
	Priv *secp256k1.PrivateKey
}

// GenerateKeyPair returns a fresh random key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, pocerrors.New(pocerrors.ErrUnknown, "failed to generate key pair", err)
	}
	return &KeyPair{Priv: priv}, nil
}

// PubKeyHex returns the compressed, hex-encoded public key.
func (k *KeyPair) PubKeyHex() string {
	return hexEncode(k.Priv.PubKey().SerializeCompressed())
}

// PrivKeyHex returns the hex-encoded private scalar. Exists for tests and
// for wiring a claim's signing key end to end; production deployments
// would keep this behind a key-management collaborator, which is out of
// scope here (spec.md §1: "signature primitive ... beyond its abstract
// interface").
func (k *KeyPair) PrivKeyHex() string {
	return hexEncode(k.Priv.Serialize())
}

// Provider is the abstract signing/verification collaborator every
// component in this module depends on, standing in for the real BLS
// threshold suite spec.md places out of scope.
type Provider interface {
	// Sign returns a detached signature over message using the key
	// identified by privKeyHex.
	Sign(privKeyHex string, message []byte) (string, error)

	// Verify reports whether sig is a valid signature over message under
	// pubKeyHex.
	Verify(pubKeyHex string, message []byte, sig string) bool
}

// QuorumProvider extends Provider with the partial-signature and
// aggregation operations the scheduler's CertifyTxn job depends on,
// standing in for the real BLS threshold combination spec.md §1 places
// out of scope ("signature primitive ... beyond its abstract
// interface"). AggregatePartial here folds the supplied partial
// signature set into a single deterministic digest rather than
// performing real cryptographic threshold combination: it is a
// commitment over "these exact shares were present", not a signature a
// third party could verify against a single quorum public key — a real
// deployment would swap this for BLS/FROST aggregation. The shares are
// not verified before they are folded in.
type QuorumProvider interface {
	Provider

	// GeneratePartialSignature is an alias for Sign kept distinct so
	// callers reading the scheduler code see the same vocabulary as the
	// original's sig_provider.generate_partial_signature.
	GeneratePartialSignature(privKeyHex string, message []byte) (string, error)

	// AggregatePartial combines per-member partial signatures, keyed by
	// quorum member index, into the job's threshold signature.
	AggregatePartial(shares map[uint16]string) (string, error)
}

// ECDSAQuorumProvider is the concrete QuorumProvider used throughout
// this module's tests and wiring.
type ECDSAQuorumProvider struct {
	ECDSAProvider
}

func NewECDSAQuorumProvider() *ECDSAQuorumProvider { return &ECDSAQuorumProvider{} }

func (p *ECDSAQuorumProvider) GeneratePartialSignature(privKeyHex string, message []byte) (string, error) {
	return p.Sign(privKeyHex, message)
}

func (p *ECDSAQuorumProvider) AggregatePartial(shares map[uint16]string) (string, error) {
	if len(shares) == 0 {
		return "", pocerrors.New(pocerrors.ErrUnknown, "no partial signatures to aggregate")
	}

	indices := make([]uint16, 0, len(shares))
	for idx := range shares {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	h := sha256.New()
	for _, idx := range indices {
		idxBytes := []byte{byte(idx >> 8), byte(idx)}
		h.Write(idxBytes)
		h.Write([]byte(shares[idx]))
	}

	return hexEncode(h.Sum(nil)), nil
}

// ECDSAProvider is the concrete Provider backed by secp256k1/ecdsa.
type ECDSAProvider struct{}

func NewECDSAProvider() *ECDSAProvider { return &ECDSAProvider{} }

func (ECDSAProvider) Sign(privKeyHex string, message []byte) (string, error) {
	privBytes, err := hexDecode(privKeyHex)
	if err != nil {
		return "", pocerrors.New(pocerrors.ErrUnknown, "invalid private key hex", err)
	}

	priv := secp256k1.PrivKeyFromBytes(privBytes)
	hash := sha256.Sum256(message)
	sig := ecdsa.Sign(priv, hash[:])

	return hexEncode(sig.Serialize()), nil
}

func (ECDSAProvider) Verify(pubKeyHex string, message []byte, sigHex string) bool {
	pubBytes, err := hexDecode(pubKeyHex)
	if err != nil {
		return false
	}
	pubKey, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}

	sigBytes, err := hexDecode(sigHex)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}

	hash := sha256.Sum256(message)
	return sig.Verify(hash[:], pubKey)
}
