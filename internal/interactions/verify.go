package interactions

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Signature headers sent with every interaction webhook.
const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

var (
	ErrMissingSignature = errors.New("missing signature headers")
	ErrMissingPublicKey = errors.New("public key not configured")
	ErrBadSignature     = errors.New("invalid request signature")
	ErrStaleTimestamp   = errors.New("request timestamp outside allowed window")
)

// Verify reports whether signatureHex is a valid Ed25519 signature by
// publicKeyHex over timestamp || rawBody. Any malformed or missing input
// yields false.
func Verify(rawBody []byte, signatureHex, timestamp, publicKeyHex string) bool {
	if signatureHex == "" || timestamp == "" || publicKeyHex == "" || rawBody == nil {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return false
	}

	msg := make([]byte, 0, len(timestamp)+len(rawBody))
	msg = append(msg, timestamp...)
	msg = append(msg, rawBody...)
	return ed25519.Verify(ed25519.PublicKey(key), msg, sig)
}

// Sign returns the hex signature the platform would send for body at
// timestamp. Used by local tooling and tests.
func Sign(priv ed25519.PrivateKey, timestamp string, body []byte) string {
	msg := append([]byte(timestamp), body...)
	return hex.EncodeToString(ed25519.Sign(priv, msg))
}

// ParsePrivateKey decodes a hex Ed25519 private key, given either as the
// 32-byte seed or the 64-byte expanded form.
func ParsePrivateKey(keyHex string) (ed25519.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}

// Verifier checks inbound requests against the configured public key.
type Verifier struct {
	publicKey string
	maxSkew   time.Duration
	now       func() time.Time
}

// NewVerifier creates a Verifier. An empty publicKeyHex is accepted and
// makes every request fail verification. maxSkew > 0 additionally rejects
// timestamps further than maxSkew from the local clock.
func NewVerifier(publicKeyHex string, maxSkew time.Duration) *Verifier {
	return &Verifier{
		publicKey: strings.TrimSpace(publicKeyHex),
		maxSkew:   maxSkew,
		now:       time.Now,
	}
}

// Configured reports whether a public key is set.
func (v *Verifier) Configured() bool { return v.publicKey != "" }

// VerifyRequest checks the signature headers of r against body, which must
// be the exact bytes read from r.Body.
func (v *Verifier) VerifyRequest(r *http.Request, body []byte) error {
	if v.publicKey == "" {
		return ErrMissingPublicKey
	}
	sig := r.Header.Get(HeaderSignature)
	ts := r.Header.Get(HeaderTimestamp)
	if sig == "" || ts == "" {
		return ErrMissingSignature
	}
	if !Verify(body, sig, ts, v.publicKey) {
		return ErrBadSignature
	}
	if v.maxSkew > 0 && !withinSkew(ts, v.now(), v.maxSkew) {
		return ErrStaleTimestamp
	}
	return nil
}

// withinSkew checks that the unix-seconds timestamp is within skew of now.
func withinSkew(timestamp string, now time.Time, skew time.Duration) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	diff := now.Sub(time.Unix(ts, 0))
	if diff < 0 {
		diff = -diff
	}
	return diff <= skew
}
