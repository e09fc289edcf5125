package realtime

import (
	"crypto/sha256"
	"encoding/hex"
	"net"

	"github.com/google/uuid"
)

// IdentityFunc derives a stable device identifier from the peer address and
// the client-reported signature string. The derivation is configurable
// because peer addresses behind proxies collapse distinct devices together.
type IdentityFunc func(remoteAddr, signature string) string

// PeerSignatureIdentity hashes the peer host together with the client
// signature. The ephemeral port is stripped so reconnects from the same
// device map to the same identifier; separate browser tabs on one machine
// share one.
func PeerSignatureIdentity(remoteAddr, signature string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	sum := sha256.Sum256([]byte(host + "|" + signature))
	return hex.EncodeToString(sum[:])[:16]
}

// ConnectionIdentity issues a fresh identifier per transport, treating every
// connection as its own device. Useful behind address-rewriting proxies.
func ConnectionIdentity(string, string) string {
	return uuid.NewString()
}

// IdentityForStrategy maps a configured strategy name to its derivation.
// Unknown names fall back to the peer-signature derivation.
func IdentityForStrategy(strategy string) IdentityFunc {
	if strategy == "connection" {
		return ConnectionIdentity
	}
	return PeerSignatureIdentity
}
