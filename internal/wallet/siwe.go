package wallet

import (
	"fmt"
	"strings"
	"time"
)

// SIWEMessage holds the fields of an EIP-4361 Sign-In-With-Ethereum message.
// Field order and labels in String() are fixed by the EIP-4361 ABNF grammar;
// a verifying control plane parses the serialized form back into the same
// digest, so the layout must not drift.
type SIWEMessage struct {
	Domain    string
	Address   string // checksummed EVM address
	Statement string
	URI       string
	Version   string
	ChainID   int64
	Nonce     string
	IssuedAt  time.Time
}

// String renders the message in the exact EIP-4361 textual form that gets
// signed with SignPersonal. Every optional field named in spec.md §4.6 is
// present: domain, address, statement, URI, version, chain id, nonce,
// issued-at.
func (m SIWEMessage) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s wants you to sign in with your Ethereum account:\n", m.Domain)
	fmt.Fprintf(&b, "%s\n\n", m.Address)
	fmt.Fprintf(&b, "%s\n\n", m.Statement)
	fmt.Fprintf(&b, "URI: %s\n", m.URI)
	fmt.Fprintf(&b, "Version: %s\n", m.Version)
	fmt.Fprintf(&b, "Chain ID: %d\n", m.ChainID)
	fmt.Fprintf(&b, "Nonce: %s\n", m.Nonce)
	fmt.Fprintf(&b, "Issued At: %s", m.IssuedAt.UTC().Format(time.RFC3339))
	return b.String()
}

// SignIn builds and signs a SIWE message for the given nonce, returning
// both the serialized message (submitted alongside the signature) and the
// signature bytes themselves.
func (w *Wallet) SignIn(domain, statement, uri, version string, chainID int64, nonce string) (message string, signature []byte, err error) {
	msg := SIWEMessage{
		Domain:    domain,
		Address:   w.Address.Hex(),
		Statement: statement,
		URI:       uri,
		Version:   version,
		ChainID:   chainID,
		Nonce:     nonce,
		IssuedAt:  time.Now(),
	}
	serialized := msg.String()
	sig, err := w.SignPersonal([]byte(serialized))
	if err != nil {
		return "", nil, err
	}
	return serialized, sig, nil
}
