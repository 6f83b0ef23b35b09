// Package wallet owns the automaton's secp256k1 identity: key generation
// and persistence, SIWE (EIP-4361) login-message signing for control-plane
// provisioning, and EIP-712 TransferWithAuthorization signing for x402
// micropayments (spec.md §4.6). Every signature in this package uses
// github.com/ethereum/go-ethereum/crypto, the same library the rest of the
// pack's Ethereum-facing tooling depends on.
package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Record is the on-disk shape of wallet.json (spec.md §4.6: mode 0600,
// private key plus created_at). It is never overwritten once generated.
type Record struct {
	PrivateKeyHex string    `json:"private_key_hex"`
	Address       string    `json:"address"`
	CreatedAt     time.Time `json:"created_at"`
}

// Wallet holds the loaded secp256k1 key pair and its derived address.
type Wallet struct {
	priv    *ecdsa.PrivateKey
	Address common.Address
}

// Load reads an existing wallet.json at path, or generates a new key pair
// and persists it if none exists. The file is never overwritten on
// subsequent calls — an existing wallet is this automaton's sovereign
// identity and must survive every restart.
func Load(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var rec Record
		if jerr := json.Unmarshal(data, &rec); jerr != nil {
			return nil, fmt.Errorf("wallet: parse %s: %w", path, jerr)
		}
		priv, herr := crypto.HexToECDSA(rec.PrivateKeyHex)
		if herr != nil {
			return nil, fmt.Errorf("wallet: invalid private key in %s: %w", path, herr)
		}
		return &Wallet{priv: priv, Address: crypto.PubkeyToAddress(priv.PublicKey)}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("wallet: read %s: %w", path, err)
	}
	return generate(path)
}

func generate(path string) (*Wallet, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: generate key: %w", err)
	}
	addr := crypto.PubkeyToAddress(priv.PublicKey)

	rec := Record{
		PrivateKeyHex: fmt.Sprintf("%x", crypto.FromECDSA(priv)),
		Address:       addr.Hex(),
		CreatedAt:     time.Now().UTC(),
	}
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("wallet: encode record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("wallet: create parent dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return nil, fmt.Errorf("wallet: write %s: %w", path, err)
	}
	return &Wallet{priv: priv, Address: addr}, nil
}

// SignPersonal signs message per the EIP-191 personal_sign scheme used for
// SIWE authentication: hash = keccak256("\x19Ethereum Signed Message:\n" +
// len(message) + message), then an ECDSA signature over that hash. The
// returned signature has v normalized to {27, 28} as most verifying
// services (and the control plane here) expect.
func (w *Wallet) SignPersonal(message []byte) ([]byte, error) {
	hash := accounts.TextHash(message)
	sig, err := crypto.Sign(hash, w.priv)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign personal message: %w", err)
	}
	normalizeV(sig)
	return sig, nil
}

// SignDigest signs a pre-computed 32-byte digest (used for EIP-712 typed
// data, where the digest already encodes domain separator + struct hash).
func (w *Wallet) SignDigest(digest []byte) ([]byte, error) {
	sig, err := crypto.Sign(digest, w.priv)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign digest: %w", err)
	}
	normalizeV(sig)
	return sig, nil
}

// normalizeV rewrites the recovery id in the last byte of a 65-byte
// signature from go-ethereum's {0,1} convention to Ethereum's historical
// {27,28} convention, which on-chain and off-chain verifiers for
// personal_sign and EIP-712 signatures both expect.
func normalizeV(sig []byte) {
	if len(sig) == 65 && sig[64] < 27 {
		sig[64] += 27
	}
}
