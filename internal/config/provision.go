package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Provisioned is the on-disk shape of config.json (spec.md §4.6): the API
// key obtained from the control plane's SIWE login, alongside the wallet
// address and when provisioning happened. Mirrors wallet.Record's
// load-or-generate discipline, but provisioning can be re-run (a new API
// key simply overwrites the old file) since the key itself can expire or
// be revoked independently of the wallet identity.
type Provisioned struct {
	APIKey        string    `json:"api_key"`
	WalletAddress string    `json:"wallet_address"`
	ProvisionedAt time.Time `json:"provisioned_at"`
}

// LoadProvisioned reads config.json at path. A missing file is not an
// error — callers use the zero value to detect "not yet provisioned".
func LoadProvisioned(path string) (*Provisioned, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Provisioned{}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var p Provisioned
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &p, nil
}

// Save writes p to path at mode 0600, the same permission the teacher's
// wallet.json persistence uses for anything that grants API access.
func (p *Provisioned) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// IsProvisioned reports whether p holds a usable API key.
func (p *Provisioned) IsProvisioned() bool {
	return p != nil && p.APIKey != ""
}
