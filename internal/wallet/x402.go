package wallet

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// StablecoinDecimals is fixed at 6 for every network this automaton pays
// on (spec.md §4.6).
const StablecoinDecimals = 6

// Stablecoin contract addresses, keyed by CAIP-2-ish network label. Wire
// details preserved bit-exactly per spec.md §4.6.
var StablecoinAddresses = map[string]string{
	"base":         "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	"base-sepolia": "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
}

// PaymentRequirement is the payload a paid endpoint returns on HTTP 402.
type PaymentRequirement struct {
	Scheme            string
	Network           string // CAIP-2 style network identifier
	MaxAmountRequired  string // atomic units, or human units if it contains a decimal point
	PayTo             string
	Deadline          time.Duration
	StablecoinAddress string
	ChainID           int64
}

// TransferAuthorization is the EIP-3009 struct signed for x402 payments.
type TransferAuthorization struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  int64
	ValidBefore int64
	Nonce       [32]byte
}

// PaymentEnvelope is the JSON structure base64-encoded into the X-Payment
// request header on retry.
type PaymentEnvelope struct {
	X402Version int                 `json:"x402Version"`
	Scheme      string              `json:"scheme"`
	Network     string              `json:"network"`
	Payload     PaymentEnvelopePayload `json:"payload"`
}

type PaymentEnvelopePayload struct {
	Signature     string                `json:"signature"`
	Authorization authorizationJSON     `json:"authorization"`
}

type authorizationJSON struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// parseAmount converts req.MaxAmountRequired into atomic units. A string
// containing a decimal point is treated as human units (e.g. "1.50" USDC)
// and scaled by 10^StablecoinDecimals; otherwise it is already atomic.
func parseAmount(raw string) (*big.Int, error) {
	if !strings.Contains(raw, ".") {
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("wallet: invalid atomic amount %q", raw)
		}
		return v, nil
	}
	f, _, err := big.ParseFloat(raw, 10, 128, big.ToNearestEven)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid human amount %q: %w", raw, err)
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(StablecoinDecimals), nil))
	f.Mul(f, scale)
	v, _ := f.Int(nil)
	return v, nil
}

// BuildPaymentEnvelope signs a TransferWithAuthorization for req and
// produces the base64-encoded X-Payment header value (spec.md §4.6).
func (w *Wallet) BuildPaymentEnvelope(req PaymentRequirement) (string, error) {
	value, err := parseAmount(req.MaxAmountRequired)
	if err != nil {
		return "", err
	}

	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("wallet: generate nonce: %w", err)
	}

	now := time.Now()
	auth := TransferAuthorization{
		From:        w.Address,
		To:          common.HexToAddress(req.PayTo),
		Value:       value,
		ValidAfter:  now.Add(-60 * time.Second).Unix(),
		ValidBefore: now.Add(req.Deadline).Unix(),
		Nonce:       nonce,
	}

	digest, err := hashTransferAuthorization(req, auth)
	if err != nil {
		return "", err
	}
	sig, err := w.SignDigest(digest)
	if err != nil {
		return "", err
	}

	env := PaymentEnvelope{
		X402Version: 1,
		Scheme:      req.Scheme,
		Network:     req.Network,
		Payload: PaymentEnvelopePayload{
			Signature: "0x" + fmt.Sprintf("%x", sig),
			Authorization: authorizationJSON{
				From:        auth.From.Hex(),
				To:          auth.To.Hex(),
				Value:       auth.Value.String(),
				ValidAfter:  strconv.FormatInt(auth.ValidAfter, 10),
				ValidBefore: strconv.FormatInt(auth.ValidBefore, 10),
				Nonce:       "0x" + fmt.Sprintf("%x", auth.Nonce[:]),
			},
		},
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("wallet: encode payment envelope: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// hashTransferAuthorization builds the EIP-712 TypedData for
// TransferWithAuthorization and returns the digest to sign. The domain name
// is fixed to "USD Coin" and version "2" per spec.md §4.6's wire-exact
// requirement — every EIP-3009-compatible stablecoin transfer-authorization
// contract in this deployment shares that domain.
func hashTransferAuthorization(req PaymentRequirement, auth TransferAuthorization) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              "USD Coin",
			Version:           "2",
			ChainId:           math.NewHexOrDecimal256(req.ChainID),
			VerifyingContract: req.StablecoinAddress,
		},
		Message: apitypes.TypedDataMessage{
			"from":        auth.From.Hex(),
			"to":          auth.To.Hex(),
			"value":       auth.Value.String(),
			"validAfter":  strconv.FormatInt(auth.ValidAfter, 10),
			"validBefore": strconv.FormatInt(auth.ValidBefore, 10),
			"nonce":       "0x" + fmt.Sprintf("%x", auth.Nonce[:]),
		},
	}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("wallet: hash typed data: %w", err)
	}
	return digest, nil
}
