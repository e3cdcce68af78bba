package encoding

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/MonetizedMCP/starter-kit-template/x402"
)

func testPayment() x402.PaymentPayload {
	return x402.PaymentPayload{
		X402Version: 2,
		Resource: &x402.ResourceInfo{
			URL:         "mcp://tools/make-purchase",
			Description: "Get Salutation",
		},
		Accepted: x402.PaymentRequirements{
			Scheme:            "exact",
			Network:           "eip155:8453",
			Amount:            "100",
			Asset:             "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			PayTo:             "0x1234567890123456789012345678901234567890",
			MaxTimeoutSeconds: 60,
		},
		Payload: map[string]interface{}{
			"signature": "0xabcdef",
			"authorization": map[string]interface{}{
				"from":        "0x857b06519E91e3A54538791bDbb0E22373e36b66",
				"to":          "0x1234567890123456789012345678901234567890",
				"value":       "100",
				"validAfter":  "0",
				"validBefore": "1900000000",
				"nonce":       "0x01",
			},
		},
	}
}

func TestEncodeDecodePayment(t *testing.T) {
	original := testPayment()

	encoded, err := EncodePayment(original)
	if err != nil {
		t.Fatalf("EncodePayment() error = %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(encoded); err != nil {
		t.Errorf("EncodePayment() result is not valid base64: %v", err)
	}

	decoded, err := DecodePayment(encoded)
	if err != nil {
		t.Fatalf("DecodePayment() error = %v", err)
	}

	if decoded.X402Version != original.X402Version {
		t.Errorf("X402Version = %d; want %d", decoded.X402Version, original.X402Version)
	}
	if decoded.Accepted.Amount != original.Accepted.Amount {
		t.Errorf("Accepted.Amount = %s; want %s", decoded.Accepted.Amount, original.Accepted.Amount)
	}
	if decoded.Resource == nil || decoded.Resource.URL != original.Resource.URL {
		t.Errorf("Resource = %+v; want %+v", decoded.Resource, original.Resource)
	}
}

func TestDecodePayment_Alphabets(t *testing.T) {
	raw, err := json.Marshal(testPayment())
	if err != nil {
		t.Fatal(err)
	}

	inputs := map[string]string{
		"std":        base64.StdEncoding.EncodeToString(raw),
		"url":        base64.URLEncoding.EncodeToString(raw),
		"raw url":    base64.RawURLEncoding.EncodeToString(raw),
		"whitespace": "  " + base64.StdEncoding.EncodeToString(raw) + "\n",
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := DecodePayment(in)
			if err != nil {
				t.Fatalf("DecodePayment() error = %v", err)
			}
			if got.Accepted.Network != "eip155:8453" {
				t.Errorf("Accepted.Network = %s", got.Accepted.Network)
			}
		})
	}
}

func TestDecodePayment_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not base64", "!!!not-base64!!!"},
		{"not json", base64.StdEncoding.EncodeToString([]byte("hello"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePayment(tt.input)
			if !errors.Is(err, x402.ErrMalformedHeader) {
				t.Errorf("DecodePayment() error = %v; want ErrMalformedHeader", err)
			}
		})
	}
}

func TestDecodeEVMPayload(t *testing.T) {
	evm, err := DecodeEVMPayload(testPayment())
	if err != nil {
		t.Fatalf("DecodeEVMPayload() error = %v", err)
	}
	if evm.Signature != "0xabcdef" {
		t.Errorf("Signature = %s", evm.Signature)
	}
	if evm.Authorization.Value != "100" {
		t.Errorf("Authorization.Value = %s", evm.Authorization.Value)
	}

	if _, err := DecodeEVMPayload(x402.PaymentPayload{}); !errors.Is(err, x402.ErrMalformedHeader) {
		t.Errorf("DecodeEVMPayload(empty) error = %v; want ErrMalformedHeader", err)
	}
}
