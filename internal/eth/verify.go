package eth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletauth/core"
)

// SignatureLength is the size of an r || s || v secp256k1 signature
const SignatureLength = crypto.SignatureLength

// Verifier recovers personal_sign (EIP-191) signers. It holds no state.
type Verifier struct{}

// NewVerifier creates a signature verifier
func NewVerifier() Verifier {
	return Verifier{}
}

// VerifyAddress checks that signature over message was produced by address
func (Verifier) VerifyAddress(message, signature, address string) error {
	return VerifyAddress([]byte(message), signature, address)
}

// RecoverAddress decodes a hex signature and recovers the signer of the EIP-191
// digest of message. Wallets emit v as 27/28; both that and the raw 0/1 form are accepted.
func RecoverAddress(message []byte, signature string) (string, error) {
	if !strings.HasPrefix(signature, "0x") && !strings.HasPrefix(signature, "0X") {
		signature = "0x" + signature
	}
	sig, err := hexutil.Decode(strings.ToLower(signature[:2]) + signature[2:])
	if err != nil {
		return "", fmt.Errorf("failed to decode signature: %w", core.ErrSignatureUnparseable)
	}
	if len(sig) != SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes: %w", SignatureLength, core.ErrSignatureUnparseable)
	}

	// Copy so the caller's buffer is left untouched when v is normalized
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	switch v := normalized[crypto.RecoveryIDOffset]; v {
	case 0, 1:
	case 27, 28:
		normalized[crypto.RecoveryIDOffset] = v - 27
	default:
		return "", fmt.Errorf("invalid recovery id %d: %w", v, core.ErrSignatureUnparseable)
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), normalized)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", core.ErrSignatureUnparseable)
	}

	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// VerifyAddress checks that signature over message was produced by address
func VerifyAddress(message []byte, signature, address string) error {
	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		return err
	}
	if !strings.EqualFold(recovered, address) {
		return core.ErrSignatureAddressMismatch
	}
	return nil
}
