package eth

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet signs messages the way browser wallets do. It backs tests and the dev client.
type Wallet struct {
	key *ecdsa.PrivateKey
}

// NewWallet generates a fresh secp256k1 key
func NewWallet() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Wallet{key: key}, nil
}

// Address returns the lowercase 0x-prefixed wallet address
func (w *Wallet) Address() string {
	return strings.ToLower(crypto.PubkeyToAddress(w.key.PublicKey).Hex())
}

// SignText returns the hex personal_sign signature of message with v in {27, 28}
func (w *Wallet) SignText(message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
