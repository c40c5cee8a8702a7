package ports

// SignatureVerifier checks that a challenge message was signed by a wallet
type SignatureVerifier interface {
	VerifyAddress(message, signature, address string) error
}
