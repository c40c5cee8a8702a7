package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// AuthService handles authentication business logic for one realm
type AuthService struct {
	cfg       Config
	tokenizer ports.Tokenizer
	users     ports.UserDirectory
	verifier  ports.SignatureVerifier
	eventPub  ports.EventPublisher
	logger    *slog.Logger
	clock     func() time.Time

	nonces *NonceExchange
	ledger *RevocationLedger
	issuer *TokenIssuer
	guard  *Guard
}

// NewAuthService creates a new authentication service
func NewAuthService(
	cfg Config,
	tokenizer ports.Tokenizer,
	store ports.Store,
	users ports.UserDirectory,
	verifier ports.SignatureVerifier,
	eventPub ports.EventPublisher,
	logger *slog.Logger,
) *AuthService {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	s := &AuthService{
		cfg:       cfg,
		tokenizer: tokenizer,
		users:     users,
		verifier:  verifier,
		eventPub:  eventPub,
		logger:    logger.With("realm", cfg.Realm.Name),
		clock:     time.Now,
	}

	s.nonces = NewNonceExchange(store, cfg.Realm, cfg.Product, cfg.NonceTTL, s.now)
	s.ledger = NewRevocationLedger(store, cfg.Realm, s.now)
	s.issuer = NewTokenIssuer(tokenizer, s.ledger, cfg.AccessTTL, cfg.RefreshTTL, s.now)
	s.guard = NewGuard(cfg.Realm, tokenizer, s.ledger, users)

	return s
}

// WithClock replaces the time source of the service and its components
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.clock = now
	return s
}

func (s *AuthService) now() time.Time { return s.clock() }

// Realm returns the realm the service was configured for
func (s *AuthService) Realm() Realm { return s.cfg.Realm }

// Guard returns the access guard of the realm
func (s *AuthService) Guard() *Guard { return s.guard }

// Ledger returns the revocation ledger of the realm
func (s *AuthService) Ledger() *RevocationLedger { return s.ledger }

// GenerateNonce issues a login challenge for walletAddress
func (s *AuthService) GenerateNonce(ctx context.Context, walletAddress string) (core.Challenge, error) {
	return s.nonces.Generate(ctx, walletAddress)
}

// Login verifies the signed challenge for walletAddress and opens a new token family
func (s *AuthService) Login(ctx context.Context, walletAddress, signature string) (core.TokenPair, error) {
	address, err := core.NormalizeAddress(walletAddress)
	if err != nil {
		return core.TokenPair{}, err
	}

	// Consuming first makes the nonce single-use no matter how verification ends
	challenge, err := s.nonces.Consume(ctx, address)
	if err != nil {
		return core.TokenPair{}, err
	}

	if err := s.verifier.VerifyAddress(challenge.Message, signature, address); err != nil {
		return core.TokenPair{}, fmt.Errorf("signature verification failed: %w", err)
	}

	user, err := s.users.FindOrCreateByWallet(ctx, address)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to resolve user: %w", err)
	}
	if err := s.admit(user); err != nil {
		return core.TokenPair{}, err
	}

	familyID := uuid.NewString()
	pair, err := s.issuer.Issue(ctx, user, familyID, "")
	if err != nil {
		return core.TokenPair{}, err
	}

	s.logger.InfoContext(ctx, "wallet login", "user_id", user.ID, "address", address, "family_id", familyID)
	s.publish(ctx, "login", func() error {
		return s.eventPub.PublishLogin(ctx, ports.LoginEvent{
			Realm:    s.cfg.Realm.Name,
			UserID:   user.ID,
			Address:  address,
			FamilyID: familyID,
		})
	})

	return pair, nil
}

// Refresh rotates a refresh token. Only the current head of a live family may rotate;
// presenting any older token of the family revokes the whole family.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (core.TokenPair, error) {
	claims, err := s.tokenizer.RefreshTokenToClaims(refreshToken)
	if err != nil {
		return core.TokenPair{}, err
	}
	if claims.Subject == "" || claims.FamilyID == "" || claims.TokenID == "" {
		return core.TokenPair{}, core.ErrRefreshTokenMalformed
	}

	revoked, err := s.ledger.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return core.TokenPair{}, err
	}
	head, alive, err := s.ledger.FamilyHead(ctx, claims.FamilyID)
	if err != nil {
		return core.TokenPair{}, err
	}

	switch {
	case revoked && alive && head != claims.TokenID:
		// A consumed token replayed while its family lives on
		return core.TokenPair{}, s.reuseDetected(ctx, claims)
	case revoked:
		return core.TokenPair{}, core.ErrRefreshTokenRevoked
	case !alive:
		return core.TokenPair{}, core.ErrFamilyInvalid
	case head != claims.TokenID:
		return core.TokenPair{}, s.reuseDetected(ctx, claims)
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, core.ErrUserNotFound) {
		return core.TokenPair{}, core.ErrUserInactive
	}
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.admit(user); err != nil {
		return core.TokenPair{}, err
	}

	pair, err := s.issuer.Issue(ctx, user, claims.FamilyID, claims.TokenID)
	if errors.Is(err, core.ErrFamilyHeadMoved) {
		// A concurrent request rotated this token first
		return core.TokenPair{}, s.reuseDetected(ctx, claims)
	}
	if err != nil {
		return core.TokenPair{}, err
	}

	// Consume the old token. The head has already moved past it, so a failure here
	// still leaves it unusable: any replay takes the reuse branch.
	if err := s.ledger.Revoke(ctx, claims.TokenID, s.cfg.RefreshTTL); err != nil {
		s.logger.WarnContext(ctx, "failed to blacklist rotated refresh token",
			"family_id", claims.FamilyID, "jti", claims.TokenID, "error", err)
	}

	return pair, nil
}

// reuseDetected wipes the family and blacklists the replayed token before reporting the reuse
func (s *AuthService) reuseDetected(ctx context.Context, claims *core.Claims) error {
	s.logger.ErrorContext(ctx, "refresh token reuse detected, revoking family",
		"security_event", "refresh_token_reuse",
		"user_id", claims.Subject,
		"family_id", claims.FamilyID,
		"jti", claims.TokenID,
	)

	if err := s.ledger.RevokeFamily(ctx, claims.FamilyID); err != nil {
		return errors.Join(core.ErrReuseDetected, err)
	}
	if err := s.ledger.Revoke(ctx, claims.TokenID, s.cfg.RefreshTTL); err != nil {
		return errors.Join(core.ErrReuseDetected, err)
	}

	s.publish(ctx, "reuse", func() error {
		return s.eventPub.PublishReuseDetected(ctx, ports.ReuseEvent{
			Realm:    s.cfg.Realm.Name,
			UserID:   claims.Subject,
			FamilyID: claims.FamilyID,
			TokenID:  claims.TokenID,
		})
	})

	return core.ErrReuseDetected
}

// Logout revokes the caller's access token for the rest of its life and, when a refresh
// token of the same user is supplied, the whole family it belongs to
func (s *AuthService) Logout(ctx context.Context, principal *core.Principal, refreshToken string) error {
	access := principal.Claims
	if err := s.ledger.RevokeUntil(ctx, access.TokenID, access.ExpiresAt); err != nil {
		return err
	}

	event := ports.LogoutEvent{
		Realm:   s.cfg.Realm.Name,
		UserID:  access.Subject,
		TokenID: access.TokenID,
	}

	if refreshToken != "" {
		refresh, err := s.tokenizer.DecodeRefreshToken(refreshToken)
		switch {
		case err != nil:
			s.logger.DebugContext(ctx, "ignoring undecodable refresh token on logout", "error", err)
		case refresh.Subject != access.Subject:
			s.logger.WarnContext(ctx, "ignoring refresh token of another user on logout",
				"user_id", access.Subject, "token_subject", refresh.Subject)
		default:
			if err := s.ledger.RevokeFamily(ctx, refresh.FamilyID); err != nil {
				return err
			}
			if err := s.ledger.RevokeUntil(ctx, refresh.TokenID, refresh.ExpiresAt); err != nil {
				return err
			}
			event.FamilyID = refresh.FamilyID
		}
	}

	s.logger.InfoContext(ctx, "logout", "user_id", access.Subject, "jti", access.TokenID, "family_id", event.FamilyID)
	s.publish(ctx, "logout", func() error {
		return s.eventPub.PublishLogout(ctx, event)
	})

	return nil
}

// RevokeFamily ends every session of familyID on behalf of an operator
func (s *AuthService) RevokeFamily(ctx context.Context, familyID, operatorID string) error {
	if familyID == "" {
		return core.ErrFamilyInvalid
	}
	if err := s.ledger.RevokeFamily(ctx, familyID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "family revoked by operator", "family_id", familyID, "operator_id", operatorID)
	return nil
}

// admit checks that user may hold a session in the realm
func (s *AuthService) admit(user *core.User) error {
	if user == nil || !user.Active {
		return core.ErrUserInactive
	}
	if !s.cfg.Realm.Permits(user.Role) {
		return core.ErrInsufficientRole
	}
	return nil
}

// publish emits an event without letting a broker failure fail the request
func (s *AuthService) publish(ctx context.Context, kind string, fn func() error) {
	if s.eventPub == nil {
		return
	}
	if err := fn(); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event", kind, "error", err)
	}
}
