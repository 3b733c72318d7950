package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spruceid/siwe-go"
	"safe-gateway-lite/internal/apperr"
)

type Options struct {
	Token    TokenConfig
	NonceTTL time.Duration
	// Domain, when set, must match the domain line of every SIWE message.
	Domain   string
	Verifier Verifier
	Now      func() time.Time
	Logger   *slog.Logger
}

// Authenticator turns signed SIWE challenges into session credentials.
type Authenticator struct {
	challenges *ChallengeStore
	sessions   *SessionStore
	verifier   Verifier
	token      TokenConfig
	domain     string
	now        func() time.Time
	logger     *slog.Logger
}

func NewAuthenticator(opts Options) *Authenticator {
	if opts.NonceTTL <= 0 {
		opts.NonceTTL = 5 * time.Minute
	}
	if opts.Verifier == nil {
		opts.Verifier = PersonalSignVerifier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Authenticator{
		challenges: NewChallengeStore(opts.NonceTTL),
		sessions:   NewSessionStore(),
		verifier:   opts.Verifier,
		token:      opts.Token,
		domain:     opts.Domain,
		now:        opts.Now,
		logger:     opts.Logger,
	}
}

func (a *Authenticator) IssueChallenge() (Challenge, error) {
	return a.challenges.Issue(a.now())
}

// Authenticate checks a signed SIWE message and returns the new session
// together with its bearer credential. The embedded nonce is redeemed only
// once the signature is valid, and at most once.
func (a *Authenticator) Authenticate(message, signature string) (Session, string, error) {
	now := a.now()

	msg, err := siwe.ParseMessage(strings.TrimSpace(message))
	if err != nil {
		return Session{}, "", apperr.Wrapf(apperr.ErrInvalidChallenge, "malformed SIWE message: %v", err)
	}
	if a.domain != "" && msg.GetDomain() != a.domain {
		return Session{}, "", apperr.Wrap(apperr.ErrInvalidChallenge, "unexpected SIWE domain")
	}
	if ok, err := msg.ValidAt(now); !ok || err != nil {
		return Session{}, "", apperr.Wrap(apperr.ErrInvalidChallenge, "SIWE message not valid at this time")
	}

	sig, err := DecodeSignature(signature)
	if err != nil {
		return Session{}, "", apperr.Wrap(apperr.ErrSignatureMismatch, err.Error())
	}
	subject := msg.GetAddress()
	if err := a.verifier.Verify(message, sig, subject); err != nil {
		return Session{}, "", apperr.Wrap(apperr.ErrSignatureMismatch, err.Error())
	}

	if err := a.challenges.Consume(msg.GetNonce(), now); err != nil {
		return Session{}, "", err
	}

	token, claims, err := CreateToken(subject.Hex(), now, a.token)
	if err != nil {
		return Session{}, "", err
	}
	sess := Session{
		ID:        claims.ID,
		Address:   claims.Address,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	a.sessions.Put(sess)
	a.logger.Debug("session issued", "address", sess.Address, "expiresAt", sess.ExpiresAt)
	return sess, token, nil
}

// Resolve maps a bearer credential to its live session.
func (a *Authenticator) Resolve(credential string) (Session, error) {
	if credential == "" {
		return Session{}, apperr.Wrap(apperr.ErrUnauthorized, "missing credential")
	}
	claims, err := VerifyToken(credential, a.token)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.ErrUnauthorized, "invalid credential")
	}
	return a.sessions.Get(claims.ID, a.now())
}

// Logout revokes the session behind credential. Unknown credentials are ignored.
func (a *Authenticator) Logout(credential string) {
	claims, err := VerifyToken(credential, a.token)
	if err != nil {
		return
	}
	a.sessions.Revoke(claims.ID)
}

// Sweep drops expired challenges and sessions.
func (a *Authenticator) Sweep() {
	now := a.now()
	nonces := a.challenges.Sweep(now)
	sessions := a.sessions.Sweep(now)
	if nonces > 0 || sessions > 0 {
		a.logger.Debug("auth sweep", "nonces", nonces, "sessions", sessions)
	}
}

// RunSweeper calls Sweep every interval until ctx is done.
func (a *Authenticator) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep()
		}
	}
}
