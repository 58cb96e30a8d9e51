package telegram

import (
	"time"
)

// IdentityProvider resolves the buyer behind a request's init data.
type IdentityProvider interface {
	// Identify returns the user, or nil when raw carries none.
	Identify(raw string) (*Identity, error)
}

// Verifier is an IdentityProvider that checks init data signatures. Without
// a bot token it trusts the data as-is, which suits local development.
type Verifier struct {
	botToken string
	maxAge   time.Duration
	nowFunc  func() time.Time
}

// NewVerifier creates a Verifier.
func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	return &Verifier{botToken: botToken, maxAge: maxAge, nowFunc: time.Now}
}

// Enforcing reports whether signatures are checked.
func (v *Verifier) Enforcing() bool {
	return v.botToken != ""
}

// Identify implements IdentityProvider.
func (v *Verifier) Identify(raw string) (*Identity, error) {
	if raw == "" {
		if v.Enforcing() {
			return nil, ErrMissingHash
		}
		return nil, nil
	}

	var (
		d   *InitData
		err error
	)
	if v.Enforcing() {
		d, err = Validate(raw, v.botToken, v.maxAge, v.nowFunc())
	} else {
		d, err = ParseInitData(raw)
	}
	if err != nil {
		return nil, err
	}
	return d.User, nil
}
