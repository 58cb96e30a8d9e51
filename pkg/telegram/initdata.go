// Package telegram reads the buyer identity a Telegram mini-app passes in
// its init data.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/carlot/internal/model"
)

var (
	// ErrMissingHash is returned when init data carries no signature.
	ErrMissingHash = eris.New("telegram: init data has no hash")
	// ErrBadSignature is returned when the signature does not match the bot token.
	ErrBadSignature = eris.New("telegram: init data signature mismatch")
	// ErrExpired is returned when auth_date is older than the allowed age.
	ErrExpired = eris.New("telegram: init data expired")
)

// Identity is the Telegram user who opened the mini-app.
type Identity struct {
	ID           int64  `json:"id"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// ProfileLink returns a link that opens a chat with the user.
func (i Identity) ProfileLink() string {
	if i.Username != "" {
		return "https://t.me/" + i.Username
	}
	if i.ID != 0 {
		return "tg://user?id=" + strconv.FormatInt(i.ID, 10)
	}
	return ""
}

// Submitter converts the identity into the inquiry's user block. Unknown
// values stay nil so they serialize as null.
func (i Identity) Submitter() model.Submitter {
	var s model.Submitter
	if i.ID != 0 {
		id := i.ID
		s.UserID = &id
	}
	s.Username = optional(i.Username)
	s.FirstName = optional(i.FirstName)
	s.LastName = optional(i.LastName)
	s.UserLink = optional(i.ProfileLink())
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// InitData is the decoded init data query string.
type InitData struct {
	User     *Identity
	AuthDate time.Time
	QueryID  string
	Hash     string
	values   url.Values
}

// ParseInitData decodes raw init data without checking its signature.
func ParseInitData(raw string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, eris.Wrap(err, "telegram: parse init data")
	}

	d := &InitData{
		QueryID: values.Get("query_id"),
		Hash:    values.Get("hash"),
		values:  values,
	}

	if u := values.Get("user"); u != "" {
		var id Identity
		if err := json.Unmarshal([]byte(u), &id); err != nil {
			return nil, eris.Wrap(err, "telegram: decode user")
		}
		d.User = &id
	}

	if ad := values.Get("auth_date"); ad != "" {
		secs, err := strconv.ParseInt(ad, 10, 64)
		if err != nil {
			return nil, eris.Wrap(err, "telegram: parse auth_date")
		}
		d.AuthDate = time.Unix(secs, 0).UTC()
	}
	return d, nil
}

// DataCheckString is the newline-joined, key-sorted key=value list the hash
// signs, with the hash itself left out.
func (d *InitData) DataCheckString() string {
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + d.values.Get(k)
	}
	return strings.Join(pairs, "\n")
}

// Sign computes the hex signature of data for botToken.
func Sign(dataCheckString, botToken string) string {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate parses raw and checks its signature and age. maxAge <= 0 skips
// the age check.
func Validate(raw, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	d, err := ParseInitData(raw)
	if err != nil {
		return nil, err
	}
	if d.Hash == "" {
		return nil, ErrMissingHash
	}

	want := Sign(d.DataCheckString(), botToken)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(d.Hash))) {
		return nil, ErrBadSignature
	}

	if maxAge > 0 && (d.AuthDate.IsZero() || now.Sub(d.AuthDate) > maxAge) {
		return nil, ErrExpired
	}
	return d, nil
}
