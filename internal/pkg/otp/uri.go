package otp

import (
	"net/url"
	"strings"

	"github.com/pquerna/otp"
)

const scheme = "otpauth://"

// Key is the account material carried by an otpauth URI.
type Key struct {
	Issuer  string
	Account string
	Secret  string
}

// DisplayName joins issuer and account into a single label. When the account
// already mentions the issuer it is used as is, otherwise the account is put
// in parentheses after the issuer.
func (k Key) DisplayName() string {
	switch {
	case k.Issuer == "":
		return k.Account
	case k.Account == "":
		return k.Issuer
	case strings.Contains(k.Account, k.Issuer):
		return k.Account
	default:
		return k.Issuer + " (" + k.Account + ")"
	}
}

// BuildURI renders k as otpauth://totp/{Issuer}:{Account}?secret=..&issuer=..
// The secret is written in its normalized form so that decoding it yields the
// original key bytes.
func BuildURI(k Key) (string, error) {
	secret, err := NormalizeSecret(k.Secret)
	if err != nil {
		return "", err
	}

	label := escape(k.Account)
	if k.Issuer != "" {
		label = escape(k.Issuer) + ":" + label
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("totp/")
	b.WriteString(label)
	b.WriteString("?secret=")
	b.WriteString(secret)
	if k.Issuer != "" {
		b.WriteString("&issuer=")
		b.WriteString(escape(k.Issuer))
	}

	return b.String(), nil
}

// ParseURI reads an otpauth URI produced by an authenticator app or by
// BuildURI. The secret is returned normalized.
func ParseURI(raw string) (Key, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToLower(raw), scheme) {
		return Key{}, &InvalidURIError{Reason: "scheme must be otpauth"}
	}

	key, err := otp.NewKeyFromURL(raw)
	if err != nil {
		return Key{}, &InvalidURIError{Reason: err.Error()}
	}
	if !strings.EqualFold(key.Type(), "totp") {
		return Key{}, &InvalidURIError{Reason: "only totp keys are supported"}
	}
	if strings.TrimSpace(key.Secret()) == "" {
		return Key{}, &InvalidURIError{Reason: "secret parameter is missing"}
	}

	secret, err := NormalizeSecret(key.Secret())
	if err != nil {
		return Key{}, err
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Key{}, &InvalidURIError{Reason: err.Error()}
	}

	label := strings.TrimPrefix(u.Path, "/")
	issuer := strings.TrimSpace(key.Issuer())
	account := label
	if issuer != "" {
		if rest, ok := strings.CutPrefix(label, issuer+":"); ok {
			account = rest
		}
	}

	return Key{
		Issuer:  issuer,
		Account: strings.TrimSpace(account),
		Secret:  secret,
	}, nil
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
