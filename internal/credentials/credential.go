// Package credentials holds the authenticated identity of a browser session.
//
// A Credential is either an opaque session token produced by the scraping adapter,
// or an identifier/secret pair kept only for deployments that log in again on every
// request. Neither form is ever rendered by fmt, slog or encoding/json.
package credentials

import (
	"log/slog"
	"maps"
)

type Kind int

const (
	KindToken Kind = iota + 1
	KindPassword
)

func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindPassword:
		return "password"
	default:
		return "unknown"
	}
}

// Token is the adapter's serialized session, its values are strings or numbers.
// The contents are opaque to everything except the adapter that produced them.
type Token map[string]any

type Credential struct {
	Kind       Kind
	Token      Token
	Identifier string
	Secret     string
}

func NewTokenCredential(token Token) Credential {
	return Credential{Kind: KindToken, Token: maps.Clone(token)}
}

func NewPasswordCredential(identifier, secret string) Credential {
	return Credential{Kind: KindPassword, Identifier: identifier, Secret: secret}
}

// Valid reports whether the credential carries what its kind requires.
func (c Credential) Valid() bool {
	switch c.Kind {
	case KindToken:
		return len(c.Token) > 0
	case KindPassword:
		return c.Identifier != "" && c.Secret != ""
	default:
		return false
	}
}

func (c Credential) clone() Credential {
	c.Token = maps.Clone(c.Token)
	return c
}

const redacted = "[redacted]"

func (c Credential) String() string {
	return "credential(" + c.Kind.String() + ", " + redacted + ")"
}

func (c Credential) GoString() string {
	return c.String()
}

func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", c.Kind.String()),
		slog.String("value", redacted),
	)
}

func (c Credential) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}
