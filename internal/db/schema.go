package db

import _ "embed"

//go:embed schema.sql
var Schema string

// CredentialKind mirrors credentials.Kind in the kind column.
type CredentialKind int64

const (
	CREDENTIAL_TOKEN CredentialKind = iota + 1
	CREDENTIAL_PASSWORD
)
