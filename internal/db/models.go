package db

type SessionCredential struct {
	SessionID string
	Kind      int64
	Payload   string
	ExpiresAt int64
}
