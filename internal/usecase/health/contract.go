package health

import "context"

// Pinger checks availability of a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CredentialChecker reports whether an upstream API is configured.
type CredentialChecker interface {
	Configured() bool
}
