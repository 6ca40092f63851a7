package port

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// TokenGenerator mints opaque, unguessable verification tokens.
type TokenGenerator interface {
	Generate() (string, error)
}
