package ports

// SecretHasher one-way hashes short-lived secrets with per-call salting.
type SecretHasher interface {
	// Hash returns a salted hash of the secret.
	Hash(secret string) (string, error)

	// Compare reports whether secret matches the stored hash. A non-nil
	// error means the primitive itself failed, not a mismatch.
	Compare(secret, hash string) (bool, error)
}
