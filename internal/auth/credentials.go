package auth

import "golang.org/x/crypto/bcrypt"

// Credentials hashes and checks passwords. Each Hash call salts
// independently, so equal inputs produce distinct digests.
type Credentials struct {
	cost int
}

func NewCredentials(cost int) *Credentials {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Credentials{cost: cost}
}

func (c *Credentials) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), c.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext produced digest. A malformed digest
// is treated as a mismatch, never an error.
func (c *Credentials) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
