package provision

import (
	"crypto/rand"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// TemporaryCodeMaxLength is the longest operator code the codec is
// specified for. Longer codes must be rejected by input validation
// before they reach HashTemporary; they are not silently truncated.
const TemporaryCodeMaxLength = 16

const (
	temporaryTokenMinLength = 8
	temporaryTokenMaxLength = 16
)

const alphanumerics = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// HashPassword will generate a password hash for a permanent account
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// HashTemporary generates a fresh temporary password and returns the
// hash of the composed temporary credential plus the plaintext token.
// The plaintext is delivered to the operator by mail and never stored;
// only the hash lands on the Applicant row.
func HashTemporary(temporaryCode string) (hashed string, plainTemporary string, err error) {
	plainTemporary, err = randomAlphanumeric(temporaryTokenMinLength, temporaryTokenMaxLength)
	if err != nil {
		return "", "", err
	}

	h, err := bcrypt.GenerateFromPassword([]byte(composeTemporary(temporaryCode, plainTemporary)), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	return string(h), plainTemporary, nil
}

// CompareTemporary recomposes the temporary credential from the
// operator code and the mailed temporary password and validates it
// against the stored hash.
func CompareTemporary(temporaryCode, plainTemporary, hashed string) error {
	return ComparePasswordAndHash(composeTemporary(temporaryCode, plainTemporary), hashed)
}

// The token rides between two copies of the operator code so neither a
// leaked token nor a guessed code is sufficient on its own.
func composeTemporary(temporaryCode, plainTemporary string) string {
	return temporaryCode + plainTemporary + temporaryCode
}

func randomAlphanumeric(minLen, maxLen int) (string, error) {
	span, err := rand.Int(rand.Reader, big.NewInt(int64(maxLen-minLen+1)))
	if err != nil {
		return "", err
	}
	length := minLen + int(span.Int64())

	out := make([]byte, length)
	max := big.NewInt(int64(len(alphanumerics)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphanumerics[n.Int64()]
	}

	return string(out), nil
}
