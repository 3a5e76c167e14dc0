package services

import (
	"fmt"

	"userbook/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// CredentialEncoder turns a password as typed into the form it is stored in.
type CredentialEncoder interface {
	Encode(password string) (models.Credential, error)
}

// PlainCredentials stores passwords exactly as given.
type PlainCredentials struct{}

// Encode returns password unchanged.
func (PlainCredentials) Encode(password string) (models.Credential, error) {
	return models.Credential(password), nil
}

// BcryptCredentials stores bcrypt hashes of passwords.
type BcryptCredentials struct {
	Cost int
}

// Encode hashes password with the configured cost, or bcrypt.DefaultCost
// when Cost is zero.
func (b BcryptCredentials) Encode(password string) (models.Credential, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return models.Credential(hashed), nil
}

// CredentialEncoderFor returns the encoder registered under name.
func CredentialEncoderFor(name string) (CredentialEncoder, error) {
	switch name {
	case "", "plain":
		return PlainCredentials{}, nil
	case "bcrypt":
		return BcryptCredentials{}, nil
	default:
		return nil, fmt.Errorf("unknown password hashing scheme %q", name)
	}
}
