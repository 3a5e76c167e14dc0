package models

import (
	"fmt"
	"io"
	"log/slog"
)

const redacted = "***"

// Credential is the stored form of a user's password.
//
// Whatever encoding produced it (plaintext or a hash) is decided by the
// service layer; stores persist Value as an opaque string. Every fmt verb
// and slog prints a redacted placeholder instead.
type Credential string

// Value returns the stored value.
func (c Credential) Value() string {
	return string(c)
}

// String returns a redacted placeholder.
func (c Credential) String() string {
	return redacted
}

// Format redacts the credential for every verb, including %v, %+v and %#v.
func (c Credential) Format(f fmt.State, _ rune) {
	io.WriteString(f, redacted)
}

// LogValue redacts the credential in structured logs.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue(redacted)
}
