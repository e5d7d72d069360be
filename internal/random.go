package internal

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// OpaqueTokenBytes is the entropy drawn for every access and refresh token.
const OpaqueTokenBytes = 32

// NewOpaqueToken reads OpaqueTokenBytes from r and returns them base64url
// encoded without padding (43 characters).
func NewOpaqueToken(r io.Reader) (string, error) {
	if r == nil {
		return "", errors.New("nil random source")
	}

	var raw [OpaqueTokenBytes]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewOpaquePair draws two independent tokens from r.
func NewOpaquePair(r io.Reader) (string, string, error) {
	access, err := NewOpaqueToken(r)
	if err != nil {
		return "", "", err
	}
	refresh, err := NewOpaqueToken(r)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
