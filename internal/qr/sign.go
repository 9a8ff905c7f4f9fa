// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package qr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/crypto/hkdf"
)

// Verification errors. All are terminal; none leave partial state.
var (
	ErrExpired          = errors.New("qr payload expired")
	ErrInvalidSignature = errors.New("qr payload signature invalid")
	ErrMalformed        = errors.New("qr payload malformed")
	ErrUnknownType      = errors.New("qr payload type unknown")
)

// Signer signs and verifies QR envelopes. Keys are derived per payload
// type from the master secret with HKDF-SHA256.
type Signer struct {
	keys map[PayloadType][]byte
	now  func() time.Time
}

// NewSigner derives per-type signing keys from the master secret.
func NewSigner(masterSecret string) (*Signer, error) {
	if masterSecret == "" {
		return nil, errors.New("signing secret is empty")
	}

	types := []PayloadType{TypeLoyaltyEnrollment, TypeCrossBusinessRedemption, TypeMenuWithLoyalty}
	keys := make(map[PayloadType][]byte, len(types))
	for _, t := range types {
		key, err := deriveKey([]byte(masterSecret), []byte("buffrhost-qr-"+string(t)), 32)
		if err != nil {
			return nil, fmt.Errorf("derive key for %s: %w", t, err)
		}
		keys[t] = key
	}

	return &Signer{keys: keys, now: time.Now}, nil
}

// deriveKey derives a key using HKDF-SHA256.
func deriveKey(secret, context []byte, keyLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, nil, context)
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Sign computes the envelope signature and returns the full encoded
// payload as the string to embed in a QR image.
func (s *Signer) Sign(e *Envelope) (string, error) {
	key, ok := s.keys[e.Type]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, e.Type)
	}

	sig, err := s.compute(key, e)
	if err != nil {
		return "", err
	}
	e.Sig = sig

	encoded, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(encoded), nil
}

// Verify decodes and checks a scanned payload. Order matters: structure,
// type, signature, then expiry, so an attacker learns nothing about
// expiry from a forged payload.
func (s *Signer) Verify(payload string) (*Envelope, error) {
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !e.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, e.Type)
	}
	if e.Nonce == "" || e.Sig == "" {
		return nil, fmt.Errorf("%w: missing nonce or signature", ErrMalformed)
	}

	key := s.keys[e.Type]
	want, err := s.compute(key, &e)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(want), []byte(e.Sig)) {
		return nil, ErrInvalidSignature
	}

	if s.now().After(e.ExpiresAt) {
		return nil, fmt.Errorf("%w at %s", ErrExpired, e.ExpiresAt.Format(time.RFC3339))
	}

	return &e, nil
}

// compute signs the canonical envelope bytes with the signature cleared.
func (s *Signer) compute(key []byte, e *Envelope) (string, error) {
	canonical := Envelope{
		Type:      e.Type,
		Data:      e.Data,
		IssuedAt:  e.IssuedAt,
		ExpiresAt: e.ExpiresAt,
		Nonce:     e.Nonce,
	}
	body, err := json.Marshal(&canonical)
	if err != nil {
		return "", fmt.Errorf("encode canonical envelope: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
