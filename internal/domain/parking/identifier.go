package parking

import (
	"crypto/subtle"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	digestPattern      = regexp.MustCompile(`^[0-9a-f]{64}$`)
	parkingCodePattern = regexp.MustCompile(`^PARK-[A-Z0-9]{4}-[A-Z0-9]{4}$`)
	plateCodePattern   = regexp.MustCompile(`^PLATE-[0-9A-F]{8}$`)
)

type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationVerified   VerificationStatus = "verified"
	VerificationDisputed   VerificationStatus = "disputed"
)

// Identifier maps a hashed plate or parking code to its single owner. The
// original plate text never reaches the server.
type Identifier struct {
	IdentifierHash     string
	OwnerAccountID     string
	VerificationStatus VerificationStatus
	OwnershipProofHash string
	DisplayCode        string
	RegisteredAt       time.Time
	UpdatedAt          time.Time
}

// NormalizeIdentifierHash lowercases and validates a client supplied digest.
func NormalizeIdentifierHash(raw string) (string, error) {
	hash := strings.ToLower(strings.TrimSpace(raw))
	if !digestPattern.MatchString(hash) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifierHash, raw)
	}
	return hash, nil
}

func NormalizeProofHash(raw string) (string, error) {
	hash := strings.ToLower(strings.TrimSpace(raw))
	if !digestPattern.MatchString(hash) {
		return "", ErrInvalidProofHash
	}
	return hash, nil
}

// NormalizeDisplayCode validates the human readable label. Empty is allowed.
func NormalizeDisplayCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", nil
	}
	if parkingCodePattern.MatchString(code) || plateCodePattern.MatchString(code) {
		return code, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDisplayCode, raw)
}

// PlateDisplayCode derives the plate-hash display label for an identifier.
func PlateDisplayCode(identifierHash string) string {
	if len(identifierHash) < 8 {
		return ""
	}
	return "PLATE-" + strings.ToUpper(identifierHash[:8])
}

// ProofMatches reports whether presented proves ownership of an identifier
// protected by stored. An empty stored proof accepts any claim.
func ProofMatches(stored string, presented string) bool {
	if stored == "" {
		return true
	}
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
