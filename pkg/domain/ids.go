package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Identifiers are prefixed strings rather than raw UUIDs so a log line or an
// export row is self-describing about what kind of record it names.
const (
	DecisionIDPrefix = "dec-"
	AuditIDPrefix    = "audit-"
	PolicyIDPrefix   = "policy-"
)

// NewDecisionID returns a fresh decision identifier, e.g. "dec-3f1a9c0b42de".
func NewDecisionID() string {
	return DecisionIDPrefix + shortHex()
}

// NewAuditID returns a fresh audit entry identifier, e.g. "audit-9e2b11f07a3c".
func NewAuditID() string {
	return AuditIDPrefix + shortHex()
}

// PolicyID derives the stable identifier for a seeded policy from its
// category slug, e.g. "policy-hate-speech". Seeded policies keep the same id
// across restarts so dashboards and audit trails stay comparable.
func PolicyID(categorySlug string) string {
	return PolicyIDPrefix + strings.ReplaceAll(categorySlug, "_", "-")
}

// shortHex returns the first 12 hex characters of a v4 UUID. Collision odds
// are acceptable for process-lifetime stores.
func shortHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
