package sandbox

import (
	"encoding/base32"
	"fmt"
	"strings"
)

const (
	// NamePrefix marks container names managed by Burrow.
	NamePrefix = "sbx-"

	// MaxNameLength is the hard ceiling most runtimes and DNS labels
	// impose on container names.
	MaxNameLength = 63

	// MaxTenantIDLength is the largest tenant id whose encoded name fits
	// inside MaxNameLength: (63 - len("sbx-")) * 5 / 8 bytes of input.
	MaxTenantIDLength = 36
)

// encoding is lowercase-safe base32 without padding, so encoded names are
// valid DNS labels and the mapping stays reversible.
var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Name derives the sandbox name for a tenant. The mapping is deterministic
// and reversible: crash recovery decodes the tenant back out of the running
// container's own name without any registry lookup.
func Name(tenantID string) (string, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return "", err
	}
	return NamePrefix + strings.ToLower(encoding.EncodeToString([]byte(tenantID))), nil
}

// TenantID recovers the tenant id from a sandbox name produced by Name.
func TenantID(name string) (string, error) {
	if !strings.HasPrefix(name, NamePrefix) {
		return "", fmt.Errorf("not a sandbox name: %q", name)
	}
	raw, err := encoding.DecodeString(strings.ToUpper(strings.TrimPrefix(name, NamePrefix)))
	if err != nil {
		return "", fmt.Errorf("failed to decode sandbox name %q: %w", name, err)
	}
	tenantID := string(raw)
	if err := ValidateTenantID(tenantID); err != nil {
		return "", fmt.Errorf("decoded invalid tenant id from %q: %w", name, err)
	}
	return tenantID, nil
}

// IsSandboxName reports whether name looks like a Burrow-managed sandbox.
func IsSandboxName(name string) bool {
	_, err := TenantID(name)
	return err == nil
}

// ValidateTenantID checks the constraints the name codec relies on.
func ValidateTenantID(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id cannot be empty")
	}
	if len(tenantID) > MaxTenantIDLength {
		return fmt.Errorf("tenant id too long: %d bytes (max %d)", len(tenantID), MaxTenantIDLength)
	}
	return nil
}
