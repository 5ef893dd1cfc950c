// Package recipient normalizes recipient identity and derives the stable
// key used to address the per-recipient memory store.
package recipient

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/BTreeMap/DraftPipe/internal/models"
)

// Metadata keys recognized as authoritative recipient fields.
const (
	MetaKeyUserID       = "user_id"
	MetaKeyEmail        = "recipient_email"
	MetaKeyName         = "recipient_name"
	MetaKeyOrg          = "recipient_org"
	MetaKeyRole         = "recipient_role"
	MetaKeyRelationship = "recipient_relationship"
)

func metaGet(meta map[string]string, key string) string {
	if meta == nil {
		return ""
	}
	return strings.TrimSpace(meta[key])
}

// Normalize overlays authoritative metadata fields onto a parsed recipient.
// Metadata wins wherever present; every field is trimmed.
func Normalize(parsed models.Recipient, meta map[string]string) models.Recipient {
	out := models.Recipient{
		Email:        metaGet(meta, MetaKeyEmail),
		Name:         firstNonEmpty(metaGet(meta, MetaKeyName), strings.TrimSpace(parsed.Name)),
		Org:          firstNonEmpty(metaGet(meta, MetaKeyOrg), strings.TrimSpace(parsed.Org)),
		Role:         firstNonEmpty(metaGet(meta, MetaKeyRole), strings.TrimSpace(parsed.Role)),
		Relationship: firstNonEmpty(metaGet(meta, MetaKeyRelationship), strings.TrimSpace(parsed.Relationship)),
	}
	if out.Email == "" {
		out.Email = strings.TrimSpace(parsed.Email)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Key derives the stable memory-store key for a recipient. A normalized
// lowercase email is preferred; otherwise a truncated sha256 over
// name|org|role when at least two of those are present. An empty return
// means no key is derivable and persistence must be skipped.
func Key(r models.Recipient) string {
	email := strings.ToLower(strings.TrimSpace(r.Email))
	if email != "" {
		return "email:" + email
	}

	name := strings.ToLower(strings.TrimSpace(r.Name))
	org := strings.ToLower(strings.TrimSpace(r.Org))
	role := strings.ToLower(strings.TrimSpace(r.Role))

	present := 0
	for _, v := range []string{name, org, role} {
		if v != "" {
			present++
		}
	}
	if present < 2 {
		return ""
	}

	digest := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", name, org, role)))
	return "hash:" + hex.EncodeToString(digest[:])[:16]
}
