package recipient

import (
	"strings"
	"testing"

	"github.com/BTreeMap/DraftPipe/internal/models"
)

func TestNormalizeMetadataWins(t *testing.T) {
	parsed := models.Recipient{Name: "alex", Org: "Oldcorp", Email: "alex@old.example"}
	meta := map[string]string{
		MetaKeyName:  " Alex Chen ",
		MetaKeyOrg:   "Newcorp",
		MetaKeyEmail: "alex@new.example",
	}

	out := Normalize(parsed, meta)

	if out.Name != "Alex Chen" {
		t.Errorf("expected trimmed metadata name, got %q", out.Name)
	}
	if out.Org != "Newcorp" {
		t.Errorf("expected metadata org, got %q", out.Org)
	}
	if out.Email != "alex@new.example" {
		t.Errorf("expected metadata email, got %q", out.Email)
	}
}

func TestNormalizeFallsBackToParsedFields(t *testing.T) {
	parsed := models.Recipient{Name: " Sam ", Role: "recruiter", Email: "sam@example.com"}

	out := Normalize(parsed, nil)

	if out.Name != "Sam" || out.Role != "recruiter" || out.Email != "sam@example.com" {
		t.Errorf("parsed fields not carried through: %+v", out)
	}
}

func TestKeyPrefersLowercasedEmail(t *testing.T) {
	key := Key(models.Recipient{Email: " Sam@Example.COM ", Name: "Sam", Org: "Acme"})
	if key != "email:sam@example.com" {
		t.Errorf("expected email key, got %q", key)
	}
}

func TestKeyHashesNameOrgRole(t *testing.T) {
	key := Key(models.Recipient{Name: "Sam", Org: "Acme"})
	if !strings.HasPrefix(key, "hash:") {
		t.Fatalf("expected hash key, got %q", key)
	}
	if len(key) != len("hash:")+16 {
		t.Errorf("expected 16 hex chars after prefix, got %q", key)
	}

	// Case and surrounding whitespace must not change the key.
	same := Key(models.Recipient{Name: " sam ", Org: "ACME"})
	if same != key {
		t.Errorf("key not stable under case/whitespace: %q vs %q", key, same)
	}

	other := Key(models.Recipient{Name: "Sam", Org: "Globex"})
	if other == key {
		t.Error("different org should produce a different key")
	}
}

func TestKeyRequiresTwoIdentityFields(t *testing.T) {
	if key := Key(models.Recipient{Name: "Sam"}); key != "" {
		t.Errorf("single field should derive no key, got %q", key)
	}
	if key := Key(models.Recipient{}); key != "" {
		t.Errorf("empty recipient should derive no key, got %q", key)
	}
}
