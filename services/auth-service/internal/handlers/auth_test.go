package handlers

import (
	"testing"

	"github.com/slotwise/slotwise/libs/auth"
)

func TestPasswordHashing(t *testing.T) {
	password := "pass123"
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}
	if err := verifyPassword(hash, password); err != nil {
		t.Fatalf("verifyPassword should succeed: %v", err)
	}
	if err := verifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("verifyPassword should fail for wrong password")
	}
}

func TestSlugPattern(t *testing.T) {
	valid := []string{"anna-nails", "studio42", "a-1-b"}
	for _, s := range valid {
		if !slugPattern.MatchString(s) {
			t.Errorf("slug %q should be valid", s)
		}
	}
	invalid := []string{"", "ab", "Anna", "has space", "-leading", "trailing-", "under_score"}
	for _, s := range invalid {
		if slugPattern.MatchString(s) {
			t.Errorf("slug %q should be invalid", s)
		}
	}
}

func TestHS256SignerRoundTrip(t *testing.T) {
	signer := NewHS256Signer("test-secret")
	token, err := signer.Sign(auth.Claims{Sub: "acct-1", MasterID: "master-1", Role: "master", Exp: 4102444800})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.MasterID != "master-1" || claims.Sub != "acct-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := NewHS256Signer("other-secret").Verify(token); err == nil {
		t.Fatal("token signed with a different secret should not verify")
	}
}
