package auth

import (
	"testing"
	"time"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "s3cret") {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("wrong password accepted")
	}
}

func TestAdminToken(t *testing.T) {
	tok, err := SignAdminToken("signing-secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := ParseToken("signing-secret", tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "admin" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok, _ := SignAdminToken("signing-secret", time.Hour)
	if _, err := ParseToken("other-secret", tok); err == nil {
		t.Fatalf("token verified with wrong secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	tok, _ := SignAdminToken("signing-secret", -time.Minute)
	if _, err := ParseToken("signing-secret", tok); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestParseToken_Garbage(t *testing.T) {
	if _, err := ParseToken("signing-secret", "not.a.token"); err == nil {
		t.Fatalf("garbage token accepted")
	}
}
