package auth

import (
	"testing"
	"time"

	"github.com/david0ql/helpdeskd/internal/apperr"
)

func TestSignAndVerify(t *testing.T) {
	v := NewVerifier("s3cret")

	token, err := v.Sign(7, "admin", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	userID, err := v.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if userID != 7 {
		t.Errorf("userID = %d, want 7", userID)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewVerifier("s3cret")
	other := NewVerifier("different")

	expired, err := v.Sign(7, "admin", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := other.Sign(7, "admin", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"expired":      expired,
		"wrong secret": foreign,
	} {
		if _, err := v.Verify(token); apperr.KindOf(err) != apperr.KindAuth {
			t.Errorf("%s: err = %v, want auth failure", name, err)
		}
	}
}
