package access

import (
	"strings"
	"testing"
	"time"
)

func TestChain(t *testing.T) {
	allow := DeciderFunc(func(Request) bool { return true })
	deny := DeciderFunc(func(Request) bool { return false })
	req := Request{Current: Normal, Requested: Service}

	if (Chain{}).Decide(req) {
		t.Error("empty chain should deny")
	}
	if (Chain{deny, nil}).Decide(req) {
		t.Error("chain of denials should deny")
	}
	if !(Chain{deny, allow}).Decide(req) {
		t.Error("chain with one approval should allow")
	}
	if DenyAll.Decide(req) {
		t.Error("DenyAll should deny")
	}
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash should start with $argon2id$, got %q", hash)
	}

	ok, err := VerifyPassword("correct-horse-battery-staple", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("VerifyPassword() should return true for correct password")
	}

	ok, err = VerifyPassword("wrong", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if ok {
		t.Error("VerifyPassword() should return false for wrong password")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	for _, h := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$AA$AA", "$argon2id$v=19$m=x$AA$AA"} {
		if _, err := VerifyPassword("x", h); err == nil {
			t.Errorf("VerifyPassword(%q) expected error", h)
		}
	}
}

func TestPasswordDecider(t *testing.T) {
	serviceHash, err := HashPassword("svc")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	internalHash, err := HashPassword("root")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	d, err := NewPasswordDecider(map[Userlevel]string{Service: serviceHash, Internal: internalHash})
	if err != nil {
		t.Fatalf("NewPasswordDecider() error = %v", err)
	}

	tests := []struct {
		name      string
		requested Userlevel
		cred      string
		want      bool
	}{
		{"service with service password", Service, "svc", true},
		{"service with internal password", Service, "root", true},
		{"internal with service password", Internal, "svc", false},
		{"internal with internal password", Internal, "root", true},
		{"wrong password", Service, "nope", false},
		{"empty credential", Service, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Decide(Request{Current: Normal, Requested: tt.requested, Credential: tt.cred})
			if got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewPasswordDecider_RejectsBadHash(t *testing.T) {
	if _, err := NewPasswordDecider(map[Userlevel]string{Service: "not-a-hash"}); err == nil {
		t.Error("expected error for malformed hash")
	}
	if _, err := NewPasswordDecider(map[Userlevel]string{Userlevel(7): "x"}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestIssueAndParseToken(t *testing.T) {
	secret := "test-secret-key-for-jwt-signing"

	token, err := IssueToken("operator", Service, secret, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	claims, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "operator" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "operator")
	}
	if claims.Userlevel != Service {
		t.Errorf("Userlevel = %s, want %s", claims.Userlevel, Service)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}

	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Error("ParseToken() with wrong secret should fail")
	}
}

func TestIssueToken_DefaultTTL(t *testing.T) {
	token, err := IssueToken("operator", Service, "s", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken(token, "s"); err != nil {
		t.Errorf("ParseToken() error = %v", err)
	}
}

func TestTokenDecider(t *testing.T) {
	secret := "decider-secret"
	token, err := IssueToken("svc", Service, secret, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	d := TokenDecider{Secret: secret}
	if !d.Decide(Request{Current: Normal, Requested: Service, Credential: token}) {
		t.Error("token for service should grant service")
	}
	if !d.Decide(Request{Current: Readonly, Requested: Normal, Credential: token}) {
		t.Error("token for service should grant normal")
	}
	if d.Decide(Request{Current: Normal, Requested: Internal, Credential: token}) {
		t.Error("token for service should not grant internal")
	}
	if d.Decide(Request{Current: Normal, Requested: Service, Credential: "garbage"}) {
		t.Error("garbage token should be denied")
	}
	if (TokenDecider{}).Decide(Request{Requested: Service, Credential: token}) {
		t.Error("decider without secret should deny")
	}
}
