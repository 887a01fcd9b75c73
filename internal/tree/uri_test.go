package tree

import (
	"errors"
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"/", "", false},
		{"a", "a", false},
		{"a:b:c", "a:b:c", false},
		{"a/b/c", "a:b:c", false},
		{"/a/b/", "a:b", false},
		{":a:b", "a:b", false},
		{"a/b:c", "a:b:c", false},
		{"a//b", "", true},
		{"a b", "", true},
		{"a::", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Canonical(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURI) {
					t.Fatalf("Canonical(%q) error = %v, want ErrInvalidURI", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Canonical(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestJoinURI(t *testing.T) {
	if got := JoinURI("", "a"); got != "a" {
		t.Errorf("JoinURI(root, a) = %q", got)
	}
	if got := JoinURI("a:b", "c"); got != "a:b:c" {
		t.Errorf("JoinURI(a:b, c) = %q", got)
	}
}
