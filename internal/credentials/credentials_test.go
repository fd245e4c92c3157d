package credentials

import (
	"strings"
	"testing"
)

func TestGenerateInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateInviteCode()
		if err != nil {
			t.Fatalf("GenerateInviteCode() error = %v", err)
		}
		if !IsInviteCode(code) {
			t.Fatalf("generated code %q does not match the invite format", code)
		}
		if seen[code] {
			t.Errorf("duplicate invite code generated: %s", code)
		}
		seen[code] = true
	}
}

func TestIsInviteCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"FAM-ABCD1234", true},
		{"FAM-abcd1234", false},
		{"FAM-ABC123", false},
		{"FAM-ABCD12345", false},
		{"XYZ-ABCD1234", false},
		{"FAM-ABCD-123", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := IsInviteCode(tt.code); got != tt.want {
				t.Errorf("IsInviteCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestNormalizeInviteCode(t *testing.T) {
	if got := NormalizeInviteCode("  fam-abcd1234 "); got != "FAM-ABCD1234" {
		t.Errorf("NormalizeInviteCode() = %q", got)
	}
}

func TestSuggestUsername(t *testing.T) {
	for i := 0; i < 50; i++ {
		username, err := SuggestUsername()
		if err != nil {
			t.Fatalf("SuggestUsername() error = %v", err)
		}
		parts := strings.Split(username, "-")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			t.Errorf("username %q is not adjective-noun", username)
		}
	}
}
