package core

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "conventional", in: "feat: add user authentication", want: "feat: add user authentication"},
		{name: "mixed case and punctuation", in: "Fix: Add Thing!!", want: "fix: add thing"},
		{name: "numbers kept", in: "Update API v2.1.0 endpoint", want: "update api v2.1.0 endpoint"},
		{name: "special characters removed", in: "Add New Feature!!! @#$%^&*()", want: "add new feature"},
		{name: "underscores and slashes kept", in: "fix: update src/utils/helper_functions.py", want: "fix: update src/utils/helper_functions.py"},
		{name: "spaces collapsed", in: "fix:    update     user    login", want: "fix: update user login"},
		{name: "surrounding whitespace", in: "   chore: bump deps \n", want: "chore: bump deps"},
		{name: "non ascii letters dropped", in: "fix: café crème", want: "fix: caf crme"},
		{name: "empty", in: "", wantErr: true},
		{name: "whitespace only", in: "   ", wantErr: true},
		{name: "digits only", in: "123", wantErr: true},
		{name: "punctuation only", in: "!!!", wantErr: true},
		{name: "nothing allowed survives", in: "@#$ %^&", wantErr: true},
		{name: "too long", in: strings.Repeat("a", PermissiveMaxLength+1), wantErr: true},
		{name: "at the limit", in: strings.Repeat("a", PermissiveMaxLength), want: strings.Repeat("a", PermissiveMaxLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Sanitize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrSanitization) {
					t.Errorf("Sanitize(%q) error = %v, want ErrSanitization", tt.in, err)
				}
				if got != "" {
					t.Errorf("Sanitize(%q) returned partial result %q", tt.in, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizerStrictLimit(t *testing.T) {
	s := Sanitizer{MaxLength: StrictMaxLength}

	if _, err := s.Sanitize("feat: " + strings.Repeat("x", StrictMaxLength)); err == nil {
		t.Error("expected strict sanitizer to reject long message")
	}
	got, err := s.Sanitize("fix: handle nil config")
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if got != "fix: handle nil config" {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeProperties(t *testing.T) {
	inputs := []string{
		"Fix: Add Thing!!",
		"feat(api): Add  endpoint\tfor /users",
		"  refactor:\n\nsplit   loop.go  ",
		"docs: README — typo",
		"CHORE: bump go.mod to 1.24",
		"a b  c",
		"x . . y",
	}

	for _, in := range inputs {
		once, err := Sanitize(in)
		if err != nil {
			t.Fatalf("Sanitize(%q): %v", in, err)
		}
		twice, err := Sanitize(once)
		if err != nil {
			t.Fatalf("Sanitize(Sanitize(%q)): %v", in, err)
		}
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
		if strings.Contains(once, "  ") {
			t.Errorf("Sanitize(%q) = %q contains double space", in, once)
		}
		for _, r := range once {
			if !allowedRune(r) {
				t.Errorf("Sanitize(%q) = %q contains disallowed rune %q", in, once, r)
			}
		}
	}
}
