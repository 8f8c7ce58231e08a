package deck

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	valid := []string{"default", "jlpt-n5", "a", "work-2026", "x1-y2-z3"}
	for _, id := range valid {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{
		"",
		"UPPER",
		"-leading",
		"trailing-",
		"double--hyphen",
		"under_score",
		"no/slashes",
		"日本語",
		strings.Repeat("a", 65),
	}
	for _, id := range invalid {
		if err := ValidateID(id); !errors.Is(err, ErrInvalidDeckID) {
			t.Errorf("ValidateID(%q) = %v, want ErrInvalidDeckID", id, err)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvDeck, "")

	id, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if id != "default" {
		t.Errorf("Resolve(\"\") = %q, want %q", id, "default")
	}
}

func TestResolve_Precedence(t *testing.T) {
	t.Setenv(EnvDeck, "from-env")

	id, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if id != "from-env" {
		t.Errorf("Resolve(\"\") = %q, want env value", id)
	}

	id, err = Resolve("explicit")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if id != "explicit" {
		t.Errorf("Resolve(\"explicit\") = %q, want explicit to win over env", id)
	}
}

func TestResolve_RejectsInvalid(t *testing.T) {
	if _, err := Resolve("Bad Deck"); !errors.Is(err, ErrInvalidDeckID) {
		t.Errorf("Resolve(\"Bad Deck\") = %v, want ErrInvalidDeckID", err)
	}

	t.Setenv(EnvDeck, "also/bad")
	if _, err := Resolve(""); !errors.Is(err, ErrInvalidDeckID) {
		t.Errorf("Resolve with bad env = %v, want ErrInvalidDeckID", err)
	}
}

func TestDBPath(t *testing.T) {
	path := DBPath("jlpt-n5")
	if filepath.Base(path) != "kioku.db" {
		t.Errorf("DBPath base = %q, want kioku.db", filepath.Base(path))
	}
	if filepath.Base(filepath.Dir(path)) != "jlpt-n5" {
		t.Errorf("DBPath dir = %q, want deck directory", filepath.Dir(path))
	}
}
