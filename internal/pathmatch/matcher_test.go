package pathmatch

import "testing"

func TestToMatcher_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		pattern any
		input   string
		want    bool
	}{
		{"literal match", "abc", "abc", true},
		{"literal mismatch", "abc", "def", false},
		{"regex match", "re:a.c", "abc", true},
		{"regex mismatch", "re:a.c", "bc", false},
		{"exact no partial suffix", "/a/b/c", "/a/b/cc", false},
		{"dir prefix excludes itself", "/a/b/c/", "/a/b/c", false},
		{"dir prefix includes subpath", "/a/b/c/", "/a/b/c/d", true},
		{"glob single segment", "/a/b/*", "/a/b/c", true},
		{"glob does not cross segments", "/a/b/*", "/a/b/c/d", false},
		{"glob trailing sentinel", "/a/b/*/", "/a/b/c/d", true},
		{"array any-match", []any{"/a/b/*", "c"}, "c", true},
		{"empty array matches nothing", []any{}, "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ToMatcher(tt.pattern)
			if err != nil {
				t.Fatalf("ToMatcher(%v) returned error: %v", tt.pattern, err)
			}
			if got := m(tt.input); got != tt.want {
				t.Errorf("matcher(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestToMatcher_Nil(t *testing.T) {
	m, err := ToMatcher(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m("anything") {
		t.Errorf("nil pattern matcher should never match")
	}
}

func TestToMatcher_SubdirGlob(t *testing.T) {
	m, err := ToMatcher("/tmp/*/a.tmp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m("/tmp/x/a.tmp") {
		t.Errorf("expected /tmp/x/a.tmp to match")
	}
	if m("/tmp/a.tmp") {
		t.Errorf("expected /tmp/a.tmp not to match (missing subdir segment)")
	}
}

func TestToMatcher_InvalidArrayElement(t *testing.T) {
	_, err := ToMatcher([]any{"ok", 5})
	if err == nil {
		t.Fatalf("expected error for non-string/non-regex array element")
	}
}

func TestToMatcher_InvalidType(t *testing.T) {
	_, err := ToMatcher(42)
	if err == nil {
		t.Fatalf("expected error for unsupported pattern type")
	}
}

func TestToMatcher_Determinism(t *testing.T) {
	m, err := ToMatcher("/a/*/c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		if !m("/a/b/c") {
			t.Fatalf("matcher is not deterministic across repeated calls")
		}
	}
}

func TestNormalizePath_PreservesTrailingSeparatorSemantics(t *testing.T) {
	if NormalizePath(`a\b\c`) != "a/b/c" {
		t.Errorf("expected backslashes normalised to forward slashes")
	}
	if NormalizePath("a//b") != "a/b" {
		t.Errorf("expected duplicate separators collapsed")
	}
}
