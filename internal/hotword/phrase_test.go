package hotword

import "testing"

func TestMatcherExactPhrase(t *testing.T) {
	m := NewMatcher([]string{"orallm"}, 2)

	ok, stripped := m.Match("ORALLM what's the weather today")
	if !ok {
		t.Fatal("expected match at transcript start")
	}
	if stripped != "what's the weather today" {
		t.Fatalf("stripped = %q", stripped)
	}
}

func TestMatcherPunctuationAndCase(t *testing.T) {
	m := NewMatcher([]string{"orallm"}, 2)

	ok, stripped := m.Match("Orallm, play some music!")
	if !ok {
		t.Fatal("expected match despite punctuation")
	}
	if stripped != "play some music" {
		t.Fatalf("stripped = %q", stripped)
	}
}

func TestMatcherWithinWindow(t *testing.T) {
	m := NewMatcher([]string{"orallm"}, 2) // window = 6 words

	ok, stripped := m.Match("um so orallm search for cats")
	if !ok {
		t.Fatal("expected match within head window")
	}
	if stripped != "search for cats" {
		t.Fatalf("stripped = %q", stripped)
	}

	if ok, _ := m.Match("one two three four five six seven orallm too late"); ok {
		t.Fatal("phrase beyond the head window should not match")
	}
}

func TestMatcherMultiWordPhrase(t *testing.T) {
	m := NewMatcher([]string{"hey ora"}, 2)

	ok, stripped := m.Match("hey ora, what time is it")
	if !ok {
		t.Fatal("expected multi-word phrase to match")
	}
	if stripped != "what time is it" {
		t.Fatalf("stripped = %q", stripped)
	}
}

func TestMatcherPhraseOnly(t *testing.T) {
	m := NewMatcher([]string{"orallm"}, 2)

	ok, stripped := m.Match("orallm")
	if !ok || stripped != "" {
		t.Fatalf("phrase-only transcript: ok=%v stripped=%q", ok, stripped)
	}

	if ok, _ := m.Match(""); ok {
		t.Fatal("empty transcript must not match")
	}
	if ok, _ := m.Match("completely unrelated words"); ok {
		t.Fatal("unrelated transcript must not match")
	}
}
