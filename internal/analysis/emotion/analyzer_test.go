package emotion

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassifyPriority(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	cases := []struct {
		text string
		want Tag
	}{
		{"Здравствуйте", Greeting},
		{"  ПРИВЕТ, Оданна!  ", Greeting},
		{"Мне очень грустно", Sadness},
		{"Мне очень грустно, хочу поесть", Food},
		{"Я люблю жарить рыбу", Cooking},
		{"Хочу готовить ужин", Food},
		{"Кто ты такая?", Self},
		{"Как дела? Что нового?", General},
		{"", General},
	}

	for _, tc := range cases {
		if got := analyzer.Classify(tc.text); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestClassifyCompositeSadness(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	if got := analyzer.Classify("Я устал от всего"); got != "sadness, fatigue" {
		t.Fatalf("expected composite fatigue tag, got %q", got)
	}
	if got := analyzer.Classify("Мне грустно и тревожно"); got != "sadness, worry" {
		t.Fatalf("expected composite worry tag, got %q", got)
	}
	if got := analyzer.Classify("Мне грустно"); got != Sadness {
		t.Fatalf("expected plain sadness, got %q", got)
	}
}

func TestHasDistress(t *testing.T) {
	for _, tag := range []Tag{Sadness, "sadness, fatigue", "грусть, усталость", "Distress"} {
		if !HasDistress(tag) {
			t.Fatalf("expected %q to carry distress", tag)
		}
	}
	for _, tag := range []Tag{General, Food, "радость"} {
		if HasDistress(tag) {
			t.Fatalf("expected %q to carry no distress", tag)
		}
	}
}

func TestCustomRulesReplaceDefaults(t *testing.T) {
	rules, err := ParseRules(`
[[rule]]
category = "Weather"
keywords = ["Дождь", "снег"]

[[rule]]
category = "sadness"
keywords = ["грустн"]

[[rule.secondary]]
label = "fatigue"
keywords = ["устал"]
`)
	if err != nil {
		t.Fatalf("ParseRules err: %v", err)
	}

	analyzer := NewAnalyzer(rules)
	if got := analyzer.Classify("Опять дождь"); got != "weather" {
		t.Fatalf("expected weather, got %q", got)
	}
	if got := analyzer.Classify("грустно, устала"); got != "sadness, fatigue" {
		t.Fatalf("expected composite, got %q", got)
	}
	if got := analyzer.Classify("привет"); got != General {
		t.Fatalf("expected general with replaced rules, got %q", got)
	}
}

func TestLoadRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	if err := os.WriteFile(path, []byte("[[rule]]\ncategory = \"greeting\"\nkeywords = [\"йо\"]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rules, err := LoadRulesFile(path)
	if err != nil {
		t.Fatalf("LoadRulesFile err: %v", err)
	}
	if got := NewAnalyzer(rules).Classify("йо!"); got != Greeting {
		t.Fatalf("expected greeting, got %q", got)
	}

	if _, err := ParseRules(""); err == nil {
		t.Fatal("expected error for empty rule table")
	}
}
