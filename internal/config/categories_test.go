package config

import "testing"

func TestExpandMacrosResolvesCategory(t *testing.T) {
	categories := map[string][]string{
		"source": {"src/**", "lib/**"},
	}
	got, err := ExpandMacros([]string{"{{source}}", "extra/*.txt"}, categories, "dev")
	if err != nil {
		t.Fatalf("ExpandMacros: %v", err)
	}
	want := []string{"src/**", "lib/**", "extra/*.txt"}
	if len(got) != len(want) {
		t.Fatalf("ExpandMacros = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExpandMacros[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExpandMacrosUnknownCategoryErrors(t *testing.T) {
	_, err := ExpandMacros([]string{"{{nonexistent}}"}, DefaultCategories(), "dev")
	if err == nil {
		t.Fatal("expected error for unknown category, got nil")
	}
}

func TestMergedCategoriesOverlaysUserCategories(t *testing.T) {
	merged := MergedCategories(map[string][]string{
		"source": {"app/**"},
		"custom": {"special/**"},
	})
	if got := merged["source"]; len(got) != 1 || got[0] != "app/**" {
		t.Errorf("user category should override default, got %v", got)
	}
	if got := merged["custom"]; len(got) != 1 || got[0] != "special/**" {
		t.Errorf("user-only category missing, got %v", got)
	}
	if _, ok := merged["docs"]; !ok {
		t.Error("un-overridden default category should survive merge")
	}
}

func TestDefaultCategoriesNonEmpty(t *testing.T) {
	cats := DefaultCategories()
	for _, name := range []string{"source", "tests", "docs", "ci", "infra"} {
		if len(cats[name]) == 0 {
			t.Errorf("expected default category %q to have patterns", name)
		}
	}
}
