package categories

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "categories.json")

	store, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	if len(store.List()) != len(Default()) {
		t.Fatalf("expected %d default categories, got %d", len(Default()), len(store.List()))
	}
	if store.List()[0].Name != "Food" {
		t.Fatalf("category order not preserved: %+v", store.List()[0])
	}

	// A second load reads the written file rather than rewriting it.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again.List()) != len(store.List()) {
		t.Fatalf("reload changed category count")
	}
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.json")
	content := `{"categories":[{"name":"Zebra","subcategories":["Stripes"]},{"name":"Alpha","subcategories":[]}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := store.List()
	if len(got) != 2 || got[0].Name != "Zebra" || got[1].Name != "Alpha" {
		t.Fatalf("file order not preserved: %+v", got)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed file")
	}
}

func TestLookup(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "categories.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cases := []struct {
		category, subcategory string
		want                  bool
	}{
		{"Food", "", true},
		{"Food", "Groceries", true},
		{"Food", "Fuel", false},
		{"Unknown", "", false},
		{"Unknown", "Groceries", false},
	}
	for _, tc := range cases {
		if got := store.Lookup(tc.category, tc.subcategory); got != tc.want {
			t.Fatalf("Lookup(%q, %q) = %v, want %v", tc.category, tc.subcategory, got, tc.want)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "categories.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	data, err := store.JSON()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var parsed struct {
		Categories []Category `json:"categories"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(parsed.Categories) != len(store.List()) {
		t.Fatalf("round trip lost categories")
	}
}
