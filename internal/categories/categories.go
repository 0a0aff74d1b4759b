// Package categories loads the category configuration file once at
// process start and serves it read-only for the lifetime of the
// process. Reloading means restarting.
package categories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Category is a name plus its ordered subcategory names.
type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

type file struct {
	Categories []Category `json:"categories"`
}

// Store holds the loaded category list. Immutable after Load.
type Store struct {
	categories []Category
	byName     map[string]Category
}

// Default returns the category set written when no configuration file
// exists yet.
func Default() []Category {
	return []Category{
		{Name: "Food", Subcategories: []string{"Groceries", "Restaurants", "Takeout", "Coffee"}},
		{Name: "Transportation", Subcategories: []string{"Fuel", "Public Transit", "Taxi", "Maintenance"}},
		{Name: "Housing", Subcategories: []string{"Rent", "Utilities", "Maintenance", "Furniture"}},
		{Name: "Entertainment", Subcategories: []string{"Movies", "Games", "Concerts", "Hobbies"}},
		{Name: "Shopping", Subcategories: []string{"Clothing", "Electronics", "Gifts", "Household"}},
		{Name: "Health", Subcategories: []string{"Medical", "Pharmacy", "Fitness", "Insurance"}},
		{Name: "Education", Subcategories: []string{"Books", "Courses", "Software", "Subscriptions"}},
		{Name: "Other", Subcategories: []string{"Miscellaneous"}},
	}
}

// Load reads the category file at path. When the file does not exist
// the default set is written there first, so a fresh install starts
// with a usable taxonomy.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("Categories file missing, writing defaults", "path", path)
		if data, err = writeDefaults(path); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse categories file %s: %w", path, err)
	}

	byName := make(map[string]Category, len(f.Categories))
	for _, c := range f.Categories {
		byName[c.Name] = c
	}

	return &Store{categories: f.Categories, byName: byName}, nil
}

func writeDefaults(path string) ([]byte, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create categories directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(file{Categories: Default()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal default categories: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("write default categories: %w", err)
	}
	return data, nil
}

// List returns the categories in file order.
func (s *Store) List() []Category {
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Lookup reports whether the named category exists and, when
// subcategory is nonempty, whether it is listed under that category.
// Used for soft validation only.
func (s *Store) Lookup(category, subcategory string) bool {
	c, ok := s.byName[category]
	if !ok {
		return false
	}
	if subcategory == "" {
		return true
	}
	for _, sub := range c.Subcategories {
		if sub == subcategory {
			return true
		}
	}
	return false
}

// JSON re-serializes the loaded category list, mirroring the on-disk
// file format. Served as the expense://categories resource.
func (s *Store) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(file{Categories: s.categories}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal categories: %w", err)
	}
	return data, nil
}
