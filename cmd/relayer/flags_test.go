package main

import "testing"

func TestAppFlagNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range appFlags {
		for _, name := range f.Names() {
			if seen[name] {
				t.Fatalf("duplicate flag name %q", name)
			}
			seen[name] = true
		}
	}
}
