package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"Hello, World!", "hello-world"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Multiple---Hyphens", "multiple-hyphens"},
		{"Café au Lait", "cafe-au-lait"},
		{"UPPERCASE", "uppercase"},
		{"numbers 123", "numbers-123"},
		{"", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q; want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlugifyTransliterates(t *testing.T) {
	// Non-Latin input must produce a usable ASCII slug, not an empty string.
	got := Slugify("Путешествия")
	if got == "" {
		t.Fatal("Slugify of Cyrillic input returned empty slug")
	}
	if !IsValidSlug(got) {
		t.Errorf("Slugify of Cyrillic input produced invalid slug %q", got)
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"valid-slug", true},
		{"valid", true},
		{"valid-123", true},
		{"", false},
		{"-leading", false},
		{"trailing-", false},
		{"double--hyphen", false},
		{"UpperCase", false},
		{"with space", false},
		{"with_underscore", false},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			if got := IsValidSlug(tt.slug); got != tt.want {
				t.Errorf("IsValidSlug(%q) = %v; want %v", tt.slug, got, tt.want)
			}
		})
	}
}
