package textutil

import "testing"

func TestContainsFold(t *testing.T) {
	cases := []struct {
		haystack string
		needle   string
		want     bool
	}{
		{"Holiday_Trip.MP4", "trip", true},
		{"Holiday_Trip.MP4", "TRIP.mp4", true},
		{"Straße.mkv", "STRASSE", true},
		// precomposed haystack, decomposed needle
		{"Caf\u00e9.mov", "CAFE\u0301", true},
		{"clip.mp4", "other", false},
		{"clip.mp4", "   ", false},
	}
	for _, tc := range cases {
		if got := ContainsFold(tc.haystack, tc.needle); got != tc.want {
			t.Fatalf("ContainsFold(%q, %q) = %v, want %v", tc.haystack, tc.needle, got, tc.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"My: Movie?":   "My- Movie",
		"a/b\\c":       "a-b-c",
		"  spaced  ":   "spaced",
		"..":           "untitled",
		"???":          "untitled",
		"episode *1*":  "episode -1-",
		"Road   Trip":  "Road Trip",
		"bell\x07.mp4": "bell.mp4",
	}
	for input, want := range cases {
		if got := SanitizeFileName(input); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}
