package paths

import (
	"testing"
)

func TestJoinURL(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"slashes everywhere", []string{"http://host/", "/a/", "/b"}, "http://host/a/b"},
		{"no slashes", []string{"http://host", "a", "b"}, "http://host/a/b"},
		{"empty inner part", []string{"http://host", "", "b"}, "http://host/b"},
		{"single part", []string{"http://host/"}, "http://host"},
		{"charter url", []string{MomBaseURL, "DE-Arch", "Fond", "c1", "charter"}, "https://www.monasterium.net/mom/DE-Arch/Fond/c1/charter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinURL(tt.parts...); got != tt.want {
				t.Errorf("JoinURL(%q) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://images.monasterium.net/img/a.jpg", true},
		{"https://example.org/x?y=1", true},
		{"", false},
		{"img/a.jpg", false},
		{"http//broken", false},
	}

	for _, tt := range tests {
		if got := IsValidURL(tt.url); got != tt.want {
			t.Errorf("IsValidURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestCorrectFilename(t *testing.T) {
	if got := CorrectFilename("A&amp;B.xml"); got != "A&B.xml" {
		t.Errorf("CorrectFilename = %q", got)
	}
}

func TestData(t *testing.T) {
	if got := Data("xrx.user", "a@b.c.xml"); got != "db/mom-data/xrx.user/a@b.c.xml" {
		t.Errorf("Data = %q", got)
	}
	if got := Data("metadata.charter.public/", "/x/"); got != "db/mom-data/metadata.charter.public/x" {
		t.Errorf("Data = %q", got)
	}
}

func TestStripSuffix(t *testing.T) {
	if got := StripSuffix("abc.cei.xml", ".cei.xml"); got != "abc" {
		t.Errorf("StripSuffix = %q", got)
	}
	if got := StripSuffix("abc.xml", ".cei.xml"); got != "abc.xml" {
		t.Errorf("StripSuffix = %q", got)
	}
}

func TestIsHostedImage(t *testing.T) {
	if !IsHostedImage("http://images.monasterium.net/img/x.jpg") {
		t.Error("expected hosted image")
	}
	if IsHostedImage("https://example.org/x.jpg") {
		t.Error("expected external image")
	}
}
