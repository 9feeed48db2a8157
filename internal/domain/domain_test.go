package domain

import (
	"strings"
	"testing"
)

func TestPersonLabel(t *testing.T) {
	p := &Person{Names: []string{"Otto", "Otto I.", "Otto"}}
	if got := p.Label(); got != "Otto; Otto I.; Otto" {
		t.Errorf("Label() = %q", got)
	}
}

func TestValidateArchive(t *testing.T) {
	tests := []struct {
		name    string
		archive Archive
		wantErr string
	}{
		{
			name:    "valid",
			archive: Archive{AtomID: "a", CountryCode: "DE", Name: "Archive", RepositoryID: "DE-1"},
		},
		{
			name:    "long country code",
			archive: Archive{AtomID: "a", CountryCode: "DEU", Name: "Archive", RepositoryID: "DE-1"},
			wantErr: "CountryCode must satisfy len=2",
		},
		{
			name:    "missing name",
			archive: Archive{AtomID: "a", CountryCode: "DE", RepositoryID: "DE-1"},
			wantErr: "Name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.archive)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmbeddedCharter(t *testing.T) {
	fc := &FondCharter{Charter: Charter{AtomID: "a", IdnoID: "1", IdnoText: "1"}}
	err := Validate(fc)
	if err == nil || !strings.Contains(err.Error(), "URL is required") {
		t.Fatalf("expected URL to be required, got %v", err)
	}
}

func TestValidateLocationAndTier(t *testing.T) {
	for _, loc := range []Location{LocationAbstract, LocationBack, LocationTenor} {
		if err := ValidateLocation(loc); err != nil {
			t.Errorf("ValidateLocation(%q) = %v", loc, err)
		}
	}
	if err := ValidateLocation("front"); err == nil {
		t.Error("expected error for unknown location")
	}
	if err := ValidateTier(TierSaved); err != nil {
		t.Errorf("ValidateTier(saved) = %v", err)
	}
	if err := ValidateTier("draft"); err == nil {
		t.Error("expected error for unknown tier")
	}
}
