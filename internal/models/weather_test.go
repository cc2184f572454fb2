package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseObservationTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{
			name: "rfc3339 with offset",
			raw:  "2024-01-15T10:20:00+01:00",
			want: time.Date(2024, 1, 15, 9, 20, 0, 0, time.UTC),
		},
		{
			name: "rfc3339 with fraction and offset",
			raw:  "2024-01-15T10:20:00.000+01:00",
			want: time.Date(2024, 1, 15, 9, 20, 0, 0, time.UTC),
		},
		{
			name: "utc designator",
			raw:  "2024-01-15T10:20:00Z",
			want: time.Date(2024, 1, 15, 10, 20, 0, 0, time.UTC),
		},
		{
			name: "no offset is utc",
			raw:  "2024-01-15T10:20:00",
			want: time.Date(2024, 1, 15, 10, 20, 0, 0, time.UTC),
		},
		{
			name: "sql style with surrounding whitespace",
			raw:  "  2024-01-15 10:20:00\n",
			want: time.Date(2024, 1, 15, 10, 20, 0, 0, time.UTC),
		},
		{
			name: "sqlite storage form",
			raw:  "2024-01-15 09:20:00+00:00",
			want: time.Date(2024, 1, 15, 9, 20, 0, 0, time.UTC),
		},
		{
			name:    "date only",
			raw:     "2024-01-15",
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObservationTime(tt.raw)

			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseObservationTime(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}

			if tt.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("error type = %T, want *ValidationError", err)
				}
				if vErr.Field != "timestamp" {
					t.Errorf("Field = %q, want %q", vErr.Field, "timestamp")
				}
				return
			}

			if !got.Equal(tt.want) {
				t.Errorf("ParseObservationTime(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("Location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestFormatObservationTime(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "2024-01-15T10:20:00.000+01:00", want: "2024-01-15T09:20:00Z"},
		{raw: "2024-01-15 09:20:00+00:00", want: "2024-01-15T09:20:00Z"},
		{raw: "not a time", want: "not a time"},
		{raw: "", want: ""},
	}

	for _, tt := range tests {
		if got := FormatObservationTime(tt.raw); got != tt.want {
			t.Errorf("FormatObservationTime(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

// TestValidationError tests error handling
func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "timestamp",
		Value:   "invalid",
		Message: "invalid timestamp format",
	}

	if err.Error() != "invalid timestamp format" {
		t.Errorf("Error() = %v, want %v", err.Error(), "invalid timestamp format")
	}

	if err.IsTransient() {
		t.Error("ValidationError should not be transient")
	}
}
