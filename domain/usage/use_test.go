package usage_test

import (
	"errors"
	"testing"
	"time"

	"github.com/artpar/accrue/domain/usage"
)

func TestParseInstant(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)

	tests := []struct {
		name string
		in   string
		loc  *time.Location
		want time.Time
	}{
		{"rfc3339", "2024-03-01T10:00:00Z", nil, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"offset", "2024-03-01T10:00:00+02:00", nil, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)},
		{"nanos", "2024-03-01T10:00:00.5Z", nil, time.Date(2024, 3, 1, 10, 0, 0, 5e8, time.UTC)},
		{"date utc", "2024-03-01", nil, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"date in location", "2024-03-01", tokyo, time.Date(2024, 2, 29, 15, 0, 0, 0, time.UTC)},
		{"whitespace", "  2024-03-01 ", nil, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := usage.ParseInstant(tt.in, tt.loc)
			if err != nil {
				t.Fatalf("ParseInstant(%q) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseInstant(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestParseInstant_Invalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2024-13-01", "01/03/2024"} {
		if _, err := usage.ParseInstant(in, time.UTC); !errors.Is(err, usage.ErrBadInstant) {
			t.Errorf("ParseInstant(%q) error = %v, want ErrBadInstant", in, err)
		}
	}
}
