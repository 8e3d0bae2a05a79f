package artifact

import (
	"errors"
	"testing"
)

func TestIDFromToken(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{"with extension", "abc.jpg", "abc", false},
		{"bare id", "abc", "abc", false},
		{"multiple dots", "abc.tar.gz", "abc", false},
		{"leading dot", ".jpg", "", true},
		{"empty", "", "", true},
		{"whitespace", "  .jpg", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := IDFromToken(tc.token)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Fatalf("IDFromToken(%q) error = %v, want ErrInvalidID", tc.token, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("IDFromToken(%q) error = %v", tc.token, err)
			}
			if got != tc.want {
				t.Fatalf("IDFromToken(%q) = %q, want %q", tc.token, got, tc.want)
			}
		})
	}
}

func TestSrc(t *testing.T) {
	t.Parallel()

	if got := Src(ID("0190")); got != "/images/0190.jpg" {
		t.Fatalf("Src() = %q", got)
	}
}
