package faceid

import (
	"regexp"
	"testing"

	"github.com/your-org/faceindex/internal/geometry"
)

func TestMakeS2(t *testing.T) {
	got := Make(42, geometry.Box{X: 10, Y: 20, Width: 30, Height: 40}, geometry.Dimensions{Width: 100, Height: 100})
	want := "42_10000_20000_40000_60000"
	if got != want {
		t.Fatalf("Make() = %q, want %q", got, want)
	}
}

func TestMakeS3Clamping(t *testing.T) {
	got := Make(7, geometry.Box{X: 99, Y: 0, Width: 10, Height: 50}, geometry.Dimensions{Width: 100, Height: 100})
	want := "7_99000_00000_99999_50000"
	if got != want {
		t.Fatalf("Make() = %q, want %q", got, want)
	}
}

var faceIDPattern = regexp.MustCompile(`^\d+(_\d{5}){4}$`)

func TestMakeMatchesPattern(t *testing.T) {
	got := Make(123, geometry.Box{X: 5, Y: 5, Width: 20, Height: 20}, geometry.Dimensions{Width: 200, Height: 150})
	if !faceIDPattern.MatchString(got) {
		t.Fatalf("Make() = %q does not match %s", got, faceIDPattern)
	}
}

func TestFileIDRoundTrip(t *testing.T) {
	for _, fid := range []int64{0, 1, 42, 999999} {
		id := Make(fid, geometry.Box{X: 1, Y: 1, Width: 10, Height: 10}, geometry.Dimensions{Width: 100, Height: 100})
		got, ok := FileIDFromFaceID(id)
		if !ok {
			t.Fatalf("FileIDFromFaceID(%q) ok = false", id)
		}
		if got != fid {
			t.Fatalf("FileIDFromFaceID(%q) = %d, want %d", id, got, fid)
		}
	}
}

func TestFileIDFromFaceIDInvalid(t *testing.T) {
	for _, id := range []string{"", "nodash", "abc_123"} {
		if _, ok := FileIDFromFaceID(id); ok {
			t.Fatalf("FileIDFromFaceID(%q) ok = true, want false", id)
		}
	}
}
