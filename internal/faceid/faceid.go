// Package faceid derives and parses the stable string identifier attached
// to every indexed face.
package faceid

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/your-org/faceindex/internal/geometry"
)

// Make builds a faceID of the form
// "<fileID>_<xMin>_<yMin>_<xMax>_<yMax>" from a detection box in source
// pixel coordinates and the source image dimensions (§4.7).
func Make(fileID int64, box geometry.Box, dims geometry.Dimensions) string {
	w := float64(dims.Width)
	h := float64(dims.Height)

	xMin := box.X / w
	yMin := box.Y / h
	xMax := (box.X + box.Width) / w
	yMax := (box.Y + box.Height) / h

	return fmt.Sprintf("%d_%s_%s_%s_%s", fileID, part(xMin), part(yMin), part(xMax), part(yMax))
}

// part clamps v to [0, 0.999999] and formats its fractional portion as a
// 5-digit zero-padded decimal string (e.g. 0.12345 -> "12345"), truncating
// (not rounding) to 5 decimal places.
func part(v float64) string {
	const maxFrac = 0.999999
	if v < 0 {
		v = 0
	}
	if v > maxFrac {
		v = maxFrac
	}

	// Epsilon guards against float64 rounding error (e.g. a ratio that
	// should be 0.1 computed as 0.09999999999999998) tipping a truncation
	// down a digit.
	fiveDigit := int64(math.Floor(v*100000 + 1e-7))
	if fiveDigit > 99999 {
		fiveDigit = 99999
	}

	return fmt.Sprintf("%05d", fiveDigit)
}

// FileIDFromFaceID parses the fileID prefix (up to the first '_') from a
// faceID. Returns (0, false) on any parse failure — this is recoverable,
// non-fatal (§7 InvalidFaceID), never a panic or process exit.
func FileIDFromFaceID(id string) (int64, bool) {
	idx := strings.IndexByte(id, '_')
	if idx < 0 {
		return 0, false
	}
	fid, err := strconv.ParseInt(id[:idx], 10, 64)
	if err != nil {
		return 0, false
	}
	return fid, true
}
