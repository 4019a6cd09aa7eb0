// Package align fits a similarity transform (rotation, isotropic scale,
// translation) from detected face landmarks to the canonical MobileFaceNet
// landmark template, using the Umeyama method, and derives the resulting
// affine matrix and source-space bounding box.
package align

import (
	"errors"
	"math"

	"github.com/your-org/faceindex/internal/geometry"
)

// CropSize is the fixed output face-crop dimension (§4.4, §6.4).
const CropSize = 112

// ErrDegenerateAlignment is returned when the five landmarks are singular
// (e.g. coincident points) and no similarity transform can be fit.
var ErrDegenerateAlignment = errors.New("align: degenerate landmark configuration")

// idealLandmarks is the canonical 112x112 MobileFaceNet template, divided
// by CropSize so the fit target is the unit square.
var idealLandmarks = [5]geometry.Point{
	{X: 38.2946 / CropSize, Y: 51.6963 / CropSize},
	{X: 73.5318 / CropSize, Y: 51.5014 / CropSize},
	{X: 56.0252 / CropSize, Y: 71.7366 / CropSize},
	{X: 41.5493 / CropSize, Y: 92.3655 / CropSize},
	{X: 70.7299 / CropSize, Y: 92.2041 / CropSize},
}

// Alignment is the output of fitting a similarity transform for one face:
// the 3x3 affine mapping source-image pixels into the 112x112 aligned crop
// frame, and the square source-coordinate box the crop covers.
type Alignment struct {
	// AffineMatrix is row-major 3x3: [[RS00,RS01,TR0],[RS10,RS11,TR1],[0,0,1]],
	// where RS and TR are the unit-square fit scaled by CropSize.
	AffineMatrix [3][3]float64
	BoundingBox  geometry.Box
}

// Fit computes the Alignment for five source-pixel landmarks in the fixed
// order [left-eye, right-eye, nose, left-mouth, right-mouth].
func Fit(landmarks [5]geometry.Point) (Alignment, error) {
	rs, tr, scale, err := umeyama(landmarks, idealLandmarks)
	if err != nil {
		return Alignment{}, err
	}

	size := 1 / scale
	toMean := geometry.Centroid(idealLandmarks[:])
	fromMean := geometry.Centroid(landmarks[:])

	meanTranslation := geometry.Point{
		X: (toMean.X - 0.5) * size,
		Y: (toMean.Y - 0.5) * size,
	}
	center := geometry.Point{
		X: fromMean.X - meanTranslation.X,
		Y: fromMean.Y - meanTranslation.Y,
	}

	box := geometry.Box{
		X:      center.X - size/2,
		Y:      center.Y - size/2,
		Width:  size,
		Height: size,
	}

	// rs and tr map source pixels onto the unit-square template; scaling
	// them by CropSize makes the affine land in the crop's pixel frame.
	return Alignment{
		AffineMatrix: [3][3]float64{
			{rs[0][0] * CropSize, rs[0][1] * CropSize, tr.X * CropSize},
			{rs[1][0] * CropSize, rs[1][1] * CropSize, tr.Y * CropSize},
			{0, 0, 1},
		},
		BoundingBox: box,
	}, nil
}

// umeyama solves the least-squares similarity transform mapping `from` onto
// `to`: y = RS*x + TR. Returns the 2x2 rotation-scale matrix, the
// translation, and the isotropic scale factor.
//
// Reference: Umeyama, "Least-squares estimation of transformation
// parameters between two point patterns", PAMI 1991.
func umeyama(from, to [5]geometry.Point) (rs [2][2]float64, tr geometry.Point, scale float64, err error) {
	n := float64(len(from))

	fromMean := geometry.Centroid(from[:])
	toMean := geometry.Centroid(to[:])

	var sigmaFrom float64
	// covariance = (1/n) * sum( (to_i - toMean) * (from_i - fromMean)^T )
	var cov [2][2]float64

	for i := range from {
		fx := from[i].X - fromMean.X
		fy := from[i].Y - fromMean.Y
		tx := to[i].X - toMean.X
		ty := to[i].Y - toMean.Y

		sigmaFrom += fx*fx + fy*fy

		cov[0][0] += tx * fx
		cov[0][1] += tx * fy
		cov[1][0] += ty * fx
		cov[1][1] += ty * fy
	}
	sigmaFrom /= n
	cov[0][0] /= n
	cov[0][1] /= n
	cov[1][0] /= n
	cov[1][1] /= n

	if sigmaFrom == 0 {
		return rs, tr, 0, ErrDegenerateAlignment
	}

	u, d, vt, ok := svd2x2(cov)
	if !ok {
		return rs, tr, 0, ErrDegenerateAlignment
	}

	det := cov[0][0]*cov[1][1] - cov[0][1]*cov[1][0]

	s := [2]float64{1, 1}
	if det < 0 {
		s[1] = -1
	}
	// If the covariance's largest singular value is (near) zero, e.g. for
	// coincident landmarks, the fit is not well-determined.
	if d[0] < 1e-12 {
		return rs, tr, 0, ErrDegenerateAlignment
	}

	r := mul2x2(mul2x2(u, diag(s)), vt)

	traceDS := d[0]*s[0] + d[1]*s[1]
	scale = traceDS / sigmaFrom
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return rs, tr, 0, ErrDegenerateAlignment
	}

	rs = [2][2]float64{
		{r[0][0] * scale, r[0][1] * scale},
		{r[1][0] * scale, r[1][1] * scale},
	}

	tr = geometry.Point{
		X: toMean.X - (rs[0][0]*fromMean.X + rs[0][1]*fromMean.Y),
		Y: toMean.Y - (rs[1][0]*fromMean.X + rs[1][1]*fromMean.Y),
	}

	return rs, tr, scale, nil
}

// svd2x2 computes the singular value decomposition of a 2x2 matrix m,
// returning U, the singular values (descending), and V^T, such that
// m = U * diag(d) * V^T. Returns ok=false when degenerate.
func svd2x2(m [2][2]float64) (u [2][2]float64, d [2]float64, vt [2][2]float64, ok bool) {
	// m^T*m is symmetric 2x2: eigen-decompose directly.
	a := m[0][0]*m[0][0] + m[1][0]*m[1][0]
	b := m[0][0]*m[0][1] + m[1][0]*m[1][1]
	c := m[0][1]*m[0][1] + m[1][1]*m[1][1]

	tr := a + c
	det := a*c - b*b
	disc := tr*tr/4 - det
	if disc < 0 {
		disc = 0
	}
	sq := math.Sqrt(disc)

	lambda1 := tr/2 + sq
	lambda2 := tr/2 - sq
	if lambda1 < 0 {
		lambda1 = 0
	}
	if lambda2 < 0 {
		lambda2 = 0
	}
	d[0] = math.Sqrt(lambda1)
	d[1] = math.Sqrt(lambda2)

	v1 := eigenvector2x2(a, b, c, lambda1)
	v2 := geometry.Point{X: -v1.Y, Y: v1.X}

	vt = [2][2]float64{
		{v1.X, v1.Y},
		{v2.X, v2.Y},
	}

	if d[0] < 1e-12 {
		return u, d, vt, false
	}

	u1 := matVec(m, v1)
	u1 = scaleVec(u1, 1/d[0])

	var u2 geometry.Point
	if d[1] > 1e-12 {
		u2 = matVec(m, v2)
		u2 = scaleVec(u2, 1/d[1])
	} else {
		// Degenerate second singular value: pick the orthogonal direction.
		u2 = geometry.Point{X: -u1.Y, Y: u1.X}
	}

	u = [2][2]float64{
		{u1.X, u2.X},
		{u1.Y, u2.Y},
	}

	return u, d, vt, true
}

func eigenvector2x2(a, b, c, lambda float64) geometry.Point {
	// Solve (M - lambda*I) v = 0 for symmetric M = [[a,b],[b,c]].
	if b != 0 {
		return normalize(geometry.Point{X: b, Y: lambda - a})
	}
	if a >= c {
		return geometry.Point{X: 1, Y: 0}
	}
	return geometry.Point{X: 0, Y: 1}
}

func normalize(p geometry.Point) geometry.Point {
	n := math.Hypot(p.X, p.Y)
	if n == 0 {
		return geometry.Point{X: 1, Y: 0}
	}
	return geometry.Point{X: p.X / n, Y: p.Y / n}
}

func matVec(m [2][2]float64, v geometry.Point) geometry.Point {
	return geometry.Point{
		X: m[0][0]*v.X + m[0][1]*v.Y,
		Y: m[1][0]*v.X + m[1][1]*v.Y,
	}
}

func scaleVec(v geometry.Point, s float64) geometry.Point {
	return geometry.Point{X: v.X * s, Y: v.Y * s}
}

func diag(s [2]float64) [2][2]float64 {
	return [2][2]float64{{s[0], 0}, {0, s[1]}}
}

func mul2x2(a, b [2][2]float64) [2][2]float64 {
	return [2][2]float64{
		{a[0][0]*b[0][0] + a[0][1]*b[1][0], a[0][0]*b[0][1] + a[0][1]*b[1][1]},
		{a[1][0]*b[0][0] + a[1][1]*b[1][0], a[1][0]*b[0][1] + a[1][1]*b[1][1]},
	}
}

// ApplyAffine applies a 3x3 affine matrix to a 2D point, treating the point
// as homogeneous (x, y, 1).
func ApplyAffine(m [3][3]float64, p geometry.Point) geometry.Point {
	return geometry.Point{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2],
	}
}
