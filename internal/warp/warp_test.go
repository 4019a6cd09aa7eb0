package warp

import "testing"

func solidSource(w, h int, r, g, b byte) Source {
	pix := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		pix[i*4+0] = r
		pix[i*4+1] = g
		pix[i*4+2] = b
		pix[i*4+3] = 255
	}
	return Source{Pix: pix, Width: w, Height: h}
}

// identityAffine maps output crop coordinates directly onto the same
// region of a 112x112 source image (scale 1, no rotation/translation).
func identityAffine() [3][3]float64 {
	return [3][3]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

func TestFaceConstantImage(t *testing.T) {
	src := solidSource(OutputSize, OutputSize, 100, 150, 200)

	out, err := Face(src, identityAffine())
	if err != nil {
		t.Fatalf("Face() error = %v", err)
	}
	if len(out) != OutputSize*OutputSize*Channels {
		t.Fatalf("len(out) = %d, want %d", len(out), OutputSize*OutputSize*Channels)
	}

	wantR := (float32(100) - MeanNorm) / StdNorm
	wantG := (float32(150) - MeanNorm) / StdNorm
	wantB := (float32(200) - MeanNorm) / StdNorm

	// Check an interior pixel, away from the edge-clamp border.
	idx := (OutputSize/2*OutputSize + OutputSize/2) * Channels
	const eps = 1e-4
	if absF(out[idx]-wantR) > eps || absF(out[idx+1]-wantG) > eps || absF(out[idx+2]-wantB) > eps {
		t.Fatalf("pixel = (%v,%v,%v), want (%v,%v,%v)", out[idx], out[idx+1], out[idx+2], wantR, wantG, wantB)
	}
}

func TestFaceRejectsMismatchedSource(t *testing.T) {
	src := Source{Pix: make([]byte, 10), Width: 10, Height: 10}
	if _, err := Face(src, identityAffine()); err != ErrInvalidSource {
		t.Fatalf("err = %v, want ErrInvalidSource", err)
	}
}

func TestBatchOrdersCropsByAffineIndex(t *testing.T) {
	src := solidSource(OutputSize, OutputSize, 10, 20, 30)
	affines := [][3][3]float64{identityAffine(), identityAffine()}

	out, err := Batch(src, affines)
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if len(out) != 2*OutputSize*OutputSize*Channels {
		t.Fatalf("len(out) = %d, want %d", len(out), 2*OutputSize*OutputSize*Channels)
	}
}

func absF(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
