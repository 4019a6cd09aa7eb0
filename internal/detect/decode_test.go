package detect

import "testing"

func buildRow(score float32, xc, yc, w, h float32) []float32 {
	row := make([]float32, Cols)
	row[0], row[1], row[2], row[3], row[4] = xc, yc, w, h, score
	for i := 5; i < 15; i++ {
		row[i] = float32(i)
	}
	return row
}

func TestDecodeFiltersByScore(t *testing.T) {
	tensor := make([]float32, Rows*Cols)
	copy(tensor[0*Cols:], buildRow(0.9, 100, 100, 50, 60))
	copy(tensor[1*Cols:], buildRow(0.3, 10, 10, 5, 5))   // below threshold
	copy(tensor[2*Cols:], buildRow(0.7, 200, 200, 20, 20)) // exactly at threshold

	candidates, err := Decode(tensor)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(candidates))
	}

	first := candidates[0]
	if first.Box.X != 75 || first.Box.Y != 70 || first.Box.Width != 50 || first.Box.Height != 60 {
		t.Fatalf("unexpected box: %+v", first.Box)
	}
	if first.Score != 0.9 {
		t.Fatalf("Score = %v, want 0.9", first.Score)
	}

	second := candidates[1]
	if second.Box.X != 190 || second.Box.Y != 190 {
		t.Fatalf("unexpected second box: %+v", second.Box)
	}
}

func TestDecodeRejectsMalformedLength(t *testing.T) {
	_, err := Decode(make([]float32, 10))
	if err != ErrMalformedOutput {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}
}

func TestDecodePreservesRowOrder(t *testing.T) {
	tensor := make([]float32, Rows*Cols)
	copy(tensor[5*Cols:], buildRow(0.95, 1, 1, 1, 1))
	copy(tensor[2*Cols:], buildRow(0.8, 2, 2, 2, 2))

	candidates, err := Decode(tensor)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(candidates))
	}
	// Row 2 precedes row 5.
	if candidates[0].Box.X != 1 || candidates[1].Box.X != 0.5 {
		t.Fatalf("row order not preserved: %+v", candidates)
	}
}
