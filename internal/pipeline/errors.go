package pipeline

import "errors"

// ErrInference wraps any failure returned by a Detector or Embedder. It
// aborts indexing for the whole image (§7): a broken inference backend
// cannot usefully produce a partial result.
var ErrInference = errors.New("pipeline: inference backend failed")

// ErrMalformedDetectorOutput is returned when the detector's output tensor
// does not have the fixed [25200,16] shape the decoder expects (§7). Like
// ErrInference, it aborts the whole image.
var ErrMalformedDetectorOutput = errors.New("pipeline: malformed detector output")

// ErrDegenerateAlignment marks a single candidate whose landmarks do not
// admit a similarity transform (§4.4, §7). Unlike ErrInference, this is
// face-level: the pipeline drops the offending candidate and continues
// with the rest of the image.
var ErrDegenerateAlignment = errors.New("pipeline: degenerate alignment")

// ErrInvalidFaceID marks a face ID that failed to parse back to a file ID
// (§7). By construction Make never produces one, so this only surfaces
// when validating IDs from elsewhere and is never fatal.
var ErrInvalidFaceID = errors.New("pipeline: invalid face id")
