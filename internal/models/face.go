// Package models holds the data records the face indexing pipeline
// produces and the envelopes its collaborators wrap them in.
package models

import "github.com/your-org/faceindex/internal/geometry"

// PipelineVersion is the single integer tag coupling model weights,
// constants, and algorithms in this pipeline revision (§3 Invariant 5,
// GLOSSARY).
const PipelineVersion = 1

// FaceDetection is a detected face: a box and its five landmarks, in
// whatever coordinate frame the caller is working in (normalized to [0,1]
// in FaceIndex.Faces, source pixels inside the pipeline before its final
// normalization step).
type FaceDetection struct {
	Box       geometry.Box      `json:"box"`
	Landmarks [5]geometry.Point `json:"landmarks"`
}

// FaceAlignment is the similarity-transform result for one detection: the
// affine matrix mapping source pixels into the 112x112 aligned crop frame,
// and the square source-coordinate box the crop covers (§4.4).
type FaceAlignment struct {
	AffineMatrix [3][3]float64 `json:"affine_matrix"`
	BoundingBox  geometry.Box  `json:"bounding_box"`
}

// Face is one indexed face: a stable identifier, its detection (normalized
// to [0,1] by source image dimensions), detector confidence, blur score,
// and embedding (§3).
type Face struct {
	FaceID    string        `json:"face_id"`
	Detection FaceDetection `json:"detection"`
	Score     float64       `json:"score"`
	Blur      float64       `json:"blur"`
	Embedding [192]float32  `json:"embedding"`
}

// FaceIndex is the per-image record the pipeline produces: source image
// dimensions and every face found, in detector emission order (§3).
type FaceIndex struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Faces  []Face `json:"faces"`
}

// LocalFaceIndex envelopes a FaceIndex with the local database primary key
// for the file it was computed from (§6.2).
type LocalFaceIndex struct {
	FaceIndex
	FileID int64 `json:"file_id" db:"file_id"`
}

// RemoteFaceIndex envelopes a FaceIndex for upload to remote storage with
// the pipeline version and a user-agent-like client tag (§6.3). Remote
// consumers with a strictly newer supported version must ignore
// older-version indices, causing local reindexing.
type RemoteFaceIndex struct {
	FaceIndex
	Version int    `json:"version"`
	Client  string `json:"client"`
}
