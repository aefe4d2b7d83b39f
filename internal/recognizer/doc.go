// Package recognizer turns face crops into identities. An Embedder extracts
// a fixed-length vector from a crop (dlib via go-face in production) and the
// Gallery matches that vector against stored embeddings with an HNSW index.
// Distance thresholds are the caller's concern; this package only reports
// the nearest candidate.
package recognizer
