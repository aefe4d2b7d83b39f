// Package tracker debounces frame-by-frame recognizer verdicts into one
// confirmed identity per physical appearance. Each spatially continuous face
// region gets a track holding a sliding window of recent verdicts; a track
// confirms once a single identity holds a supermajority of the window at an
// acceptable distance, and emits that confirmation exactly once.
package tracker
