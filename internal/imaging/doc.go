// Package imaging normalizes acquired image payloads for publishing.
//
// A Normalizer downscales images wider than the configured maximum
// (Catmull-Rom, aspect ratio preserved), re-encodes them to the target
// encoding and walks a descending JPEG quality ladder until the output fits
// the byte ceiling. When the quality floor is reached and the image is still
// too large it is accepted anyway and marked BestEffort.
//
// Normalization is deterministic for a given input and configuration, and an
// input that already conforms is passed through untouched, so running the
// normalizer on its own output changes nothing.
package imaging
