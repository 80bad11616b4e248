// Package chunk splits hymn text into bounded, overlapping pieces for
// embedding.
//
// Chunks are produced lazily as an iter.Seq. Every range over the sequence
// walks the text again from the start, so a sequence can be consumed more
// than once and always yields the same chunks.
package chunk
