// Package extract recovers artist-name candidates from unstructured venue page text.
//
// Venue pages rarely expose a stable "artist" element, so extraction works on the
// rendered text: a window of text around each located date is cut out, split into
// lines, and each line is run through a conservative rejection chain. The chain
// prefers missing a real act over reporting calendar furniture ("Doors 7pm",
// "All Ages", weekday headers) as one.
package extract
