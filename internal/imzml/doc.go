// Package imzml writes MALDI imaging output as an imzML document plus its
// binary .ibd companion.
//
// Binary arrays are appended to the .ibd file as pixels arrive; the XML index
// that points into it is written once on Close. Both files carry the same
// UUID.
package imzml
