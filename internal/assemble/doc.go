// Package assemble turns acquisition rows and decoded peak arrays into
// spectrum records, one frame range at a time.
//
// An Assembler is built once per input from the schema and the export
// options. It resolves the effective export mode (TSF data has no raw point
// export and falls back to centroid), decides whether mobility arrays are
// kept, optionally rebins profile spectra, and links MS2 products to the MS1
// parents assembled from the same range. Spectra without peaks are dropped.
package assemble
