// Package acquisition is the boundary to Bruker acquisitions stored in a `.d`
// directory.
//
// Three tabular schemas are supported and selected once per input by the file
// present in the directory: analysis.tdf (timsTOF with trapped ion mobility),
// analysis.tsf (timsTOF without mobility, typically MALDI) and analysis.sqlite
// (the BAF2SQL cache of older TOF acquisitions). Each schema adapter reads its
// frame, precursor and MS/MS tables into a common catalog of Frame and Product
// rows and implements the Schema interface, so the rest of the pipeline never
// inspects the concrete schema.
//
// Binary frame storage is not decoded here. Peak arrays are obtained from a
// Decoder; the bundled SQLiteDecoder reads payloads that a vendor-library
// export step stored alongside the metadata in these tables:
//
//	DecodedPeaks(Frame INTEGER, Mode TEXT, Mz BLOB, Intensity BLOB, Mobility BLOB)
//	DecodedPrecursorPeaks(Precursor INTEGER, Mode TEXT, Mz BLOB, Intensity BLOB)
//	DecodedPrecursorMobility(Precursor INTEGER, OneOverK0 REAL)
//
// Blobs are little-endian float64 arrays; Mode is one of profile, centroid, raw.
package acquisition
