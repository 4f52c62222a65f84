// Package spectrum defines the typed records that flow through the conversion
// pipeline.
//
// A Record is one logical spectrum reconstructed from raw acquisition frames:
// an MS1 parent, an MS2 product with a precursor block, or an MS2 product that
// carries no resolvable precursor and is written MS1-shaped. Records are
// produced by the assembler, numbered by the output router and consumed by the
// record writer. The package also owns the small enums shared by every stage
// (spectral mode, array encoding, compression, output topology).
package spectrum
