// Package preflight provides readiness checks for the inputs, plate maps
// and directories a conversion depends on.
//
// These checks run in two contexts:
//   - The convert command calls RunAll before opening any acquisition so a
//     bad output directory or plate map fails before hours of decoding.
//   - The converter calls CheckDirectoryAccess for each resolved output
//     directory, which may differ per input.
//
// Checks tied to an option are skipped when the option is not in use.
package preflight
