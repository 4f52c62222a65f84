// Package convert drives a conversion: it plans chunks over an acquisition,
// assembles their records, routes them to the output topology and reconciles
// the declared spectrum count of every finished mzML file.
//
// Each output is streamed to a <base>_tmp.mzML file under an advisory lock
// and only reaches its final name through a CountReconciler, so a failed
// conversion never leaves a partial file at the final path.
package convert
