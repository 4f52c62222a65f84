// Package mzml writes PSI mzML 1.1 documents as a single forward pass.
//
// The writer never seeks: the spectrum count is declared up front and the
// document is closed once the last spectrum is appended. Callers that only
// learn the true count afterwards patch the spectrumList line, whose exact
// text SpectrumListLine reproduces.
package mzml
