package imzml

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"timsconvert/internal/mzml"
	"timsconvert/internal/spectrum"
)

// ErrContinuousMismatch is returned when a continuous-mode spectrum does not
// share the m/z axis written for the first pixel.
var ErrContinuousMismatch = errors.New("imzml: continuous mode requires a shared m/z array")

// Options configures the pair of output files.
type Options struct {
	Mode            spectrum.ImzMLMode
	Encoding        spectrum.Encoding
	Compression     spectrum.Compression
	Polarity        spectrum.Polarity
	Centroided      bool
	IncludeMobility bool
	// Software is recorded in the software list of the imzML header.
	SoftwareID      string
	SoftwareVersion string
}

type arrayRef struct {
	offset  int64
	length  int
	encoded int
}

type pixel struct {
	x, y      int
	tic       float64
	mz        arrayRef
	intensity arrayRef
	mobility  *arrayRef
}

// Writer streams binary arrays into the .ibd file as spectra arrive and writes
// the imzML document that indexes them on Close. Both files are written under
// _tmp names and only renamed to their final paths once complete.
type Writer struct {
	path    string
	ibdPath string
	opts    Options
	id      uuid.UUID

	ibd    *os.File
	out    *bufio.Writer
	offset int64

	sharedMZ *arrayRef
	pixels   []pixel
	closed   bool
}

// IBDPath returns the binary companion path for an imzML path.
func IBDPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".ibd"
}

// tempPath is where path is written until the pair is complete.
func tempPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_tmp" + ext
}

// Create opens the temporary .ibd companion of path and writes its UUID
// header.
func Create(path string, opts Options) (*Writer, error) {
	if opts.Encoding == 0 {
		opts.Encoding = spectrum.Encoding64
	}
	w := &Writer{path: path, ibdPath: IBDPath(path), opts: opts, id: uuid.New()}
	file, err := os.Create(tempPath(w.ibdPath))
	if err != nil {
		return nil, fmt.Errorf("create ibd: %w", err)
	}
	w.ibd = file
	w.out = bufio.NewWriter(file)
	if _, err := w.out.Write(w.id[:]); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return nil, fmt.Errorf("write ibd uuid: %w", err)
	}
	w.offset = int64(len(w.id))
	return w, nil
}

// Path returns the imzML document path.
func (w *Writer) Path() string { return w.path }

// UUID returns the identifier shared by the imzML header and the .ibd file.
func (w *Writer) UUID() uuid.UUID { return w.id }

// Written returns the number of spectra added so far.
func (w *Writer) Written() int { return len(w.pixels) }

// AddSpectrum appends one pixel. mobility is ignored unless the writer was
// created with IncludeMobility, in which case it must match mz in length.
func (w *Writer) AddSpectrum(mz, intensity, mobility []float64, px spectrum.Pixel) error {
	if w.closed {
		return errors.New("imzml: writer closed")
	}
	if len(mz) != len(intensity) {
		return fmt.Errorf("pixel %d,%d: %w", px.X, px.Y, spectrum.ErrArrayLength)
	}
	if w.opts.IncludeMobility && len(mobility) != len(mz) {
		return fmt.Errorf("pixel %d,%d: mobility: %w", px.X, px.Y, spectrum.ErrArrayLength)
	}

	p := pixel{x: px.X, y: px.Y}
	for _, v := range intensity {
		p.tic += v
	}

	var err error
	if w.opts.Mode == spectrum.ImzMLContinuous {
		if w.sharedMZ == nil {
			ref, err := w.writeArray(mz)
			if err != nil {
				return err
			}
			w.sharedMZ = &ref
		} else if w.sharedMZ.length != len(mz) {
			return fmt.Errorf("pixel %d,%d: %w", px.X, px.Y, ErrContinuousMismatch)
		}
		p.mz = *w.sharedMZ
	} else if p.mz, err = w.writeArray(mz); err != nil {
		return err
	}
	if p.intensity, err = w.writeArray(intensity); err != nil {
		return err
	}
	if w.opts.IncludeMobility {
		ref, err := w.writeArray(mobility)
		if err != nil {
			return err
		}
		p.mobility = &ref
	}
	w.pixels = append(w.pixels, p)
	return nil
}

func (w *Writer) writeArray(values []float64) (arrayRef, error) {
	packed, err := mzml.Pack(values, w.opts.Encoding, w.opts.Compression)
	if err != nil {
		return arrayRef{}, err
	}
	if _, err := w.out.Write(packed); err != nil {
		return arrayRef{}, fmt.Errorf("write ibd: %w", err)
	}
	ref := arrayRef{offset: w.offset, length: len(values), encoded: len(packed)}
	w.offset += int64(len(packed))
	return ref, nil
}

// Close flushes the .ibd file, writes the imzML document and moves both to
// their final paths. On failure neither final path is left behind. Calling
// Close more than once is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	flushErr := w.out.Flush()
	closeErr := w.ibd.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		w.removeTemps()
		return fmt.Errorf("close ibd %s: %w", w.ibdPath, err)
	}
	if err := w.writeDocument(tempPath(w.path)); err != nil {
		w.removeTemps()
		return fmt.Errorf("write imzml %s: %w", w.path, err)
	}
	if err := os.Rename(tempPath(w.ibdPath), w.ibdPath); err != nil {
		w.removeTemps()
		return fmt.Errorf("finalize ibd: %w", err)
	}
	if err := os.Rename(tempPath(w.path), w.path); err != nil {
		w.removeTemps()
		_ = os.Remove(w.ibdPath)
		return fmt.Errorf("finalize imzml: %w", err)
	}
	return nil
}

// Discard abandons an unfinished pair and removes its temporary files. It
// does nothing after a successful Close.
func (w *Writer) Discard() error {
	if w.closed {
		return nil
	}
	w.closed = true
	closeErr := w.ibd.Close()
	return errors.Join(closeErr, w.removeTemps())
}

func (w *Writer) removeTemps() error {
	var errs []error
	for _, path := range []string{tempPath(w.ibdPath), tempPath(w.path)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *Writer) writeDocument(path string) error {
	doc := w.document()
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	out := bufio.NewWriter(file)
	out.WriteString(xml.Header)
	enc := xml.NewEncoder(out)
	enc.Indent("", " ")
	encodeErr := enc.Encode(doc)
	out.WriteString("\n")
	flushErr := out.Flush()
	closeErr := file.Close()
	return errors.Join(encodeErr, flushErr, closeErr)
}
