package mzml

import (
	"bufio"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"timsconvert/internal/spectrum"
)

// Fixed identifiers referenced from the run and spectrum list.
const (
	DataProcessingID          = "exportation"
	InstrumentConfigurationID = "instrument"
)

const indentUnit = "   "

// SpectrumListLine renders the spectrumList opening line exactly as written
// to disk, without the trailing newline.
func SpectrumListLine(count int) string {
	return fmt.Sprintf(`      <spectrumList count="%d" defaultDataProcessingRef="%s">`, count, DataProcessingID)
}

// ErrOutOfOrder is returned when document sections are written out of order.
var ErrOutOfOrder = errors.New("mzml: section written out of order")

type state int

const (
	stateOpen state = iota
	stateMetadata
	stateRun
	stateSpectra
	stateClosed
)

// Options controls how binary arrays are encoded.
type Options struct {
	Encoding    spectrum.Encoding
	Compression spectrum.Compression
}

// SourceFile names the acquisition directory the document was converted from.
type SourceFile struct {
	ID       string
	Name     string
	Location string
}

// Software is one entry of the software list. Params are term names; an
// entry without known terms is described as a custom tool.
type Software struct {
	ID      string
	Version string
	Params  []string
}

// Metadata is the file-level header written before the run.
type Metadata struct {
	FileContent []string
	SourceFile  SourceFile
	Software    []Software
	// Source is the ionisation source term. Empty omits the source component.
	Source    string
	Analyzers []string
	Detector  string
	// ProcessingSoftware is the software id referenced by the exportation
	// data processing entry.
	ProcessingSoftware string
	// Barebones drops the software list and data processing blocks.
	Barebones bool
}

// Precursor is the precursor block of an MS2 spectrum.
type Precursor struct {
	SpectrumRef     string
	IsolationTarget float64
	IsolationLower  float64
	IsolationUpper  float64
	SelectedIonMZ   float64
	Intensity       *float64
	// Charge is omitted when zero.
	Charge     int
	IonParams  []Param
	Activation []Param
}

// Array is one named binary data array.
type Array struct {
	Name   string
	Values []float64
}

// Spectrum is one spectrum element.
type Spectrum struct {
	ID            string
	Params        []Param
	Polarity      spectrum.Polarity
	Centroided    bool
	ScanStartTime float64
	Precursor     *Precursor
	Arrays        []Array
}

// Writer streams an mzML document to disk. Sections must be written in
// order: WriteMetadata, BeginRun, BeginSpectrumList, WriteSpectrum*, Close.
type Writer struct {
	path  string
	opts  Options
	file  *os.File
	out   *bufio.Writer
	state state
	index int
}

// Create truncates path and writes the document prolog.
func Create(path string, opts Options) (*Writer, error) {
	if opts.Encoding == 0 {
		opts.Encoding = spectrum.Encoding64
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create mzml: %w", err)
	}
	w := &Writer{path: path, opts: opts, file: file, out: bufio.NewWriter(file)}
	w.out.WriteString(xml.Header)
	w.out.WriteString(`<mzML xmlns="http://psi.hupo.org/ms/mzml" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" ` +
		`xsi:schemaLocation="http://psi.hupo.org/ms/mzml http://psidev.info/files/ms/mzML/xsd/mzML1.1.0.xsd" version="1.1.0">` + "\n")
	if err := w.encode(defaultCVList, "cvList", 1); err != nil {
		_ = file.Close()
		return nil, err
	}
	return w, nil
}

// Path returns the file being written.
func (w *Writer) Path() string { return w.path }

// Written returns the number of spectra written so far.
func (w *Writer) Written() int { return w.index }

// WriteMetadata writes the file description, software list, instrument
// configuration and data processing blocks.
func (w *Writer) WriteMetadata(md Metadata) error {
	if w.state != stateOpen {
		return fmt.Errorf("%w: metadata", ErrOutOfOrder)
	}
	content := make([]Param, 0, len(md.FileContent))
	for _, name := range md.FileContent {
		content = append(content, Term(name))
	}
	contentCV, err := CVParams(content)
	if err != nil {
		return err
	}
	desc := fileDescription{
		FileContent: paramGroup{CvPar: contentCV},
		SourceFileList: sourceFileList{Count: 1, SourceFile: []sourceFileElem{{
			ID:       md.SourceFile.ID,
			Name:     md.SourceFile.Name,
			Location: (&url.URL{Scheme: "file", Path: md.SourceFile.Location}).String(),
		}}},
	}
	if err := w.encode(desc, "fileDescription", 1); err != nil {
		return err
	}

	if !md.Barebones && len(md.Software) > 0 {
		list := softwareList{Count: len(md.Software)}
		for _, sw := range md.Software {
			list.Software = append(list.Software, softwareElem{ID: sw.ID, Version: sw.Version, CvPar: softwareParams(sw)})
		}
		if err := w.encode(list, "softwareList", 1); err != nil {
			return err
		}
	}

	components, err := instrumentComponents(md)
	if err != nil {
		return err
	}
	configs := instrumentConfigurationList{Count: 1, InstrumentConfiguration: []instrumentConfiguration{{
		ID:            InstrumentConfigurationID,
		ComponentList: components,
	}}}
	if err := w.encode(configs, "instrumentConfigurationList", 1); err != nil {
		return err
	}

	if !md.Barebones {
		conversion, _ := Term("Conversion to mzML").CV()
		processing := dataProcessingList{Count: 1, DataProcessing: []dataProcessing{{
			ID: DataProcessingID,
			ProcessingMethod: []processingMethod{{
				Order:       1,
				SoftwareRef: md.ProcessingSoftware,
				CvPar:       []CVParam{conversion},
			}},
		}}}
		if err := w.encode(processing, "dataProcessingList", 1); err != nil {
			return err
		}
	}
	w.state = stateMetadata
	return nil
}

func softwareParams(sw Software) []CVParam {
	var out []CVParam
	for _, name := range sw.Params {
		if cv, err := Term(name).CV(); err == nil {
			out = append(out, cv)
		}
	}
	if len(out) == 0 {
		cv, _ := Text("custom unreleased software tool", sw.ID).CV()
		out = append(out, cv)
	}
	return out
}

func instrumentComponents(md Metadata) (componentList, error) {
	var list componentList
	order := 0
	if md.Source != "" {
		cv, err := Term(md.Source).CV()
		if err != nil {
			return list, err
		}
		order++
		list.Source = []component{{Order: order, CvPar: []CVParam{cv}}}
	}
	if len(md.Analyzers) > 0 {
		analyzers := make([]Param, 0, len(md.Analyzers))
		for _, name := range md.Analyzers {
			analyzers = append(analyzers, Term(name))
		}
		cvs, err := CVParams(analyzers)
		if err != nil {
			return list, err
		}
		order++
		list.Analyzer = []component{{Order: order, CvPar: cvs}}
	}
	if md.Detector != "" {
		cv, err := Term(md.Detector).CV()
		if err != nil {
			return list, err
		}
		order++
		list.Detector = []component{{Order: order, CvPar: []CVParam{cv}}}
	}
	list.Count = order
	return list, nil
}

// BeginRun opens the run element. startTimeStamp may be empty.
func (w *Writer) BeginRun(id, sourceFileRef, startTimeStamp string) error {
	if w.state != stateMetadata {
		return fmt.Errorf("%w: run", ErrOutOfOrder)
	}
	var b strings.Builder
	b.WriteString(indentUnit + `<run id="` + escape(id) + `" defaultInstrumentConfigurationRef="` + InstrumentConfigurationID + `"`)
	if sourceFileRef != "" {
		b.WriteString(` defaultSourceFileRef="` + escape(sourceFileRef) + `"`)
	}
	if startTimeStamp != "" {
		b.WriteString(` startTimeStamp="` + escape(startTimeStamp) + `"`)
	}
	b.WriteString(">\n")
	if _, err := w.out.WriteString(b.String()); err != nil {
		return err
	}
	w.state = stateRun
	return nil
}

// BeginSpectrumList opens the spectrum list with the declared count.
func (w *Writer) BeginSpectrumList(count int) error {
	if w.state != stateRun {
		return fmt.Errorf("%w: spectrum list", ErrOutOfOrder)
	}
	if _, err := w.out.WriteString(SpectrumListLine(count) + "\n"); err != nil {
		return err
	}
	w.state = stateSpectra
	return nil
}

// WriteSpectrum appends one spectrum element. Its index is assigned from the
// number of spectra already written.
func (w *Writer) WriteSpectrum(s Spectrum) error {
	if w.state != stateSpectra {
		return fmt.Errorf("%w: spectrum", ErrOutOfOrder)
	}
	elem, err := w.spectrumElement(s)
	if err != nil {
		return fmt.Errorf("spectrum %s: %w", s.ID, err)
	}
	if err := w.encode(elem, "", 3); err != nil {
		return fmt.Errorf("spectrum %s: %w", s.ID, err)
	}
	w.index++
	return nil
}

func (w *Writer) spectrumElement(s Spectrum) (spectrumElem, error) {
	params := append([]Param{}, s.Params...)
	switch s.Polarity {
	case spectrum.PolarityPositive:
		params = append(params, Term("positive scan"))
	case spectrum.PolarityNegative:
		params = append(params, Term("negative scan"))
	}
	if s.Centroided {
		params = append(params, Term("centroid spectrum"))
	} else {
		params = append(params, Term("profile spectrum"))
	}
	cvs, err := CVParams(params)
	if err != nil {
		return spectrumElem{}, err
	}
	noCombination, _ := Term("no combination").CV()
	startTime, _ := Float("scan start time", s.ScanStartTime).CV()

	elem := spectrumElem{
		Index: w.index,
		ID:    s.ID,
		CvPar: cvs,
		ScanList: scanList{
			Count: 1,
			CvPar: []CVParam{noCombination},
			Scan:  []scan{{CvPar: []CVParam{startTime}}},
		},
	}
	if len(s.Arrays) > 0 {
		elem.DefaultArrayLength = len(s.Arrays[0].Values)
	}
	if s.Precursor != nil {
		precursor, err := precursorElement(s.Precursor)
		if err != nil {
			return spectrumElem{}, err
		}
		elem.PrecursorList = []precursorList{{Count: 1, Precursor: []precursorElem{precursor}}}
	}

	elem.BinaryDataArrayList.Count = len(s.Arrays)
	for _, arr := range s.Arrays {
		if len(arr.Values) != elem.DefaultArrayLength {
			return spectrumElem{}, fmt.Errorf("%s has %d values, want %d", arr.Name, len(arr.Values), elem.DefaultArrayLength)
		}
		packed, err := Pack(arr.Values, w.opts.Encoding, w.opts.Compression)
		if err != nil {
			return spectrumElem{}, err
		}
		encoded := base64.StdEncoding.EncodeToString(packed)
		arrayCV, err := CVParams([]Param{
			Term(EncodingTerm(w.opts.Encoding)),
			Term(CompressionTerm(w.opts.Compression)),
			Term(arr.Name),
		})
		if err != nil {
			return spectrumElem{}, err
		}
		elem.BinaryDataArrayList.BinaryDataArray = append(elem.BinaryDataArrayList.BinaryDataArray, binaryDataArray{
			EncodedLength: len(encoded),
			CvPar:         arrayCV,
			Binary:        encoded,
		})
	}
	return elem, nil
}

func precursorElement(p *Precursor) (precursorElem, error) {
	window, err := CVParams([]Param{
		Float("isolation window target m/z", p.IsolationTarget),
		Float("isolation window lower offset", p.IsolationLower),
		Float("isolation window upper offset", p.IsolationUpper),
	})
	if err != nil {
		return precursorElem{}, err
	}
	ion := []Param{Float("selected ion m/z", p.SelectedIonMZ)}
	if p.Intensity != nil {
		ion = append(ion, Float("peak intensity", *p.Intensity))
	}
	if p.Charge != 0 {
		ion = append(ion, Int("charge state", p.Charge))
	}
	ion = append(ion, p.IonParams...)
	ionCV, err := CVParams(ion)
	if err != nil {
		return precursorElem{}, err
	}
	activation, err := CVParams(p.Activation)
	if err != nil {
		return precursorElem{}, err
	}
	return precursorElem{
		SpectrumRef:     p.SpectrumRef,
		IsolationWindow: paramGroup{CvPar: window},
		SelectedIonList: selectedIonList{Count: 1, SelectedIon: []paramGroup{{CvPar: ionCV}}},
		Activation:      paramGroup{CvPar: activation},
	}, nil
}

// encode writes v as one indented element at the given depth followed by a
// newline. An empty name uses the element name from v's XMLName.
func (w *Writer) encode(v any, name string, depth int) error {
	enc := xml.NewEncoder(w.out)
	enc.Indent(strings.Repeat(indentUnit, depth), indentUnit)
	var err error
	if name == "" {
		err = enc.Encode(v)
	} else {
		err = enc.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: name}})
	}
	if err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	_, err = w.out.WriteString("\n")
	return err
}

// Close writes the closing tags for every open section, flushes and closes
// the file. Calling Close more than once is a no-op.
func (w *Writer) Close() error {
	if w.state == stateClosed {
		return nil
	}
	var tail string
	switch w.state {
	case stateSpectra:
		tail = indentUnit + indentUnit + "</spectrumList>\n" + indentUnit + "</run>\n"
	case stateRun:
		tail = indentUnit + "</run>\n"
	}
	w.state = stateClosed
	_, writeErr := w.out.WriteString(tail + "</mzML>\n")
	flushErr := w.out.Flush()
	closeErr := w.file.Close()
	if err := errors.Join(writeErr, flushErr, closeErr); err != nil {
		return fmt.Errorf("close mzml %s: %w", w.path, err)
	}
	return nil
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
