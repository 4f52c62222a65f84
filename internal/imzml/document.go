package imzml

import (
	"encoding/xml"
	"path/filepath"
	"strconv"
	"strings"

	"timsconvert/internal/mzml"
	"timsconvert/internal/spectrum"
)

// Reference group ids for the binary arrays.
const (
	groupMZ        = "mzArray"
	groupIntensity = "intensityArray"
	groupMobility  = "mobilityArray"
)

type ref struct {
	Ref string `xml:"ref,attr"`
}

type params struct {
	Refs  []ref          `xml:"referenceableParamGroupRef,omitempty"`
	CvPar []mzml.CVParam `xml:"cvParam,omitempty"`
}

type cv struct {
	ID       string `xml:"id,attr"`
	FullName string `xml:"fullName,attr"`
	URI      string `xml:"URI,attr"`
}

type document struct {
	XMLName         xml.Name `xml:"http://psi.hupo.org/ms/mzml mzML"`
	Version         string   `xml:"version,attr"`
	CVList          cvList   `xml:"cvList"`
	FileDescription struct {
		FileContent params `xml:"fileContent"`
	} `xml:"fileDescription"`
	ParamGroups struct {
		Count int          `xml:"count,attr"`
		Group []paramGroup `xml:"referenceableParamGroup"`
	} `xml:"referenceableParamGroupList"`
	SoftwareList struct {
		Count    int        `xml:"count,attr"`
		Software []software `xml:"software"`
	} `xml:"softwareList"`
	ScanSettings struct {
		Count    int `xml:"count,attr"`
		Settings struct {
			ID    string         `xml:"id,attr"`
			CvPar []mzml.CVParam `xml:"cvParam"`
		} `xml:"scanSettings"`
	} `xml:"scanSettingsList"`
	Instruments struct {
		Count  int `xml:"count,attr"`
		Config struct {
			ID         string `xml:"id,attr"`
			Components struct {
				Count    int       `xml:"count,attr"`
				Source   component `xml:"source"`
				Analyzer component `xml:"analyzer"`
				Detector component `xml:"detector"`
			} `xml:"componentList"`
		} `xml:"instrumentConfiguration"`
	} `xml:"instrumentConfigurationList"`
	DataProcessing struct {
		Count      int `xml:"count,attr"`
		Processing struct {
			ID     string `xml:"id,attr"`
			Method struct {
				Order       int            `xml:"order,attr"`
				SoftwareRef string         `xml:"softwareRef,attr"`
				CvPar       []mzml.CVParam `xml:"cvParam"`
			} `xml:"processingMethod"`
		} `xml:"dataProcessing"`
	} `xml:"dataProcessingList"`
	Run struct {
		ID            string `xml:"id,attr"`
		InstrumentRef string `xml:"defaultInstrumentConfigurationRef,attr"`
		SpectrumList  struct {
			Count             int            `xml:"count,attr"`
			DataProcessingRef string         `xml:"defaultDataProcessingRef,attr"`
			Spectrum          []spectrumElem `xml:"spectrum"`
		} `xml:"spectrumList"`
	} `xml:"run"`
}

type cvList struct {
	Count int  `xml:"count,attr"`
	CV    []cv `xml:"cv"`
}

type software struct {
	ID      string         `xml:"id,attr"`
	Version string         `xml:"version,attr"`
	CvPar   []mzml.CVParam `xml:"cvParam"`
}

type paramGroup struct {
	ID    string         `xml:"id,attr"`
	CvPar []mzml.CVParam `xml:"cvParam"`
}

type component struct {
	Order int            `xml:"order,attr"`
	CvPar []mzml.CVParam `xml:"cvParam"`
}

type spectrumElem struct {
	ID                 string         `xml:"id,attr"`
	Index              int            `xml:"index,attr"`
	DefaultArrayLength int            `xml:"defaultArrayLength,attr"`
	CvPar              []mzml.CVParam `xml:"cvParam"`
	ScanList           struct {
		Count int            `xml:"count,attr"`
		CvPar []mzml.CVParam `xml:"cvParam"`
		Scan  struct {
			InstrumentRef string         `xml:"instrumentConfigurationRef,attr"`
			CvPar         []mzml.CVParam `xml:"cvParam"`
		} `xml:"scan"`
	} `xml:"scanList"`
	Arrays struct {
		Count int           `xml:"count,attr"`
		Array []binaryArray `xml:"binaryDataArray"`
	} `xml:"binaryDataArrayList"`
}

type binaryArray struct {
	EncodedLength int `xml:"encodedLength,attr"`
	params
	Binary struct{} `xml:"binary"`
}

// must resolves parameters drawn from the fixed term table; an unknown term is
// a programming error.
func must(ps ...mzml.Param) []mzml.CVParam {
	out, err := mzml.CVParams(ps)
	if err != nil {
		panic(err)
	}
	return out
}

func (w *Writer) document() *document {
	doc := &document{Version: "1.1"}
	doc.CVList = cvList{Count: 3, CV: []cv{
		{ID: "MS", FullName: "Proteomics Standards Initiative Mass Spectrometry Ontology", URI: "http://psidev.cvs.sourceforge.net/*checkout*/psidev/psi/psi-ms/mzML/controlledVocabulary/psi-ms.obo"},
		{ID: "UO", FullName: "Unit Ontology", URI: "http://obo.cvs.sourceforge.net/*checkout*/obo/obo/ontology/phenotype/unit.obo"},
		{ID: "IMS", FullName: "Imaging MS Ontology", URI: "http://www.maldi-msi.org/download/imzml/imagingMS.obo"},
	}}

	layout := "processed"
	if w.opts.Mode == spectrum.ImzMLContinuous {
		layout = "continuous"
	}
	representation := "profile spectrum"
	if w.opts.Centroided {
		representation = "centroid spectrum"
	}
	doc.FileDescription.FileContent.CvPar = must(
		mzml.Term("MS1 spectrum"),
		mzml.Term(representation),
		mzml.Text("universally unique identifier", "{"+w.id.String()+"}"),
		mzml.Term(layout),
	)

	arrayParams := func(id, name string) paramGroup {
		return paramGroup{ID: id, CvPar: must(
			mzml.Term(name),
			mzml.Term(mzml.EncodingTerm(w.opts.Encoding)),
			mzml.Term(mzml.CompressionTerm(w.opts.Compression)),
			mzml.Term("external data"),
		)}
	}
	doc.ParamGroups.Group = []paramGroup{
		arrayParams(groupMZ, "m/z array"),
		arrayParams(groupIntensity, "intensity array"),
	}
	if w.opts.IncludeMobility {
		doc.ParamGroups.Group = append(doc.ParamGroups.Group, arrayParams(groupMobility, "mean inverse reduced ion mobility array"))
	}
	doc.ParamGroups.Count = len(doc.ParamGroups.Group)

	softwareID := w.opts.SoftwareID
	if softwareID == "" {
		softwareID = "timsconvert"
	}
	doc.SoftwareList.Count = 1
	doc.SoftwareList.Software = []software{{
		ID:      softwareID,
		Version: w.opts.SoftwareVersion,
		CvPar:   must(mzml.Text("custom unreleased software tool", softwareID)),
	}}

	maxX, maxY := 0, 0
	for _, p := range w.pixels {
		maxX = max(maxX, p.x)
		maxY = max(maxY, p.y)
	}
	doc.ScanSettings.Count = 1
	doc.ScanSettings.Settings.ID = "scansettings1"
	doc.ScanSettings.Settings.CvPar = must(
		mzml.Int("max count of pixels x", maxX),
		mzml.Int("max count of pixels y", maxY),
	)

	doc.Instruments.Count = 1
	doc.Instruments.Config.ID = mzml.InstrumentConfigurationID
	doc.Instruments.Config.Components.Count = 3
	doc.Instruments.Config.Components.Source = component{Order: 1, CvPar: must(mzml.Term("matrix-assisted laser desorption ionization"))}
	doc.Instruments.Config.Components.Analyzer = component{Order: 2, CvPar: must(mzml.Term("quadrupole"), mzml.Term("time-of-flight"))}
	doc.Instruments.Config.Components.Detector = component{Order: 3, CvPar: must(mzml.Term("electron multiplier"))}

	doc.DataProcessing.Count = 1
	doc.DataProcessing.Processing.ID = mzml.DataProcessingID
	doc.DataProcessing.Processing.Method.Order = 1
	doc.DataProcessing.Processing.Method.SoftwareRef = softwareID
	doc.DataProcessing.Processing.Method.CvPar = must(mzml.Term("Conversion to mzML"))

	doc.Run.ID = strings.TrimSuffix(filepath.Base(w.path), filepath.Ext(w.path))
	doc.Run.InstrumentRef = mzml.InstrumentConfigurationID
	doc.Run.SpectrumList.Count = len(w.pixels)
	doc.Run.SpectrumList.DataProcessingRef = mzml.DataProcessingID
	for i, p := range w.pixels {
		doc.Run.SpectrumList.Spectrum = append(doc.Run.SpectrumList.Spectrum, w.spectrumElement(i, p))
	}
	return doc
}

func (w *Writer) spectrumElement(index int, p pixel) spectrumElem {
	spectrumParams := []mzml.Param{mzml.Int("ms level", 1), mzml.Term("MS1 spectrum")}
	switch w.opts.Polarity {
	case spectrum.PolarityPositive:
		spectrumParams = append(spectrumParams, mzml.Term("positive scan"))
	case spectrum.PolarityNegative:
		spectrumParams = append(spectrumParams, mzml.Term("negative scan"))
	}
	if w.opts.Centroided {
		spectrumParams = append(spectrumParams, mzml.Term("centroid spectrum"))
	} else {
		spectrumParams = append(spectrumParams, mzml.Term("profile spectrum"))
	}
	spectrumParams = append(spectrumParams, mzml.Float("total ion current", p.tic))

	var s spectrumElem
	s.ID = "Scan=" + strconv.Itoa(index+1)
	s.Index = index
	s.CvPar = must(spectrumParams...)
	s.ScanList.Count = 1
	s.ScanList.CvPar = must(mzml.Term("no combination"))
	s.ScanList.Scan.InstrumentRef = mzml.InstrumentConfigurationID
	s.ScanList.Scan.CvPar = must(mzml.Int("position x", p.x), mzml.Int("position y", p.y))

	s.Arrays.Array = []binaryArray{external(groupMZ, p.mz), external(groupIntensity, p.intensity)}
	if p.mobility != nil {
		s.Arrays.Array = append(s.Arrays.Array, external(groupMobility, *p.mobility))
	}
	s.Arrays.Count = len(s.Arrays.Array)
	return s
}

func external(group string, a arrayRef) binaryArray {
	return binaryArray{params: params{
		Refs: []ref{{Ref: group}},
		CvPar: must(
			mzml.Int("external offset", int(a.offset)),
			mzml.Int("external array length", a.length),
			mzml.Int("external encoded length", a.encoded),
		),
	}}
}
