package mzml

import "encoding/xml"

type userParam struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr,omitempty"`
	Type  string `xml:"type,attr,omitempty"`
}

type cvEntry struct {
	ID       string `xml:"id,attr"`
	FullName string `xml:"fullName,attr"`
	Version  string `xml:"version,attr,omitempty"`
	URI      string `xml:"URI,attr"`
}

type cvList struct {
	Count int       `xml:"count,attr"`
	CV    []cvEntry `xml:"cv"`
}

var defaultCVList = cvList{
	Count: 2,
	CV: []cvEntry{
		{ID: "MS", FullName: "Proteomics Standards Initiative Mass Spectrometry Ontology", Version: "4.1.30", URI: "https://raw.githubusercontent.com/HUPO-PSI/psi-ms-CV/master/psi-ms.obo"},
		{ID: "UO", FullName: "Unit Ontology", URI: "http://ontologies.berkeleybop.org/uo.obo"},
	},
}

type paramGroup struct {
	CvPar   []CVParam   `xml:"cvParam,omitempty"`
	UserPar []userParam `xml:"userParam,omitempty"`
}

type sourceFileElem struct {
	ID       string `xml:"id,attr"`
	Name     string `xml:"name,attr"`
	Location string `xml:"location,attr"`
}

type sourceFileList struct {
	Count      int              `xml:"count,attr"`
	SourceFile []sourceFileElem `xml:"sourceFile"`
}

type fileDescription struct {
	FileContent    paramGroup     `xml:"fileContent"`
	SourceFileList sourceFileList `xml:"sourceFileList"`
}

type softwareElem struct {
	ID      string    `xml:"id,attr"`
	Version string    `xml:"version,attr"`
	CvPar   []CVParam `xml:"cvParam"`
}

type softwareList struct {
	Count    int            `xml:"count,attr"`
	Software []softwareElem `xml:"software"`
}

type component struct {
	Order int       `xml:"order,attr"`
	CvPar []CVParam `xml:"cvParam"`
}

type componentList struct {
	Count    int         `xml:"count,attr"`
	Source   []component `xml:"source,omitempty"`
	Analyzer []component `xml:"analyzer,omitempty"`
	Detector []component `xml:"detector,omitempty"`
}

type instrumentConfiguration struct {
	ID            string        `xml:"id,attr"`
	ComponentList componentList `xml:"componentList"`
}

type instrumentConfigurationList struct {
	Count                   int                       `xml:"count,attr"`
	InstrumentConfiguration []instrumentConfiguration `xml:"instrumentConfiguration"`
}

type processingMethod struct {
	Order       int       `xml:"order,attr"`
	SoftwareRef string    `xml:"softwareRef,attr"`
	CvPar       []CVParam `xml:"cvParam"`
}

type dataProcessing struct {
	ID               string             `xml:"id,attr"`
	ProcessingMethod []processingMethod `xml:"processingMethod"`
}

type dataProcessingList struct {
	Count          int              `xml:"count,attr"`
	DataProcessing []dataProcessing `xml:"dataProcessing"`
}

type spectrumElem struct {
	XMLName            xml.Name  `xml:"spectrum"`
	Index              int       `xml:"index,attr"`
	ID                 string    `xml:"id,attr"`
	DefaultArrayLength int       `xml:"defaultArrayLength,attr"`
	CvPar              []CVParam `xml:"cvParam,omitempty"`
	ScanList           scanList  `xml:"scanList"`
	// A slice so that MS1-shaped spectra carry no precursorList element.
	PrecursorList       []precursorList     `xml:"precursorList,omitempty"`
	BinaryDataArrayList binaryDataArrayList `xml:"binaryDataArrayList"`
}

type scanList struct {
	Count int       `xml:"count,attr"`
	CvPar []CVParam `xml:"cvParam,omitempty"`
	Scan  []scan    `xml:"scan"`
}

type scan struct {
	CvPar []CVParam `xml:"cvParam,omitempty"`
}

type precursorList struct {
	Count     int             `xml:"count,attr"`
	Precursor []precursorElem `xml:"precursor"`
}

type precursorElem struct {
	SpectrumRef     string          `xml:"spectrumRef,attr,omitempty"`
	IsolationWindow paramGroup      `xml:"isolationWindow"`
	SelectedIonList selectedIonList `xml:"selectedIonList"`
	Activation      paramGroup      `xml:"activation"`
}

type selectedIonList struct {
	Count       int          `xml:"count,attr"`
	SelectedIon []paramGroup `xml:"selectedIon"`
}

type binaryDataArrayList struct {
	Count           int               `xml:"count,attr"`
	BinaryDataArray []binaryDataArray `xml:"binaryDataArray"`
}

type binaryDataArray struct {
	EncodedLength int       `xml:"encodedLength,attr"`
	CvPar         []CVParam `xml:"cvParam"`
	Binary        string    `xml:"binary"`
}
