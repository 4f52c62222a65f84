package mzml

import (
	"fmt"
	"strconv"
	"strings"
)

// CVParam is one controlled vocabulary term as written to the document.
type CVParam struct {
	CVRef         string `xml:"cvRef,attr"`
	Accession     string `xml:"accession,attr"`
	Name          string `xml:"name,attr"`
	Value         string `xml:"value,attr"`
	UnitCVRef     string `xml:"unitCvRef,attr,omitempty"`
	UnitAccession string `xml:"unitAccession,attr,omitempty"`
	UnitName      string `xml:"unitName,attr,omitempty"`
}

type unit struct {
	cv        string
	accession string
	name      string
}

var (
	unitMZ         = unit{"MS", "MS:1000040", "m/z"}
	unitCounts     = unit{"MS", "MS:1000131", "number of detector counts"}
	unitMinute     = unit{"UO", "UO:0000031", "minute"}
	unitEV         = unit{"UO", "UO:0000266", "electronvolt"}
	unitVsPerCm2   = unit{"MS", "MS:1002814", "volt-second per square centimeter"}
	unitAngstromSq = unit{"UO", "UO:0000324", "square angstrom"}
)

type term struct {
	accession string
	unit      *unit
}

// terms maps PSI-MS term names to accessions. Only terms the converter emits
// are listed.
var terms = map[string]term{
	"MS1 spectrum":                                {accession: "MS:1000579"},
	"MSn spectrum":                                {accession: "MS:1000580"},
	"centroid spectrum":                           {accession: "MS:1000127"},
	"profile spectrum":                            {accession: "MS:1000128"},
	"positive scan":                               {accession: "MS:1000130"},
	"negative scan":                               {accession: "MS:1000129"},
	"ms level":                                    {accession: "MS:1000511"},
	"total ion current":                           {accession: "MS:1000285", unit: &unitCounts},
	"base peak m/z":                               {accession: "MS:1000504", unit: &unitMZ},
	"base peak intensity":                         {accession: "MS:1000505", unit: &unitCounts},
	"highest observed m/z":                        {accession: "MS:1000527", unit: &unitMZ},
	"lowest observed m/z":                         {accession: "MS:1000528", unit: &unitMZ},
	"maldi spot identifier":                       {accession: "MS:1000832"},
	"spectrum title":                              {accession: "MS:1000796"},
	"collision energy":                            {accession: "MS:1000045", unit: &unitEV},
	"no combination":                              {accession: "MS:1000795"},
	"scan start time":                             {accession: "MS:1000016", unit: &unitMinute},
	"isolation window target m/z":                 {accession: "MS:1000827", unit: &unitMZ},
	"isolation window lower offset":               {accession: "MS:1000828", unit: &unitMZ},
	"isolation window upper offset":               {accession: "MS:1000829", unit: &unitMZ},
	"selected ion m/z":                            {accession: "MS:1000744", unit: &unitMZ},
	"peak intensity":                              {accession: "MS:1000042", unit: &unitCounts},
	"charge state":                                {accession: "MS:1000041"},
	"inverse reduced ion mobility":                {accession: "MS:1002815", unit: &unitVsPerCm2},
	"collisional cross sectional area":            {accession: "MS:1002954", unit: &unitAngstromSq},
	"m/z array":                                   {accession: "MS:1000514", unit: &unitMZ},
	"intensity array":                             {accession: "MS:1000515", unit: &unitCounts},
	"mean inverse reduced ion mobility array":     {accession: "MS:1002816", unit: &unitVsPerCm2},
	"64-bit float":                                {accession: "MS:1000523"},
	"32-bit float":                                {accession: "MS:1000521"},
	"zlib compression":                            {accession: "MS:1000574"},
	"no compression":                              {accession: "MS:1000576"},
	"electrospray ionization":                     {accession: "MS:1000073"},
	"nanoelectrospray":                            {accession: "MS:1000398"},
	"atmospheric pressure chemical ionization":    {accession: "MS:1000070"},
	"atmospheric pressure photoionization":        {accession: "MS:1000382"},
	"matrix-assisted laser desorption ionization": {accession: "MS:1000075"},
	"quadrupole":                                  {accession: "MS:1000081"},
	"time-of-flight":                              {accession: "MS:1000084"},
	"electron multiplier":                         {accession: "MS:1000253"},
	"micrOTOFcontrol":                             {accession: "MS:1000726"},
	"custom unreleased software tool":             {accession: "MS:1000799"},
	"Conversion to mzML":                          {accession: "MS:1000544"},

	// imzML imaging terms.
	"universally unique identifier": {accession: "IMS:1000080"},
	"continuous":                    {accession: "IMS:1000030"},
	"processed":                     {accession: "IMS:1000031"},
	"max count of pixels x":         {accession: "IMS:1000042"},
	"max count of pixels y":         {accession: "IMS:1000043"},
	"position x":                    {accession: "IMS:1000050"},
	"position y":                    {accession: "IMS:1000051"},
	"external data":                 {accession: "IMS:1000101"},
	"external offset":               {accession: "IMS:1000102"},
	"external array length":         {accession: "IMS:1000103"},
	"external encoded length":       {accession: "IMS:1000104"},
}

// Known reports whether name is a term the writer can emit.
func Known(name string) bool {
	_, ok := terms[name]
	return ok
}

// Param names a term with an optional value.
type Param struct {
	Name  string
	Value string
}

// Term returns a value-less parameter.
func Term(name string) Param {
	return Param{Name: name}
}

// Float returns a parameter carrying a float value.
func Float(name string, v float64) Param {
	return Param{Name: name, Value: strconv.FormatFloat(v, 'g', -1, 64)}
}

// Int returns a parameter carrying an integer value.
func Int(name string, v int) Param {
	return Param{Name: name, Value: strconv.Itoa(v)}
}

// Text returns a parameter carrying a string value.
func Text(name, v string) Param {
	return Param{Name: name, Value: v}
}

// CV resolves the parameter against the term table.
func (p Param) CV() (CVParam, error) {
	t, ok := terms[p.Name]
	if !ok {
		return CVParam{}, fmt.Errorf("unknown cv term %q", p.Name)
	}
	ref, _, _ := strings.Cut(t.accession, ":")
	out := CVParam{CVRef: ref, Accession: t.accession, Name: p.Name, Value: p.Value}
	if t.unit != nil {
		out.UnitCVRef = t.unit.cv
		out.UnitAccession = t.unit.accession
		out.UnitName = t.unit.name
	}
	return out, nil
}

// CVParams resolves every parameter, failing on the first unknown term.
func CVParams(params []Param) ([]CVParam, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make([]CVParam, 0, len(params))
	for _, p := range params {
		cv, err := p.CV()
		if err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, nil
}
