// Copyright 2024-2025 LIFS Tools
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mztab

import (
	"fmt"
	"regexp"
	"strings"
)

// Section keys of the tabular document model. The mzTab-M keys are SUMMARY,
// FEATURE and EVIDENCE; the mzTab 1.0 keys are PROTEINS, PEPTIDES and PSMS.
const (
	SectionMeta     = "META"
	SectionSummary  = "SUMMARY"
	SectionFeature  = "FEATURE"
	SectionEvidence = "EVIDENCE"
	SectionProteins = "PROTEINS"
	SectionPeptides = "PEPTIDES"
	SectionPSMs     = "PSMS"
)

const MetadataVersionKey = "mzTab-version"

// Param is a controlled-vocabulary parameter, the bracketed four-tuple
// [CV label, accession, name, value] used throughout mzTab metadata.
type Param struct {
	CvLabel   string
	Accession string
	Name      string
	Value     string
}

func (p Param) String() string {
	return fmt.Sprintf("[%s, %s, %s, %s]", p.CvLabel, p.Accession, p.Name, p.Value)
}

// ParseParam parses a bracketed parameter. Returns an error for anything
// that opens a bracket but does not follow the four-element form.
func ParseParam(value string) (*Param, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, fmt.Errorf("parameter '%s' is not bracketed", value)
	}
	inner := trimmed[1 : len(trimmed)-1]
	parts := strings.SplitN(inner, ",", 4)
	if len(parts) != 4 {
		return nil, fmt.Errorf("parameter '%s' has %d elements, expected 4", value, len(parts))
	}
	return &Param{
		CvLabel:   strings.TrimSpace(parts[0]),
		Accession: strings.TrimSpace(parts[1]),
		Name:      strings.TrimSpace(parts[2]),
		Value:     strings.TrimSpace(parts[3]),
	}, nil
}

// IsParamValue reports whether a metadata value looks like a bracketed
// parameter and should be checked with ParseParam.
func IsParamValue(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "[")
}

// MetadataEntry is one MTD line. Entries keep file order.
type MetadataEntry struct {
	LineNumber int64
	Key        string
	Value      string
}

var indexSuffix = regexp.MustCompile(`\[[0-9]+\]`)

// ElementPath normalizes the entry key into a dotted element path rooted at
// "metadata", with element indices removed: "software[1]-setting[2]" becomes
// "metadata.software.setting". Semantic mapping rules address entries by
// this path.
func (m MetadataEntry) ElementPath() string {
	key := indexSuffix.ReplaceAllString(m.Key, "")
	key = strings.ReplaceAll(key, "-", ".")
	return "metadata." + key
}

// Table is one typed data section: a header and its rows, without the
// leading section prefix column.
type Table struct {
	Header     []string
	HeaderLine int64
	Rows       [][]string
	RowLines   []int64
}

// MzTab is the parsed document. It is produced once per parse invocation and
// never shared across requests or mutated afterwards.
type MzTab struct {
	Metadata []MetadataEntry
	Tables   map[string]*Table
}

// Version returns the declared mzTab-version metadata value, if any.
func (m *MzTab) Version() string {
	return m.MetadataValue(MetadataVersionKey)
}

func (m *MzTab) MetadataValue(key string) string {
	for _, entry := range m.Metadata {
		if entry.Key == key {
			return entry.Value
		}
	}
	return ""
}

// ParamsAt returns all well-formed parameters of metadata entries whose
// normalized element path equals path. Entries with malformed parameter
// values are skipped; the structural pass already reported those.
func (m *MzTab) ParamsAt(path string) []Param {
	var result []Param
	for _, entry := range m.Metadata {
		if entry.ElementPath() != path {
			continue
		}
		if !IsParamValue(entry.Value) {
			continue
		}
		if p, err := ParseParam(entry.Value); err == nil {
			result = append(result, *p)
		}
	}
	return result
}

// HasEntriesAt reports whether any metadata entry (well-formed parameter or
// not) lives at the given element path.
func (m *MzTab) HasEntriesAt(path string) bool {
	for _, entry := range m.Metadata {
		if entry.ElementPath() == path {
			return true
		}
	}
	return false
}
