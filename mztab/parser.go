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
	"bufio"
	"os"
	"strings"

	"github.com/lifs-tools/mztab-validator-service/view"
)

const (
	metadataPrefix = "MTD"
	commentPrefix  = "COM"
)

type grammar struct {
	headerSections  map[string]string
	dataSections    map[string]string
	requiredColumns map[string][]string
	versionPrefix   string
	sectionOrder    []string
}

var grammars = map[view.MzTabVersion]grammar{
	view.MzTab20: {
		headerSections: map[string]string{"SMH": SectionSummary, "SFH": SectionFeature, "SEH": SectionEvidence},
		dataSections:   map[string]string{"SML": SectionSummary, "SMF": SectionFeature, "SME": SectionEvidence},
		requiredColumns: map[string][]string{
			SectionSummary:  {"SML_ID"},
			SectionFeature:  {"SMF_ID"},
			SectionEvidence: {"SME_ID"},
		},
		versionPrefix: "2.",
		sectionOrder:  []string{SectionSummary, SectionFeature, SectionEvidence},
	},
	view.MzTab10: {
		headerSections: map[string]string{"PRH": SectionProteins, "PEH": SectionPeptides, "PSH": SectionPSMs, "SMH": SectionSummary},
		dataSections:   map[string]string{"PRT": SectionProteins, "PEP": SectionPeptides, "PSM": SectionPSMs, "SML": SectionSummary},
		requiredColumns: map[string][]string{
			SectionProteins: {"accession"},
			SectionPeptides: {"sequence"},
			SectionPSMs:     {"sequence"},
			SectionSummary:  {"identifier"},
		},
		versionPrefix: "1.",
		sectionOrder:  []string{SectionProteins, SectionPeptides, SectionPSMs, SectionSummary},
	},
}

// SectionOrder returns the declared data section order for a format version,
// the order sections are rendered in after META.
func SectionOrder(version view.MzTabVersion) []string {
	return grammars[version].sectionOrder
}

// Parser checks a tab-separated mzTab file against the grammar of one format
// version, bounded by a minimum reporting level.
type Parser struct {
	version  view.MzTabVersion
	minLevel view.Severity
}

func NewParser(version view.MzTabVersion, minLevel view.Severity) *Parser {
	return &Parser{version: version, minLevel: minLevel}
}

type errorCollector struct {
	minLevel view.Severity
	errors   []*Error
}

func (c *errorCollector) add(e *Error) {
	if !c.minLevel.Includes(e.Type.Level) {
		return
	}
	c.errors = append(c.errors, e)
}

// Parse reads the file and returns the document model plus all recoverable
// grammar errors at or above the configured level. The file is always walked
// to the end; any result cap is a presentation concern and applies only after
// the findings have been collated. Recoverable findings never surface as an
// error return: the error is non-nil only for I/O failures or a *ParseError,
// i.e. no document could be produced at all.
func (p *Parser) Parse(path string) (*MzTab, []*Error, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	g := grammars[p.version]
	collector := &errorCollector{minLevel: p.minLevel}
	doc := &MzTab{Tables: map[string]*Table{}}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var lineNumber int64
	recognized := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		columns := strings.Split(line, "\t")
		prefix := columns[0]
		if prefix == commentPrefix {
			continue
		}

		switch {
		case prefix == metadataPrefix:
			recognized++
			p.parseMetadataLine(doc, collector, lineNumber, columns)
		case g.headerSections[prefix] != "":
			recognized++
			p.parseHeaderLine(doc, collector, g, lineNumber, prefix, columns)
		case g.dataSections[prefix] != "":
			recognized++
			p.parseDataLine(doc, collector, g, lineNumber, prefix, columns)
		default:
			collector.add(NewError(TypeLinePrefix, lineNumber, prefix))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	if recognized == 0 {
		return nil, nil, &ParseError{Cause: NewError(TypeEmptyFile, view.NoLineNumber)}
	}
	p.checkDocument(doc, collector, g)

	return doc, collector.errors, nil
}

func (p *Parser) parseMetadataLine(doc *MzTab, collector *errorCollector, lineNumber int64, columns []string) {
	if len(columns) < 3 {
		collector.add(NewError(TypeMetadataLine, lineNumber, len(columns)))
		return
	}
	key := strings.TrimSpace(columns[1])
	value := strings.TrimSpace(columns[2])

	if value == "" {
		collector.add(NewError(TypeEmptyMetadataValue, lineNumber, key))
	} else if IsParamValue(value) {
		if _, err := ParseParam(value); err != nil {
			collector.add(NewError(TypeParamFormat, lineNumber, value))
		}
	}
	for _, existing := range doc.Metadata {
		if existing.Key == key {
			collector.add(NewError(TypeDuplicateMetadata, lineNumber, key))
			break
		}
	}
	doc.Metadata = append(doc.Metadata, MetadataEntry{LineNumber: lineNumber, Key: key, Value: value})
}

func (p *Parser) parseHeaderLine(doc *MzTab, collector *errorCollector, g grammar, lineNumber int64, prefix string, columns []string) {
	section := g.headerSections[prefix]
	if _, exists := doc.Tables[section]; exists {
		collector.add(NewError(TypeDuplicateHeader, lineNumber, prefix))
		return
	}
	header := columns[1:]
	seen := map[string]bool{}
	for _, column := range header {
		if seen[column] {
			collector.add(NewError(TypeDuplicateColumn, lineNumber, column, prefix))
		}
		seen[column] = true
	}
	for _, required := range g.requiredColumns[section] {
		if !seen[required] {
			collector.add(NewError(TypeMissingColumn, lineNumber, required, prefix))
		}
	}
	doc.Tables[section] = &Table{Header: header, HeaderLine: lineNumber}
}

func (p *Parser) parseDataLine(doc *MzTab, collector *errorCollector, g grammar, lineNumber int64, prefix string, columns []string) {
	section := g.dataSections[prefix]
	table, ok := doc.Tables[section]
	if !ok {
		collector.add(NewError(TypeDataBeforeHeader, lineNumber, prefix))
		return
	}
	row := columns[1:]
	if len(row) != len(table.Header) {
		collector.add(NewError(TypeColumnCountMismatch, lineNumber, len(row), prefix, len(table.Header)))
	}
	for i, cell := range row {
		if strings.TrimSpace(cell) == "" && i < len(table.Header) {
			collector.add(NewError(TypeEmptyCell, lineNumber, table.Header[i]))
			break
		}
	}
	table.Rows = append(table.Rows, row)
	table.RowLines = append(table.RowLines, lineNumber)
}

func (p *Parser) checkDocument(doc *MzTab, collector *errorCollector, g grammar) {
	if len(doc.Metadata) == 0 {
		collector.add(NewError(TypeNoMetadataSection, view.NoLineNumber))
		return
	}
	version := doc.Version()
	if version == "" {
		collector.add(NewError(TypeVersionMissing, view.NoLineNumber))
		return
	}
	if !strings.HasPrefix(version, g.versionPrefix) {
		collector.add(NewError(TypeVersionMismatch, view.NoLineNumber, version, string(p.version)))
	}
}
