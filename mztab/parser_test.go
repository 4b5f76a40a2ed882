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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifs-tools/mztab-validator-service/view"
)

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mztab")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validMzTabM = "MTD\tmzTab-version\t2.0.0-M\n" +
	"MTD\tmzTab-ID\ttest-id-1\n" +
	"MTD\tsoftware[1]\t[MS, MS:1002205, ProteoWizard msconvert, 3.0]\n" +
	"COM\ta comment line, ignored\n" +
	"\n" +
	"SMH\tSML_ID\tchemical_formula\ttheoretical_neutral_mass\n" +
	"SML\t1\tC6H12O6\t180.0634\n" +
	"SML\t2\tC12H22O11\t342.1162\n"

func TestParseValidDocument(t *testing.T) {
	path := writeTestFile(t, validMzTabM)

	doc, errors, err := NewParser(view.MzTab20, view.SeverityInfo).Parse(path)
	require.NoError(t, err)
	assert.Empty(t, errors)

	assert.Equal(t, "2.0.0-M", doc.Version())
	require.Contains(t, doc.Tables, SectionSummary)
	summary := doc.Tables[SectionSummary]
	assert.Equal(t, []string{"SML_ID", "chemical_formula", "theoretical_neutral_mass"}, summary.Header)
	assert.Len(t, summary.Rows, 2)
	assert.Equal(t, []int64{7, 8}, summary.RowLines, "blank and COM lines still count for line numbers")
}

func TestParseEmptyFileIsFatal(t *testing.T) {
	path := writeTestFile(t, "\n\nCOM\tonly a comment\n")

	_, _, err := NewParser(view.MzTab20, view.SeverityInfo).Parse(path)
	parseErr, ok := err.(*ParseError)
	require.True(t, ok, "expected *ParseError, got %v", err)
	assert.Equal(t, TypeEmptyFile, parseErr.Cause.Type)
	assert.Equal(t, view.NoLineNumber, parseErr.Cause.LineNumber)
}

func TestParseMissingFileIsPlainError(t *testing.T) {
	_, _, err := NewParser(view.MzTab20, view.SeverityInfo).Parse(filepath.Join(t.TempDir(), "nope.mztab"))
	require.Error(t, err)
	_, ok := err.(*ParseError)
	assert.False(t, ok, "I/O failures must not look like document failures")
}

func TestParseReportsErrorsWithLineNumbers(t *testing.T) {
	content := "MTD\tmzTab-version\t2.0.0-M\n" +
		"XXX\tbogus line\n" +
		"SMH\tSML_ID\tchemical_formula\n" +
		"SML\t1\tC6H12O6\textra-column\n"
	path := writeTestFile(t, content)

	_, errors, err := NewParser(view.MzTab20, view.SeverityInfo).Parse(path)
	require.NoError(t, err)

	codes := map[int]int64{}
	for _, e := range errors {
		codes[e.Type.Code] = e.LineNumber
	}
	assert.Equal(t, int64(2), codes[TypeLinePrefix.Code])
	assert.Equal(t, int64(4), codes[TypeColumnCountMismatch.Code])
}

func TestParseDataBeforeHeader(t *testing.T) {
	content := "MTD\tmzTab-version\t2.0.0-M\n" +
		"SML\t1\tC6H12O6\n"
	path := writeTestFile(t, content)

	_, errors, err := NewParser(view.MzTab20, view.SeverityInfo).Parse(path)
	require.NoError(t, err)
	require.Len(t, errors, 1)
	assert.Equal(t, TypeDataBeforeHeader, errors[0].Type)
	assert.Equal(t, int64(2), errors[0].LineNumber)
}

func TestParseWalksWholeFileAndCollectsEveryError(t *testing.T) {
	content := "MTD\tmzTab-version\t2.0.0-M\n" +
		"XXX\tfirst bad line\n" +
		"YYY\tsecond bad line\n" +
		"ZZZ\tthird bad line\n" +
		"SMH\tSML_ID\n" +
		"SML\t1\n"
	path := writeTestFile(t, content)

	doc, errors, err := NewParser(view.MzTab20, view.SeverityInfo).Parse(path)
	require.NoError(t, err)
	require.Len(t, errors, 3, "every unknown prefix is reported, the parse never stops short")
	assert.Equal(t, []int64{2, 3, 4}, []int64{errors[0].LineNumber, errors[1].LineNumber, errors[2].LineNumber})
	require.Contains(t, doc.Tables, SectionSummary)
	assert.Len(t, doc.Tables[SectionSummary].Rows, 1, "sections after the errors are still parsed")
}

func TestParseLevelFiltersFindings(t *testing.T) {
	// duplicate metadata key is a WARN, empty value an INFO
	content := "MTD\tmzTab-version\t2.0.0-M\n" +
		"MTD\tmzTab-ID\tabc\n" +
		"MTD\tmzTab-ID\tabc\n" +
		"MTD\tdescription\t\n" +
		"SMH\tSML_ID\n" +
		"SML\t1\n"
	path := writeTestFile(t, content)

	_, atInfo, err := NewParser(view.MzTab20, view.SeverityInfo).Parse(path)
	require.NoError(t, err)
	_, atError, err := NewParser(view.MzTab20, view.SeverityError).Parse(path)
	require.NoError(t, err)

	assert.NotEmpty(t, atInfo)
	assert.Empty(t, atError)
	for _, e := range atInfo {
		assert.Contains(t, []int{TypeDuplicateMetadata.Code, TypeEmptyMetadataValue.Code}, e.Type.Code)
	}
}

func TestParseVersionMismatch(t *testing.T) {
	content := "MTD\tmzTab-version\t1.0.0\n" +
		"SMH\tSML_ID\n" +
		"SML\t1\n"
	path := writeTestFile(t, content)

	_, errors, err := NewParser(view.MzTab20, view.SeverityInfo).Parse(path)
	require.NoError(t, err)
	require.NotEmpty(t, errors)
	found := false
	for _, e := range errors {
		if e.Type == TypeVersionMismatch {
			found = true
			assert.Equal(t, view.NoLineNumber, e.LineNumber)
		}
	}
	assert.True(t, found)
}

func TestParseMzTab10Grammar(t *testing.T) {
	content := "MTD\tmzTab-version\t1.0.0\n" +
		"PRH\taccession\tdescription\n" +
		"PRT\tP12345\ta protein\n"
	path := writeTestFile(t, content)

	doc, errors, err := NewParser(view.MzTab10, view.SeverityInfo).Parse(path)
	require.NoError(t, err)
	assert.Empty(t, errors)
	require.Contains(t, doc.Tables, SectionProteins)
	assert.Len(t, doc.Tables[SectionProteins].Rows, 1)
}

func TestErrorCode(t *testing.T) {
	e := NewError(TypeColumnCountMismatch, 12, 2, "SML", 3)
	assert.Equal(t, "FormatError-10014", e.Code())
	assert.Equal(t, "Data line has 2 columns, the SML header declares 3", e.Message())

	msg := e.ToValidationMessage()
	assert.Equal(t, int64(12), msg.LineNumber)
	assert.Equal(t, view.SeverityError, msg.MessageType)
	assert.Equal(t, view.CategoryFormat, msg.Category)
}

func TestMetadataElementPath(t *testing.T) {
	entry := MetadataEntry{Key: "software[1]-setting[2]"}
	assert.Equal(t, "metadata.software.setting", entry.ElementPath())

	entry = MetadataEntry{Key: "quantification_method"}
	assert.Equal(t, "metadata.quantification_method", entry.ElementPath())
}

func TestParseParam(t *testing.T) {
	p, err := ParseParam("[MS, MS:1002205, ProteoWizard msconvert, 3.0]")
	require.NoError(t, err)
	assert.Equal(t, "MS", p.CvLabel)
	assert.Equal(t, "MS:1002205", p.Accession)
	assert.Equal(t, "ProteoWizard msconvert", p.Name)
	assert.Equal(t, "3.0", p.Value)

	_, err = ParseParam("[MS, MS:1002205]")
	assert.Error(t, err)
	_, err = ParseParam("no brackets")
	assert.Error(t, err)
}
