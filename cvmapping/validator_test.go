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

package cvmapping

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifs-tools/mztab-validator-service/mztab"
	"github.com/lifs-tools/mztab-validator-service/view"
)

// fakeResolver resolves is-a relations from a static child->parent map.
type fakeResolver struct {
	parents map[string]string
	err     error
}

func (f *fakeResolver) ResolveTerm(ctx context.Context, accession string) (*TermMetadata, error) {
	return &TermMetadata{Accession: accession}, nil
}

func (f *fakeResolver) LookupOntology(ctx context.Context, namespace string) (*OntologyMetadata, error) {
	return &OntologyMetadata{Namespace: namespace}, nil
}

func (f *fakeResolver) IsChildOf(ctx context.Context, child, parent string, maxDepth int) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	current := child
	for i := 0; i < 32; i++ {
		next, ok := f.parents[current]
		if !ok {
			return false, nil
		}
		if next == parent {
			return true, nil
		}
		current = next
	}
	return false, nil
}

func writeRules(t *testing.T, rules string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping.xml")
	require.NoError(t, os.WriteFile(path, []byte(rules), 0644))
	return path
}

func ruleDocument(rules string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<CvMapping modelName="mzTab-M" modelVersion="2.0.0">
  <CvReferenceList>
    <CvReference cvName="PSI-MS ontology" cvIdentifier="MS"/>
  </CvReferenceList>
  <CvMappingRuleList>%s</CvMappingRuleList>
</CvMapping>`, rules)
}

const softwareRule = `<CvMappingRule id="software_must" cvElementPath="/MzTab/metadata/software" requirementLevel="MUST" cvTermsCombinationLogic="OR" maxDepth="-1">
      <CvTerm termAccession="MS:1000531" termName="software" allowChildren="true" useTerm="false" isRepeatable="true" cvIdentifierRef="MS"/>
    </CvMappingRule>`

func documentWithMetadata(entries ...mztab.MetadataEntry) *mztab.MzTab {
	return &mztab.MzTab{Metadata: entries, Tables: map[string]*mztab.Table{}}
}

func TestValidateMissingRequiredElement(t *testing.T) {
	rulesPath := writeRules(t, ruleDocument(softwareRule))
	doc := documentWithMetadata(mztab.MetadataEntry{LineNumber: 1, Key: "mzTab-version", Value: "2.0.0-M"})

	validator := NewValidator(&fakeResolver{})
	messages, err := validator.Validate(context.Background(), doc, rulesPath)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	msg := messages[0]
	assert.Equal(t, view.NoLineNumber, msg.LineNumber)
	assert.Equal(t, view.SeverityError, msg.MessageType)
	assert.Equal(t, view.CategoryCrossCheck, msg.Category)
	assert.Equal(t, "software_must", msg.Code)
}

func TestValidateAcceptsChildTerm(t *testing.T) {
	rulesPath := writeRules(t, ruleDocument(softwareRule))
	doc := documentWithMetadata(
		mztab.MetadataEntry{LineNumber: 2, Key: "software[1]", Value: "[MS, MS:1002205, ProteoWizard msconvert, 3.0]"},
	)

	validator := NewValidator(&fakeResolver{parents: map[string]string{"MS:1002205": "MS:1000531"}})
	messages, err := validator.Validate(context.Background(), doc, rulesPath)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestValidateRejectsForeignTerm(t *testing.T) {
	rulesPath := writeRules(t, ruleDocument(softwareRule))
	doc := documentWithMetadata(
		mztab.MetadataEntry{LineNumber: 2, Key: "software[1]", Value: "[MS, MS:9999999, not software, ]"},
	)

	validator := NewValidator(&fakeResolver{parents: map[string]string{}})
	messages, err := validator.Validate(context.Background(), doc, rulesPath)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "software_must", messages[0].Code)
	assert.Contains(t, messages[0].Message, "MS:9999999")
}

func TestValidateXorLogic(t *testing.T) {
	xorRule := `<CvMappingRule id="polarity_must" cvElementPath="/MzTab/metadata/ms_run-scan_polarity" requirementLevel="MUST" cvTermsCombinationLogic="XOR" maxDepth="-1">
      <CvTerm termAccession="MS:1000129" termName="negative scan" allowChildren="false" useTerm="true" isRepeatable="false" cvIdentifierRef="MS"/>
      <CvTerm termAccession="MS:1000130" termName="positive scan" allowChildren="false" useTerm="true" isRepeatable="false" cvIdentifierRef="MS"/>
    </CvMappingRule>`
	rulesPath := writeRules(t, ruleDocument(xorRule))
	validator := NewValidator(&fakeResolver{})

	one := documentWithMetadata(
		mztab.MetadataEntry{LineNumber: 2, Key: "ms_run[1]-scan_polarity", Value: "[MS, MS:1000130, positive scan, ]"},
	)
	messages, err := validator.Validate(context.Background(), one, rulesPath)
	require.NoError(t, err)
	assert.Empty(t, messages)

	both := documentWithMetadata(
		mztab.MetadataEntry{LineNumber: 2, Key: "ms_run[1]-scan_polarity", Value: "[MS, MS:1000130, positive scan, ]"},
		mztab.MetadataEntry{LineNumber: 3, Key: "ms_run[2]-scan_polarity", Value: "[MS, MS:1000129, negative scan, ]"},
	)
	messages, err = validator.Validate(context.Background(), both, rulesPath)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "polarity_must", messages[0].Code)
}

func TestValidateRecoversResolverFailure(t *testing.T) {
	rulesPath := writeRules(t, ruleDocument(softwareRule))
	doc := documentWithMetadata(
		mztab.MetadataEntry{LineNumber: 2, Key: "software[1]", Value: "[MS, MS:1002205, ProteoWizard msconvert, 3.0]"},
	)

	validator := NewValidator(&fakeResolver{err: errors.New("ols is down")})
	messages, err := validator.Validate(context.Background(), doc, rulesPath)
	require.NoError(t, err, "a resolver failure must not abort the pass")
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Message, "ols is down")
}

func TestValidateBadRulesDocumentIsFatal(t *testing.T) {
	validator := NewValidator(&fakeResolver{})
	doc := documentWithMetadata()

	_, err := validator.Validate(context.Background(), doc, filepath.Join(t.TempDir(), "missing.xml"))
	var rulesErr *RulesDocumentError
	require.ErrorAs(t, err, &rulesErr)

	emptyPath := writeRules(t, ruleDocument(""))
	_, err = validator.Validate(context.Background(), doc, emptyPath)
	require.ErrorAs(t, err, &rulesErr)
}

func TestLoadRulesRejectsUndeclaredNamespace(t *testing.T) {
	badRule := `<CvMappingRule id="bad_ref" cvElementPath="/MzTab/metadata/database" requirementLevel="MAY" cvTermsCombinationLogic="OR" maxDepth="-1">
      <CvTerm termAccession="CHEBI:1" termName="x" allowChildren="true" useTerm="false" isRepeatable="false" cvIdentifierRef="CHEBI"/>
    </CvMappingRule>`
	path := writeRules(t, ruleDocument(badRule))

	_, err := LoadRules(path)
	var rulesErr *RulesDocumentError
	require.ErrorAs(t, err, &rulesErr)
	assert.Contains(t, err.Error(), "CHEBI")
}

func TestMappingRuleElementPath(t *testing.T) {
	rule := MappingRule{CvElementPath: "/MzTab/metadata/software/setting"}
	assert.Equal(t, "metadata.software.setting", rule.ElementPath())

	rule = MappingRule{CvElementPath: "/MzTab/metadata/ms_run/@scan_polarity"}
	assert.Equal(t, "metadata.ms_run.scan_polarity", rule.ElementPath())
}
