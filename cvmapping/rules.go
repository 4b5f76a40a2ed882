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
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Requirement levels of a mapping rule.
const (
	RequirementMust   = "MUST"
	RequirementShould = "SHOULD"
	RequirementMay    = "MAY"
)

// Combination logic values for the terms of one rule.
const (
	CombinationOr  = "OR"
	CombinationAnd = "AND"
	CombinationXor = "XOR"
)

// CvReference declares a controlled vocabulary namespace the rules may draw
// terms from.
type CvReference struct {
	CvName       string `xml:"cvName,attr"`
	CvIdentifier string `xml:"cvIdentifier,attr"`
}

// CvTerm is one allowed term of a rule. AllowChildren widens the match to
// is-a descendants of the accession.
type CvTerm struct {
	TermAccession   string `xml:"termAccession,attr"`
	TermName        string `xml:"termName,attr"`
	AllowChildren   bool   `xml:"allowChildren,attr"`
	UseTerm         bool   `xml:"useTerm,attr"`
	IsRepeatable    bool   `xml:"isRepeatable,attr"`
	CvIdentifierRef string `xml:"cvIdentifierRef,attr"`
}

// MappingRule governs the controlled-vocabulary content of one metadata
// element path.
type MappingRule struct {
	Id                      string   `xml:"id,attr"`
	CvElementPath           string   `xml:"cvElementPath,attr"`
	RequirementLevel        string   `xml:"requirementLevel,attr"`
	CvTermsCombinationLogic string   `xml:"cvTermsCombinationLogic,attr"`
	MaxDepth                int      `xml:"maxDepth,attr"`
	Terms                   []CvTerm `xml:"CvTerm"`
}

// ElementPath normalizes the rule's cvElementPath into the dotted form the
// document model exposes: "/MzTab/metadata/software/setting" and
// "/MzTab/metadata/software-setting" both become "metadata.software.setting".
func (r MappingRule) ElementPath() string {
	path := strings.TrimPrefix(r.CvElementPath, "/MzTab")
	path = strings.Trim(path, "/")
	path = strings.ReplaceAll(path, "/", ".")
	path = strings.ReplaceAll(path, "-", ".")
	return strings.ReplaceAll(path, "@", "")
}

// MappingRuleList is the parsed rules document. It is read-only after load
// and safe for concurrent use across sessions.
type MappingRuleList struct {
	XMLName    xml.Name      `xml:"CvMapping"`
	References []CvReference `xml:"CvReferenceList>CvReference"`
	Rules      []MappingRule `xml:"CvMappingRuleList>CvMappingRule"`
}

// ReferencedNamespaces returns the declared namespace identifiers.
func (l *MappingRuleList) ReferencedNamespaces() []string {
	out := make([]string, 0, len(l.References))
	for _, ref := range l.References {
		out = append(out, ref.CvIdentifier)
	}
	return out
}

// RulesDocumentError marks a rules document that could not be loaded or is
// internally inconsistent. It is fatal to the whole semantic pass and must
// surface as a FAILED job, never as an empty success.
type RulesDocumentError struct {
	Path string
	Err  error
}

func (e *RulesDocumentError) Error() string {
	return fmt.Sprintf("mapping rules document '%s' cannot be used: %v", e.Path, e.Err)
}

func (e *RulesDocumentError) Unwrap() error {
	return e.Err
}

// LoadRules parses and checks a CvMapping XML document.
func LoadRules(path string) (*MappingRuleList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &RulesDocumentError{Path: path, Err: err}
	}
	var rules MappingRuleList
	if err := xml.Unmarshal(data, &rules); err != nil {
		return nil, &RulesDocumentError{Path: path, Err: err}
	}
	if len(rules.Rules) == 0 {
		return nil, &RulesDocumentError{Path: path, Err: fmt.Errorf("document declares no mapping rules")}
	}
	declared := map[string]bool{}
	for _, ref := range rules.References {
		declared[ref.CvIdentifier] = true
	}
	for _, rule := range rules.Rules {
		for _, term := range rule.Terms {
			if !declared[term.CvIdentifierRef] {
				return nil, &RulesDocumentError{
					Path: path,
					Err:  fmt.Errorf("rule %s references undeclared CV namespace '%s'", rule.Id, term.CvIdentifierRef),
				}
			}
		}
	}
	return &rules, nil
}
