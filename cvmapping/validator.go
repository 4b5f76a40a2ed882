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
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/lifs-tools/mztab-validator-service/mztab"
	"github.com/lifs-tools/mztab-validator-service/view"
)

// TermMetadata describes one resolved ontology term.
type TermMetadata struct {
	Accession string
	Label     string
	Ontology  string
	Obsolete  bool
}

// OntologyMetadata describes one resolved ontology.
type OntologyMetadata struct {
	Namespace string
	Title     string
	Version   string
}

// TermResolver is the external ontology lookup capability. Implementations
// must be safe for repeated concurrent calls; the validator never caches
// results itself.
type TermResolver interface {
	ResolveTerm(ctx context.Context, accession string) (*TermMetadata, error)
	LookupOntology(ctx context.Context, namespace string) (*OntologyMetadata, error)
	// IsChildOf walks is-a parents of child up to maxDepth levels;
	// maxDepth <= 0 means unbounded.
	IsChildOf(ctx context.Context, child, parent string, maxDepth int) (bool, error)
}

// Validator applies a mapping rules document to a parsed mzTab document.
type Validator struct {
	resolver TermResolver
}

func NewValidator(resolver TermResolver) *Validator {
	return &Validator{resolver: resolver}
}

// Validate loads the rules document at rulesPath and checks doc against it.
// A rules document that cannot be loaded is fatal and returned as a
// *RulesDocumentError; every other condition, including resolver failures
// for individual terms, is recovered into a validation message. All
// messages carry CROSS_CHECK category and no line context, since rules
// validate the logical document rather than a text position.
func (v *Validator) Validate(ctx context.Context, doc *mztab.MzTab, rulesPath string) ([]view.ValidationMessage, error) {
	rules, err := LoadRules(rulesPath)
	if err != nil {
		return nil, err
	}
	log.Debugf("Applying %d mapping rules from %s", len(rules.Rules), rulesPath)

	var messages []view.ValidationMessage
	for _, rule := range rules.Rules {
		if msg := v.applyRule(ctx, doc, rule); msg != nil {
			messages = append(messages, *msg)
		}
	}
	return messages, nil
}

// applyRule checks one rule and returns at most one message describing its
// violation.
func (v *Validator) applyRule(ctx context.Context, doc *mztab.MzTab, rule MappingRule) *view.ValidationMessage {
	path := rule.ElementPath()
	params := doc.ParamsAt(path)

	if len(params) == 0 {
		if doc.HasEntriesAt(path) {
			// entries exist but none parse as a CV parameter
			return ruleMessage(rule, fmt.Sprintf("Element '%s' contains no well-formed CV parameter", path))
		}
		switch rule.RequirementLevel {
		case RequirementMust, RequirementShould:
			return ruleMessage(rule, fmt.Sprintf("Element '%s' requires a term from %s but is not present", path, describeTerms(rule.Terms)))
		default:
			return nil
		}
	}

	matchedTerms := map[string]bool{}
	var offending []string
	for _, param := range params {
		matched, failure := v.matchParam(ctx, param, rule)
		if failure != nil {
			return failure
		}
		if matched == "" {
			offending = append(offending, param.String())
		} else {
			matchedTerms[matched] = true
		}
	}

	switch rule.CvTermsCombinationLogic {
	case CombinationAnd:
		for _, term := range rule.Terms {
			if !matchedTerms[term.TermAccession] {
				return ruleMessage(rule, fmt.Sprintf("Element '%s' is missing a parameter for required term %s [%s]", path, term.TermName, term.TermAccession))
			}
		}
	case CombinationXor:
		if len(matchedTerms) != 1 {
			return ruleMessage(rule, fmt.Sprintf("Element '%s' must match exactly one of %s, matched %d", path, describeTerms(rule.Terms), len(matchedTerms)))
		}
	}
	if len(offending) > 0 {
		return ruleMessage(rule, fmt.Sprintf("Element '%s' has parameters outside the allowed terms %s: %s", path, describeTerms(rule.Terms), strings.Join(offending, ", ")))
	}
	return nil
}

// matchParam returns the accession of the rule term the parameter satisfies,
// or "" if none. A resolver failure is returned as a recovered message for
// this rule instead of aborting the pass.
func (v *Validator) matchParam(ctx context.Context, param mztab.Param, rule MappingRule) (string, *view.ValidationMessage) {
	for _, term := range rule.Terms {
		if !strings.EqualFold(param.CvLabel, term.CvIdentifierRef) {
			continue
		}
		if strings.EqualFold(param.Accession, term.TermAccession) {
			if term.UseTerm || !term.AllowChildren {
				return term.TermAccession, nil
			}
			// the parent itself is not allowed when only children are
			continue
		}
		if term.AllowChildren {
			ok, err := v.resolver.IsChildOf(ctx, param.Accession, term.TermAccession, rule.MaxDepth)
			if err != nil {
				log.Errorf("Term resolution failed for %s in rule %s: %s", param.Accession, rule.Id, err)
				msg := ruleMessage(rule, fmt.Sprintf("Could not resolve term '%s' against '%s': %s", param.Accession, term.TermAccession, err))
				return "", msg
			}
			if ok {
				return term.TermAccession, nil
			}
		}
	}
	return "", nil
}

func ruleMessage(rule MappingRule, text string) *view.ValidationMessage {
	return &view.ValidationMessage{
		LineNumber:  view.NoLineNumber,
		MessageType: severityFor(rule.RequirementLevel),
		Category:    view.CategoryCrossCheck,
		Message:     text,
		Code:        rule.Id,
	}
}

func severityFor(requirementLevel string) view.Severity {
	switch requirementLevel {
	case RequirementMust:
		return view.SeverityError
	case RequirementShould:
		return view.SeverityWarn
	default:
		return view.SeverityInfo
	}
}

func describeTerms(terms []CvTerm) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		parts = append(parts, fmt.Sprintf("%s [%s]", term.TermName, term.TermAccession))
	}
	return strings.Join(parts, ", ")
}
