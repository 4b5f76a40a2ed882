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

package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/lifs-tools/mztab-validator-service/cvmapping"
	"github.com/lifs-tools/mztab-validator-service/entity"
	"github.com/lifs-tools/mztab-validator-service/mztab"
	"github.com/lifs-tools/mztab-validator-service/tracking"
	"github.com/lifs-tools/mztab-validator-service/view"
)

// LineNumberColumn tags every rendered row with its presentation line
// number, a single counter running across META and all data sections.
const LineNumberColumn = "LINE_NUMBER"

// ValidationService composes the structural and semantic passes per format
// version and prepares results for presentation.
type ValidationService interface {
	// Validate runs the structural pass and, when requested, the semantic
	// CV-mapping pass against the session's MAPPING_FILE slot. Recoverable
	// findings come back as messages; the error is non-nil only for storage
	// failures, an unusable rules document, or an unsupported version.
	Validate(ctx context.Context, version view.MzTabVersion, sessionFile entity.UserSessionFile, maxErrors int, level view.Severity, checkCvMapping bool) ([]view.ValidationMessage, error)
	// ValidatePath is Validate against already-resolved file paths;
	// mappingPath is ignored unless checkCvMapping is set.
	ValidatePath(ctx context.Context, version view.MzTabVersion, filePath string, maxErrors int, level view.Severity, checkCvMapping bool, mappingPath string) ([]view.ValidationMessage, error)
	// Parse renders the parsed document as per-section ordered row maps.
	// The whole document is rendered regardless of any reporting bounds;
	// sections the file does not contain map to empty lists, never to an
	// absent key.
	Parse(ctx context.Context, version view.MzTabVersion, sessionFile entity.UserSessionFile) (map[string][]map[string]string, error)
	AsValidationResults(messages []view.ValidationMessage) []view.ValidationResult
	// FilterByLevel keeps ERROR always, WARN and ERROR at minimum WARN and
	// everything at minimum INFO, then re-sorts by line number with ERROR
	// ranked before WARN before INFO on equal lines. This ordering is
	// intentionally different from the raw message collation.
	FilterByLevel(results []view.ValidationResult, level view.Severity) []view.ValidationResult
}

func NewValidationService(storageService StorageService, tracker tracking.AnalyticsTracker, resolver cvmapping.TermResolver) ValidationService {
	semantic := cvmapping.NewValidator(resolver)
	return &validationServiceImpl{
		storageService: storageService,
		tracker:        tracker,
		// closed set of per-version strategies, not subclassing
		validators: map[view.MzTabVersion]*formatValidator{
			view.MzTab10: {version: view.MzTab10, semantic: nil},
			view.MzTab20: {version: view.MzTab20, semantic: semantic},
		},
	}
}

type validationServiceImpl struct {
	storageService StorageService
	tracker        tracking.AnalyticsTracker
	validators     map[view.MzTabVersion]*formatValidator
}

// formatValidator pairs the structural grammar of one format version with
// its semantic validator. mzTab 1.0 has no CV-mapping rules document, its
// semantic member stays nil and the flag is ignored like in the legacy
// validator.
type formatValidator struct {
	version  view.MzTabVersion
	semantic *cvmapping.Validator
}

func (v *validationServiceImpl) Validate(ctx context.Context, version view.MzTabVersion, sessionFile entity.UserSessionFile, maxErrors int, level view.Severity, checkCvMapping bool) ([]view.ValidationMessage, error) {
	v.tracker.Started(sessionFile.SessionId, "validation", "init")
	filePath, err := v.storageService.Load(sessionFile.SessionId, SlotDataFile)
	if err != nil {
		v.tracker.Stopped(sessionFile.SessionId, "validation", "fail")
		return nil, err
	}
	mappingPath := ""
	if checkCvMapping {
		mappingPath, err = v.storageService.Load(sessionFile.SessionId, SlotMappingFile)
		if err != nil {
			v.tracker.Stopped(sessionFile.SessionId, "validation", "fail")
			return nil, err
		}
	}
	messages, err := v.ValidatePath(ctx, version, filePath, maxErrors, level, checkCvMapping, mappingPath)
	if err != nil {
		v.tracker.Stopped(sessionFile.SessionId, "validation", "fail")
		return nil, err
	}
	v.tracker.Stopped(sessionFile.SessionId, "validation", "success")
	return messages, nil
}

func (v *validationServiceImpl) ValidatePath(ctx context.Context, version view.MzTabVersion, filePath string, maxErrors int, level view.Severity, checkCvMapping bool, mappingPath string) ([]view.ValidationMessage, error) {
	validator, ok := v.validators[version]
	if !ok {
		// a programming/configuration error, not a validation finding
		return nil, fmt.Errorf("unsupported mzTab version: %s", version)
	}
	log.Infof("Running validation on file %s for mzTab version=%s, validationLevel=%s, maxErrors=%d, checkCvMapping=%v",
		filePath, version, level, maxErrors, checkCvMapping)

	set := view.NewMessageSet()

	doc, structuralErrors, err := mztab.NewParser(version, level).Parse(filePath)
	if err != nil {
		if parseErr, ok := err.(*mztab.ParseError); ok {
			// a single fatal structural failure becomes exactly one message
			return []view.ValidationMessage{parseErr.Cause.ToValidationMessage()}, nil
		}
		return nil, err
	}
	for _, structuralError := range structuralErrors {
		set.Add(structuralError.ToValidationMessage())
	}

	if checkCvMapping && validator.semantic != nil {
		semanticMessages, err := validator.semantic.Validate(ctx, doc, mappingPath)
		if err != nil {
			return nil, err
		}
		for _, m := range semanticMessages {
			if level.Includes(m.MessageType) {
				set.Add(m)
			}
		}
	}

	// the cap is taken from the collated list so it is always a prefix of
	// the fully sorted result, never an artifact of emission order
	messages := set.Messages()
	if len(messages) > maxErrors {
		messages = messages[:maxErrors]
	}
	return messages, nil
}

func (v *validationServiceImpl) Parse(ctx context.Context, version view.MzTabVersion, sessionFile entity.UserSessionFile) (map[string][]map[string]string, error) {
	if _, ok := v.validators[version]; !ok {
		return nil, fmt.Errorf("unsupported mzTab version: %s", version)
	}
	v.tracker.Started(sessionFile.SessionId, "parse", "init")
	filePath, err := v.storageService.Load(sessionFile.SessionId, SlotDataFile)
	if err != nil {
		v.tracker.Stopped(sessionFile.SessionId, "parse", "fail")
		return nil, err
	}

	// findings are not rendered here, only the document tables
	doc, _, err := mztab.NewParser(version, view.SeverityError).Parse(filePath)
	if err != nil {
		if _, ok := err.(*mztab.ParseError); ok {
			// nothing to render, keep the section keys present
			v.tracker.Stopped(sessionFile.SessionId, "parse", "fail")
			return emptySections(version), nil
		}
		v.tracker.Stopped(sessionFile.SessionId, "parse", "fail")
		return nil, err
	}
	v.tracker.Stopped(sessionFile.SessionId, "parse", "success")
	return renderSections(doc, version), nil
}

func (v *validationServiceImpl) AsValidationResults(messages []view.ValidationMessage) []view.ValidationResult {
	results := make([]view.ValidationResult, 0, len(messages))
	for _, m := range messages {
		results = append(results, view.MakeValidationResult(m))
	}
	return results
}

func (v *validationServiceImpl) FilterByLevel(results []view.ValidationResult, level view.Severity) []view.ValidationResult {
	filtered := make([]view.ValidationResult, 0, len(results))
	for _, r := range results {
		if level.Includes(r.Level) {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].LineNumber != filtered[j].LineNumber {
			return filtered[i].LineNumber < filtered[j].LineNumber
		}
		return filtered[i].Level.Rank() < filtered[j].Level.Rank()
	})
	return filtered
}

// renderSections re-serializes the document into per-section row maps. The
// line counter starts at 1 with the first metadata row and keeps running
// through every data section in declared order.
func renderSections(doc *mztab.MzTab, version view.MzTabVersion) map[string][]map[string]string {
	sections := map[string][]map[string]string{}
	lineNumber := 1

	meta := make([]map[string]string, 0, len(doc.Metadata))
	for _, entry := range doc.Metadata {
		meta = append(meta, map[string]string{
			LineNumberColumn: strconv.Itoa(lineNumber),
			"PREFIX":         "MTD",
			"KEY":            entry.Key,
			"VALUE":          entry.Value,
		})
		lineNumber++
	}
	sections[mztab.SectionMeta] = meta

	for _, section := range mztab.SectionOrder(version) {
		rows := make([]map[string]string, 0)
		if table, ok := doc.Tables[section]; ok {
			for _, row := range table.Rows {
				rowMap := map[string]string{LineNumberColumn: strconv.Itoa(lineNumber)}
				for i, column := range table.Header {
					value := ""
					if i < len(row) {
						value = row[i]
					}
					rowMap[column] = value
				}
				rows = append(rows, rowMap)
				lineNumber++
			}
		}
		sections[section] = rows
	}
	return sections
}

func emptySections(version view.MzTabVersion) map[string][]map[string]string {
	sections := map[string][]map[string]string{mztab.SectionMeta: {}}
	for _, section := range mztab.SectionOrder(version) {
		sections[section] = []map[string]string{}
	}
	return sections
}
