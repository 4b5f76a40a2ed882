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

package view

// ValidationResult is the presentation form of a ValidationMessage. It adds
// a rule id and a UI style hint derived from the severity; it is created 1:1
// from a message and never mutated afterwards.
type ValidationResult struct {
	LineNumber int64    `json:"lineNumber"`
	Category   string   `json:"category"`
	Level      Severity `json:"level"`
	Message    string   `json:"message"`
	RuleId     string   `json:"ruleId"`
	StyleClass string   `json:"styleClass"`
}

func MakeValidationResult(m ValidationMessage) ValidationResult {
	return ValidationResult{
		LineNumber: m.LineNumber,
		Category:   string(m.Category),
		Level:      m.MessageType,
		Message:    m.Message,
		RuleId:     m.Code,
		StyleClass: styleClassFor(m.MessageType),
	}
}

func styleClassFor(level Severity) string {
	switch level {
	case SeverityError:
		return "table-danger"
	case SeverityWarn:
		return "table-warning"
	default:
		return "table-info"
	}
}
