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

	"github.com/lifs-tools/mztab-validator-service/view"
)

// ErrorType is a stable grammar rule identity. Code numbers never change
// between releases; message templates may.
type ErrorType struct {
	Code     int
	Category view.Category
	Level    view.Severity
	Template string
}

var (
	TypeEmptyFile           = ErrorType{10001, view.CategoryFormat, view.SeverityError, "File is empty or contains no mzTab lines"}
	TypeLinePrefix          = ErrorType{10002, view.CategoryFormat, view.SeverityError, "Line prefix '%s' is not a valid mzTab section prefix"}
	TypeMetadataLine        = ErrorType{10003, view.CategoryFormat, view.SeverityError, "Metadata line must have the form MTD<TAB>key<TAB>value, found %d columns"}
	TypeDuplicateMetadata   = ErrorType{10004, view.CategoryLogical, view.SeverityWarn, "Metadata key '%s' occurs more than once"}
	TypeParamFormat         = ErrorType{10005, view.CategoryFormat, view.SeverityWarn, "Value '%s' is not a well-formed parameter, expected [CV label, accession, name, value]"}
	TypeEmptyMetadataValue  = ErrorType{10006, view.CategoryFormat, view.SeverityInfo, "Metadata key '%s' has an empty value"}
	TypeNoMetadataSection   = ErrorType{10007, view.CategoryFormat, view.SeverityError, "File contains no metadata (MTD) section"}
	TypeVersionMissing      = ErrorType{10008, view.CategoryLogical, view.SeverityWarn, "Metadata does not declare mzTab-version"}
	TypeVersionMismatch     = ErrorType{10009, view.CategoryLogical, view.SeverityError, "Declared mzTab-version '%s' does not match the requested format '%s'"}
	TypeDuplicateHeader     = ErrorType{10010, view.CategoryFormat, view.SeverityError, "Section header '%s' occurs more than once"}
	TypeDuplicateColumn     = ErrorType{10011, view.CategoryFormat, view.SeverityError, "Column '%s' occurs more than once in the %s header"}
	TypeMissingColumn       = ErrorType{10012, view.CategoryFormat, view.SeverityError, "Required column '%s' is missing from the %s header"}
	TypeDataBeforeHeader    = ErrorType{10013, view.CategoryFormat, view.SeverityError, "Data line with prefix '%s' appears before its section header"}
	TypeColumnCountMismatch = ErrorType{10014, view.CategoryFormat, view.SeverityError, "Data line has %d columns, the %s header declares %d"}
	TypeEmptyCell           = ErrorType{10015, view.CategoryFormat, view.SeverityInfo, "Column '%s' is empty, use 'null' for missing values"}
)

var categoryNames = map[view.Category]string{
	view.CategoryFormat:     "FormatError",
	view.CategoryLogical:    "LogicalError",
	view.CategoryCrossCheck: "CrossCheckError",
}

// Error is a single recoverable grammar finding.
type Error struct {
	Type       ErrorType
	LineNumber int64
	values     []interface{}
}

func NewError(t ErrorType, lineNumber int64, values ...interface{}) *Error {
	return &Error{Type: t, LineNumber: lineNumber, values: values}
}

// Code returns the stable rule identifier, e.g. "FormatError-10014".
func (e *Error) Code() string {
	return fmt.Sprintf("%s-%d", categoryNames[e.Type.Category], e.Type.Code)
}

func (e *Error) Message() string {
	return fmt.Sprintf(e.Type.Template, e.values...)
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] line %d: %s", e.Code(), e.LineNumber, e.Message())
}

func (e *Error) ToValidationMessage() view.ValidationMessage {
	return view.ValidationMessage{
		LineNumber:  e.LineNumber,
		MessageType: e.Type.Level,
		Category:    e.Type.Category,
		Message:     e.Message(),
		Code:        e.Code(),
	}
}

// ParseError is the fatal kind: the parser could not produce a document at
// all. It carries the single grammar error describing the failure.
type ParseError struct {
	Cause *Error
}

func (e *ParseError) Error() string {
	return "mzTab parsing failed: " + e.Cause.Error()
}
