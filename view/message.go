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

import (
	"fmt"
	"sort"
	"strings"
)

// Severity is the report level of a validation message. The declared order
// (ERROR, WARN, INFO) is the collation order used by CompareMessages.
type Severity string

const (
	SeverityError Severity = "ERROR"
	SeverityWarn  Severity = "WARN"
	SeverityInfo  Severity = "INFO"
)

var severityRank = map[Severity]int{
	SeverityError: 0,
	SeverityWarn:  1,
	SeverityInfo:  2,
}

func ParseSeverity(value string) (Severity, error) {
	switch Severity(strings.ToUpper(value)) {
	case SeverityError:
		return SeverityError, nil
	case SeverityWarn:
		return SeverityWarn, nil
	case SeverityInfo:
		return SeverityInfo, nil
	}
	return "", fmt.Errorf("unknown validation level '%s'", value)
}

// Rank returns the position of s in the declared severity order, ERROR first.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Includes reports whether a message of the given severity passes a minimum
// reporting level of s. ERROR always passes, WARN passes at WARN and INFO,
// everything passes at INFO.
func (s Severity) Includes(other Severity) bool {
	return other.Rank() <= s.Rank()
}

type Category string

const (
	CategoryFormat     Category = "FORMAT"
	CategoryCrossCheck Category = "CROSS_CHECK"
	CategoryLogical    Category = "LOGICAL"
)

// NoLineNumber marks messages without line context, e.g. semantic findings
// that validate the logical document rather than a text position.
const NoLineNumber int64 = -1

// ValidationMessage is a single validation finding. Messages are immutable
// once created; (LineNumber, MessageType, Code) identifies a message for
// ordering and deduplication, the free-text Message never does.
type ValidationMessage struct {
	LineNumber  int64    `json:"lineNumber"`
	MessageType Severity `json:"messageType"`
	Category    Category `json:"category"`
	Message     string   `json:"message"`
	Code        string   `json:"code"`
}

// CompareMessages is the raw collation order: line number first, with
// no-line-context messages sorting last; ties broken by severity declaration
// order, then by code. Returns <0, 0, >0.
func CompareMessages(a, b ValidationMessage) int {
	if a.LineNumber != b.LineNumber {
		if a.LineNumber == NoLineNumber {
			return 1
		}
		if b.LineNumber == NoLineNumber {
			return -1
		}
		if a.LineNumber < b.LineNumber {
			return -1
		}
		return 1
	}
	if r := a.MessageType.Rank() - b.MessageType.Rank(); r != 0 {
		return r
	}
	return strings.Compare(a.Code, b.Code)
}

// MessageSet is a sorted set of validation messages, unique on
// (LineNumber, MessageType, Code). Merging the output of repeated parser
// invocations through a set prevents duplicate reporting.
type MessageSet struct {
	items []ValidationMessage
}

func NewMessageSet() *MessageSet {
	return &MessageSet{}
}

func (s *MessageSet) Add(m ValidationMessage) {
	i := sort.Search(len(s.items), func(i int) bool {
		return CompareMessages(s.items[i], m) >= 0
	})
	if i < len(s.items) && CompareMessages(s.items[i], m) == 0 {
		return
	}
	s.items = append(s.items, ValidationMessage{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = m
}

func (s *MessageSet) AddAll(msgs []ValidationMessage) {
	for _, m := range msgs {
		s.Add(m)
	}
}

func (s *MessageSet) Len() int {
	return len(s.items)
}

// Messages returns the set contents in collation order. The slice is a copy.
func (s *MessageSet) Messages() []ValidationMessage {
	out := make([]ValidationMessage, len(s.items))
	copy(out, s.items)
	return out
}
