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
	"strings"
)

// Status is the lifecycle state of a validation job.
// UNINITIALIZED -> PREPARING -> STARTED -> RUNNING -> {FINISHED | FAILED}
type Status string

const (
	StatusUninitialized Status = "UNINITIALIZED"
	StatusPreparing     Status = "PREPARING"
	StatusStarted       Status = "STARTED"
	StatusRunning       Status = "RUNNING"
	StatusFinished      Status = "FINISHED"
	StatusFailed        Status = "FAILED"
)

// Terminal reports whether the status is final. A session in a terminal
// state is never re-run.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

// MzTabVersion selects the grammar and semantic rule pairing for a file.
type MzTabVersion string

const (
	MzTab10 MzTabVersion = "MZTAB_1_0"
	MzTab20 MzTabVersion = "MZTAB_2_0"
)

func ParseMzTabVersion(value string) (MzTabVersion, error) {
	switch MzTabVersion(strings.ToUpper(value)) {
	case MzTab10:
		return MzTab10, nil
	case MzTab20:
		return MzTab20, nil
	}
	return "", fmt.Errorf("unsupported mzTab version '%s'", value)
}

// SessionStatus is the polling view of a job.
type SessionStatus struct {
	SessionId  string            `json:"sessionId"`
	Status     Status            `json:"status"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// SessionResult is the terminal view of a job: categorized results plus the
// tabular rendering of the parsed sections.
type SessionResult struct {
	SessionId string                         `json:"sessionId"`
	Status    Status                         `json:"status"`
	Error     string                         `json:"error,omitempty"`
	Results   []ValidationResult             `json:"results"`
	Sections  map[string][]map[string]string `json:"sections,omitempty"`
}
