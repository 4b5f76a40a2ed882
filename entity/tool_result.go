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

package entity

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lifs-tools/mztab-validator-service/view"
)

// Parameter keys recorded on a ToolResult when a job is claimed.
const (
	ParamMzTabVersion    = "MZTABVERSION"
	ParamMaxErrors       = "MAXERRORS"
	ParamValidationLevel = "VALIDATIONLEVEL"
	ParamCheckCvMapping  = "CHECKCVMAPPING"
)

// UserSessionFile correlates an uploaded file with its session.
type UserSessionFile struct {
	SessionId uuid.UUID
	Filename  string
}

// ToolResult is the mutable per-session job record. The worker owning the
// session's job is the only writer; pollers read concurrently through the
// same record, so every accessor goes through the internal lock. A record is
// never removed automatically, only by explicit delete or store-wide clear.
type ToolResult struct {
	mx         sync.RWMutex
	status     view.Status
	messages   []view.ValidationMessage
	exception  error
	parameters map[string]string
}

func NewToolResult() *ToolResult {
	return &ToolResult{
		status:     view.StatusUninitialized,
		parameters: map[string]string{},
	}
}

func (t *ToolResult) Status() view.Status {
	t.mx.RLock()
	defer t.mx.RUnlock()
	return t.status
}

func (t *ToolResult) SetStatus(status view.Status) {
	t.mx.Lock()
	defer t.mx.Unlock()
	t.status = status
}

// CompareAndSwapStatus transitions from old to new atomically and reports
// whether the swap happened.
func (t *ToolResult) CompareAndSwapStatus(old, new view.Status) bool {
	t.mx.Lock()
	defer t.mx.Unlock()
	if t.status != old {
		return false
	}
	t.status = new
	return true
}

func (t *ToolResult) Messages() []view.ValidationMessage {
	t.mx.RLock()
	defer t.mx.RUnlock()
	out := make([]view.ValidationMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *ToolResult) SetMessages(messages []view.ValidationMessage) {
	t.mx.Lock()
	defer t.mx.Unlock()
	t.messages = messages
}

func (t *ToolResult) Exception() error {
	t.mx.RLock()
	defer t.mx.RUnlock()
	return t.exception
}

func (t *ToolResult) SetException(err error) {
	t.mx.Lock()
	defer t.mx.Unlock()
	t.exception = err
}

func (t *ToolResult) Parameter(key string) string {
	t.mx.RLock()
	defer t.mx.RUnlock()
	return t.parameters[key]
}

func (t *ToolResult) SetParameters(params map[string]string) {
	t.mx.Lock()
	defer t.mx.Unlock()
	for k, v := range params {
		t.parameters[k] = v
	}
}

func (t *ToolResult) Parameters() map[string]string {
	t.mx.RLock()
	defer t.mx.RUnlock()
	out := make(map[string]string, len(t.parameters))
	for k, v := range t.parameters {
		out[k] = v
	}
	return out
}
