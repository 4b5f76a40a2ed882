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

package repository

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lifs-tools/mztab-validator-service/entity"
	"github.com/lifs-tools/mztab-validator-service/view"
)

// ToolResultRepository is the process-wide store of per-session job records.
// It lives for the whole process lifetime; entries leave only through Delete
// or Clear.
type ToolResultRepository interface {
	// GetOrCreate returns the stored record for the session or a fresh
	// UNINITIALIZED one. A freshly created default is NOT persisted; only
	// Put or Claim make a record durable.
	GetOrCreate(sessionId uuid.UUID) *entity.ToolResult
	// Put stores the record unconditionally, last writer wins.
	Put(sessionId uuid.UUID, result *entity.ToolResult)
	// Claim atomically moves the session's record from UNINITIALIZED to
	// PREPARING, inserting it if absent. It reports whether the caller won
	// the claim; a false return means another run owns the session or the
	// session is already terminal.
	Claim(sessionId uuid.UUID) (*entity.ToolResult, bool)
	Delete(sessionId uuid.UUID)
	Clear()
}

func NewToolResultRepository() ToolResultRepository {
	return &toolResultRepositoryImpl{
		results: map[uuid.UUID]*entity.ToolResult{},
	}
}

type toolResultRepositoryImpl struct {
	mx      sync.RWMutex
	results map[uuid.UUID]*entity.ToolResult
}

func (r *toolResultRepositoryImpl) GetOrCreate(sessionId uuid.UUID) *entity.ToolResult {
	r.mx.RLock()
	defer r.mx.RUnlock()
	if result, ok := r.results[sessionId]; ok {
		return result
	}
	return entity.NewToolResult()
}

func (r *toolResultRepositoryImpl) Put(sessionId uuid.UUID, result *entity.ToolResult) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.results[sessionId] = result
}

func (r *toolResultRepositoryImpl) Claim(sessionId uuid.UUID) (*entity.ToolResult, bool) {
	r.mx.Lock()
	defer r.mx.Unlock()
	result, ok := r.results[sessionId]
	if !ok {
		result = entity.NewToolResult()
		result.SetStatus(view.StatusPreparing)
		r.results[sessionId] = result
		return result, true
	}
	return result, result.CompareAndSwapStatus(view.StatusUninitialized, view.StatusPreparing)
}

func (r *toolResultRepositoryImpl) Delete(sessionId uuid.UUID) {
	r.mx.Lock()
	defer r.mx.Unlock()
	delete(r.results, sessionId)
}

func (r *toolResultRepositoryImpl) Clear() {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.results = map[uuid.UUID]*entity.ToolResult{}
}
