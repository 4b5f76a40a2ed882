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
	"strconv"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/lifs-tools/mztab-validator-service/entity"
	"github.com/lifs-tools/mztab-validator-service/mztab"
	"github.com/lifs-tools/mztab-validator-service/repository"
	"github.com/lifs-tools/mztab-validator-service/tracking"
	"github.com/lifs-tools/mztab-validator-service/utils"
	"github.com/lifs-tools/mztab-validator-service/view"
)

// ValidationRequest carries everything a background validation job needs.
type ValidationRequest struct {
	Version        view.MzTabVersion
	SessionFile    entity.UserSessionFile
	MaxErrors      int
	Level          view.Severity
	CheckCvMapping bool
}

// ValidationRunner executes validation jobs on a bounded worker pool and
// tracks their lifecycle in the result repository. Jobs are not cancellable
// once claimed; a validation run is short relative to session retention.
type ValidationRunner interface {
	Start()
	// RunValidation claims the session and enqueues a job for it. Calling it
	// again for the same session, including after the job finished, returns
	// the existing record without scheduling anything.
	RunValidation(request ValidationRequest) *entity.ToolResult
	GetStatus(sessionId uuid.UUID) *entity.ToolResult
}

func NewValidationRunner(validationService ValidationService, storageService StorageService, toolResultRepository repository.ToolResultRepository, tracker tracking.AnalyticsTracker, workers int) ValidationRunner {
	if workers < 1 {
		workers = 1
	}
	return &validationRunnerImpl{
		validationService:    validationService,
		storageService:       storageService,
		toolResultRepository: toolResultRepository,
		tracker:              tracker,
		workers:              workers,
		jobs:                 make(chan validationJob, 1024),
	}
}

type validationJob struct {
	request ValidationRequest
	result  *entity.ToolResult
}

type validationRunnerImpl struct {
	validationService    ValidationService
	storageService       StorageService
	toolResultRepository repository.ToolResultRepository
	tracker              tracking.AnalyticsTracker
	workers              int
	jobs                 chan validationJob
}

func (r *validationRunnerImpl) Start() {
	log.Infof("Starting validation runner with %d workers", r.workers)
	for i := 0; i < r.workers; i++ {
		utils.SafeAsync(func() {
			for job := range r.jobs {
				r.process(job)
			}
		})
	}
}

func (r *validationRunnerImpl) RunValidation(request ValidationRequest) *entity.ToolResult {
	sessionId := request.SessionFile.SessionId
	result, claimed := r.toolResultRepository.Claim(sessionId)
	if !claimed {
		return result
	}
	result.SetParameters(map[string]string{
		entity.ParamMzTabVersion:    string(request.Version),
		entity.ParamMaxErrors:       strconv.Itoa(request.MaxErrors),
		entity.ParamValidationLevel: string(request.Level),
		entity.ParamCheckCvMapping:  strconv.FormatBool(request.CheckCvMapping),
	})
	log.Infof("Scheduling validation for session %s", sessionId)
	r.tracker.Started(sessionId, "runValidation", string(request.Version))
	r.jobs <- validationJob{request: request, result: result}
	return result
}

func (r *validationRunnerImpl) GetStatus(sessionId uuid.UUID) *entity.ToolResult {
	return r.toolResultRepository.GetOrCreate(sessionId)
}

func (r *validationRunnerImpl) process(job validationJob) {
	request := job.request
	result := job.result
	sessionId := request.SessionFile.SessionId

	filePath, err := r.storageService.Load(sessionId, SlotDataFile)
	if err != nil {
		r.fail(sessionId, result, err)
		return
	}
	result.SetStatus(view.StatusStarted)

	mappingPath := ""
	if request.CheckCvMapping {
		if !r.storageService.Exists(sessionId, SlotMappingFile) {
			r.fail(sessionId, result, fmt.Errorf("semantic validation was requested but mapping file for session %s does not exist", sessionId))
			return
		}
		mappingPath, err = r.storageService.Load(sessionId, SlotMappingFile)
		if err != nil {
			r.fail(sessionId, result, err)
			return
		}
	}
	result.SetStatus(view.StatusRunning)

	messages, err := r.validationService.ValidatePath(context.Background(), request.Version, filePath, request.MaxErrors, request.Level, request.CheckCvMapping, mappingPath)
	if err != nil {
		r.fail(sessionId, result, err)
		return
	}
	result.SetMessages(messages)
	result.SetStatus(view.StatusFinished)
	r.toolResultRepository.Put(sessionId, result)
	log.Infof("Validation for session %s finished with %d messages", sessionId, len(messages))
	r.tracker.Stopped(sessionId, "runValidation", "success")
}

func (r *validationRunnerImpl) fail(sessionId uuid.UUID, result *entity.ToolResult, err error) {
	log.Errorf("Validation for session %s failed: %s", sessionId, err.Error())
	result.SetException(err)
	if parseErr, ok := err.(*mztab.ParseError); ok {
		result.SetMessages([]view.ValidationMessage{parseErr.Cause.ToValidationMessage()})
	} else {
		result.SetMessages([]view.ValidationMessage{{
			LineNumber:  view.NoLineNumber,
			MessageType: view.SeverityError,
			Category:    view.CategoryCrossCheck,
			Message:     err.Error(),
			Code:        "ValidationFailure",
		}})
	}
	result.SetStatus(view.StatusFailed)
	r.toolResultRepository.Put(sessionId, result)
	r.tracker.Stopped(sessionId, "runValidation", "fail")
}
