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

package controller

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/lifs-tools/mztab-validator-service/entity"
	"github.com/lifs-tools/mztab-validator-service/exception"
	"github.com/lifs-tools/mztab-validator-service/repository"
	"github.com/lifs-tools/mztab-validator-service/service"
	"github.com/lifs-tools/mztab-validator-service/view"
)

// SessionController serves the asynchronous validation flow: upload a file,
// poll the session status, fetch the categorized result, delete the session.
type SessionController interface {
	CreateSession(w http.ResponseWriter, r *http.Request)
	GetSessionStatus(w http.ResponseWriter, r *http.Request)
	GetSessionResult(w http.ResponseWriter, r *http.Request)
	DeleteSession(w http.ResponseWriter, r *http.Request)
}

func NewSessionController(validationService service.ValidationService, validationRunner service.ValidationRunner, storageService service.StorageService, systemInfoService service.SystemInfoService, toolResultRepository repository.ToolResultRepository) SessionController {
	return &sessionControllerImpl{
		validationService:    validationService,
		validationRunner:     validationRunner,
		storageService:       storageService,
		systemInfoService:    systemInfoService,
		toolResultRepository: toolResultRepository,
	}
}

type sessionControllerImpl struct {
	validationService    service.ValidationService
	validationRunner     service.ValidationRunner
	storageService       service.StorageService
	systemInfoService    service.SystemInfoService
	toolResultRepository repository.ToolResultRepository
}

func (s *sessionControllerImpl) CreateSession(w http.ResponseWriter, r *http.Request) {
	err := r.ParseMultipartForm(0)
	if err != nil {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.IncorrectMultipartFile,
			Message: exception.IncorrectMultipartFileMsg,
			Debug:   err.Error(),
		})
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Debugf("failed to remove multipart form temp data: %s", err.Error())
		}
	}()

	version, customErr := getMzTabVersionParam(r, "mzTabVersion")
	if customErr != nil {
		RespondWithCustomError(w, customErr)
		return
	}
	level, customErr := getLevelParam(r, "level")
	if customErr != nil {
		RespondWithCustomError(w, customErr)
		return
	}
	maxErrors, customErr := getMaxErrorsParam(r, "maxErrors")
	if customErr != nil {
		RespondWithCustomError(w, customErr)
		return
	}
	checkCvMapping, customErr := getCheckCvMappingParam(r, "checkCvMapping")
	if customErr != nil {
		RespondWithCustomError(w, customErr)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.RequiredParamsMissing,
			Message: exception.RequiredParamsMissingMsg,
			Params:  map[string]interface{}{"params": "file"},
			Debug:   err.Error(),
		})
		return
	}
	defer file.Close()

	sessionId := uuid.New()
	if _, err := s.storageService.Store(file, fileHeader.Filename, sessionId, service.SlotDataFile); err != nil {
		respondWithError(w, "Failed to store uploaded file", err)
		return
	}
	if checkCvMapping {
		if customErr := s.stageMappingFile(r, sessionId); customErr != nil {
			RespondWithCustomError(w, customErr)
			return
		}
	}
	log.Infof("Created validation session %s for file %s", sessionId, fileHeader.Filename)

	query := url.Values{}
	query.Set("mzTabVersion", string(version))
	query.Set("level", string(level))
	query.Set("maxErrors", strconv.Itoa(maxErrors))
	query.Set("checkCvMapping", strconv.FormatBool(checkCvMapping))
	http.Redirect(w, r, fmt.Sprintf("/api/v1/sessions/%s?%s", sessionId, query.Encode()), http.StatusSeeOther)
}

// stageMappingFile puts the uploaded mapping file, or the bundled default
// when none was sent, into the session's MAPPING_FILE slot.
func (s *sessionControllerImpl) stageMappingFile(r *http.Request, sessionId uuid.UUID) *exception.CustomError {
	mappingUpload, mappingHeader, err := r.FormFile("mappingFile")
	if err == nil {
		defer mappingUpload.Close()
		if _, err := s.storageService.Store(mappingUpload, mappingHeader.Filename, sessionId, service.SlotMappingFile); err != nil {
			return &exception.CustomError{
				Status:  http.StatusInternalServerError,
				Message: "Failed to store CV mapping file",
				Debug:   err.Error(),
			}
		}
		return nil
	}
	if err != http.ErrMissingFile {
		return &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.IncorrectMultipartFile,
			Message: exception.IncorrectMultipartFileMsg,
			Debug:   err.Error(),
		}
	}
	mappingPath := s.systemInfoService.GetDefaultMappingFilePath()
	defaultMapping, err := os.Open(mappingPath)
	if err != nil {
		log.Errorf("Default mapping file %s is not readable: %s", mappingPath, err.Error())
		return &exception.CustomError{
			Status:  http.StatusInternalServerError,
			Message: "Default CV mapping file is not available",
			Debug:   err.Error(),
		}
	}
	defer defaultMapping.Close()
	if _, err := s.storageService.Store(defaultMapping, "mapping.xml", sessionId, service.SlotMappingFile); err != nil {
		return &exception.CustomError{
			Status:  http.StatusInternalServerError,
			Message: "Failed to stage CV mapping file",
			Debug:   err.Error(),
		}
	}
	return nil
}

func (s *sessionControllerImpl) GetSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionId, customErr := getSessionIdParam(r)
	if customErr != nil {
		RespondWithCustomError(w, customErr)
		return
	}
	if !s.storageService.Exists(sessionId, service.SlotDataFile) {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusNotFound,
			Code:    exception.SessionFileMissing,
			Message: exception.SessionFileMissingMsg,
			Params:  map[string]interface{}{"slot": string(service.SlotDataFile), "sessionId": sessionId.String()},
		})
		return
	}

	result := s.validationRunner.GetStatus(sessionId)
	if result.Status() == view.StatusUninitialized {
		version, customErr := getMzTabVersionParam(r, "mzTabVersion")
		if customErr != nil {
			RespondWithCustomError(w, customErr)
			return
		}
		level, customErr := getLevelParam(r, "level")
		if customErr != nil {
			RespondWithCustomError(w, customErr)
			return
		}
		maxErrors, customErr := getMaxErrorsParam(r, "maxErrors")
		if customErr != nil {
			RespondWithCustomError(w, customErr)
			return
		}
		checkCvMapping, customErr := getCheckCvMappingParam(r, "checkCvMapping")
		if customErr != nil {
			RespondWithCustomError(w, customErr)
			return
		}
		result = s.validationRunner.RunValidation(service.ValidationRequest{
			Version:        version,
			SessionFile:    entity.UserSessionFile{SessionId: sessionId},
			MaxErrors:      maxErrors,
			Level:          level,
			CheckCvMapping: checkCvMapping,
		})
	}

	respondWithJson(w, http.StatusOK, view.SessionStatus{
		SessionId:  sessionId.String(),
		Status:     result.Status(),
		Parameters: result.Parameters(),
	})
}

func (s *sessionControllerImpl) GetSessionResult(w http.ResponseWriter, r *http.Request) {
	sessionId, customErr := getSessionIdParam(r)
	if customErr != nil {
		RespondWithCustomError(w, customErr)
		return
	}
	result := s.validationRunner.GetStatus(sessionId)
	status := result.Status()
	if status == view.StatusUninitialized && !s.storageService.Exists(sessionId, service.SlotDataFile) {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusNotFound,
			Code:    exception.EntityNotFound,
			Message: exception.EntityNotFoundMsg,
			Params:  map[string]interface{}{"entity": "Validation session", "id": sessionId.String()},
		})
		return
	}
	if !status.Terminal() {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusAccepted,
			Code:    exception.ResultNotReady,
			Message: exception.ResultNotReadyMsg,
			Params:  map[string]interface{}{"sessionId": sessionId.String(), "status": string(status)},
		})
		return
	}

	version, err := view.ParseMzTabVersion(result.Parameter(entity.ParamMzTabVersion))
	if err != nil {
		respondWithError(w, "Session has no usable mzTab version parameter", err)
		return
	}
	level, err := view.ParseSeverity(result.Parameter(entity.ParamValidationLevel))
	if err != nil {
		level = view.SeverityInfo
	}

	sessionResult := view.SessionResult{
		SessionId: sessionId.String(),
		Status:    status,
		Results:   s.validationService.FilterByLevel(s.validationService.AsValidationResults(result.Messages()), level),
	}
	if exceptionErr := result.Exception(); exceptionErr != nil {
		sessionResult.Error = exceptionErr.Error()
	}
	if status == view.StatusFinished {
		sections, err := s.validationService.Parse(r.Context(), version, entity.UserSessionFile{SessionId: sessionId})
		if err != nil {
			respondWithError(w, "Failed to render parsed sections", err)
			return
		}
		sessionResult.Sections = sections
	}
	respondWithJson(w, http.StatusOK, sessionResult)
}

func (s *sessionControllerImpl) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionId, customErr := getSessionIdParam(r)
	if customErr != nil {
		RespondWithCustomError(w, customErr)
		return
	}
	if err := s.storageService.DeleteAll(sessionId); err != nil {
		respondWithError(w, "Failed to delete session files", err)
		return
	}
	s.toolResultRepository.Delete(sessionId)
	log.Infof("Deleted validation session %s", sessionId)
	w.WriteHeader(http.StatusNoContent)
}

func getSessionIdParam(r *http.Request) (uuid.UUID, *exception.CustomError) {
	value, err := getUnescapedStringParam(r, "sessionId")
	if err != nil {
		return uuid.Nil, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.InvalidURLEscape,
			Message: exception.InvalidURLEscapeMsg,
			Params:  map[string]interface{}{"param": "sessionId"},
			Debug:   err.Error(),
		}
	}
	sessionId, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.InvalidParameterValue,
			Message: exception.InvalidParameterValueMsg,
			Params:  map[string]interface{}{"param": "sessionId", "value": value},
		}
	}
	return sessionId, nil
}
