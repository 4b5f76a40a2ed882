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
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/lifs-tools/mztab-validator-service/exception"
	"github.com/lifs-tools/mztab-validator-service/service"
	"github.com/lifs-tools/mztab-validator-service/view"
)

const (
	defaultMaxErrors = 100
	maxErrorsLimit   = 500
)

// ValidationController serves the synchronous validation endpoint: mzTab
// text in the request body, messages in the response, nothing retained.
type ValidationController interface {
	ValidateMzTab(w http.ResponseWriter, r *http.Request)
}

func NewValidationController(validationService service.ValidationService, storageService service.StorageService, systemInfoService service.SystemInfoService) ValidationController {
	return &validationControllerImpl{
		validationService: validationService,
		storageService:    storageService,
		systemInfoService: systemInfoService,
	}
}

type validationControllerImpl struct {
	validationService service.ValidationService
	storageService    service.StorageService
	systemInfoService service.SystemInfoService
}

func (v *validationControllerImpl) ValidateMzTab(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil ||
		(mediaType != "text/plain" && mediaType != "text/tab-separated-values") {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusUnsupportedMediaType,
			Code:    exception.UnsupportedContentType,
			Message: exception.UnsupportedContentTypeMsg,
			Params:  map[string]interface{}{"contentType": contentType},
		})
		return
	}

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
	semanticValidation, customErr := getCheckCvMappingParam(r, "semanticValidation")
	if customErr != nil {
		RespondWithCustomError(w, customErr)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.BadRequestBody,
			Message: exception.BadRequestBodyMsg,
			Debug:   err.Error(),
		})
		return
	}

	// the document is staged under a throwaway session and removed again,
	// the synchronous endpoint keeps nothing
	sessionId := uuid.New()
	defer func() {
		if err := v.storageService.DeleteAll(sessionId); err != nil {
			log.Errorf("Failed to clean up synchronous validation session %s: %s", sessionId, err.Error())
		}
	}()
	sessionFile, err := v.storageService.StoreString(string(body), sessionId, service.SlotDataFile)
	if err != nil {
		respondWithError(w, "Failed to store document for validation", err)
		return
	}
	if semanticValidation {
		if customErr := v.stageDefaultMappingFile(sessionId); customErr != nil {
			RespondWithCustomError(w, customErr)
			return
		}
	}

	messages, err := v.validationService.Validate(r.Context(), version, sessionFile, maxErrors, level, semanticValidation)
	if err != nil {
		respondWithError(w, "Validation failed", err)
		return
	}
	if len(messages) == 0 {
		respondWithJson(w, http.StatusOK, []view.ValidationMessage{})
		return
	}
	respondWithJson(w, http.StatusUnprocessableEntity, messages)
}

func (v *validationControllerImpl) stageDefaultMappingFile(sessionId uuid.UUID) *exception.CustomError {
	mappingPath := v.systemInfoService.GetDefaultMappingFilePath()
	mappingFile, err := os.Open(mappingPath)
	if err != nil {
		log.Errorf("Default mapping file %s is not readable: %s", mappingPath, err.Error())
		return &exception.CustomError{
			Status:  http.StatusInternalServerError,
			Message: "Default CV mapping file is not available",
			Debug:   err.Error(),
		}
	}
	defer mappingFile.Close()
	if _, err := v.storageService.Store(mappingFile, "mapping.xml", sessionId, service.SlotMappingFile); err != nil {
		return &exception.CustomError{
			Status:  http.StatusInternalServerError,
			Message: "Failed to stage CV mapping file",
			Debug:   err.Error(),
		}
	}
	return nil
}

func getMzTabVersionParam(r *http.Request, param string) (view.MzTabVersion, *exception.CustomError) {
	value := r.URL.Query().Get(param)
	if value == "" {
		value = r.FormValue(param)
	}
	if value == "" {
		return view.MzTab20, nil
	}
	version, err := view.ParseMzTabVersion(value)
	if err != nil {
		return "", &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.UnsupportedMzTabVersion,
			Message: exception.UnsupportedMzTabVersionMsg,
			Params:  map[string]interface{}{"version": value},
		}
	}
	return version, nil
}

func getLevelParam(r *http.Request, param string) (view.Severity, *exception.CustomError) {
	value := r.URL.Query().Get(param)
	if value == "" {
		value = r.FormValue(param)
	}
	if value == "" {
		return view.SeverityInfo, nil
	}
	level, err := view.ParseSeverity(value)
	if err != nil {
		return "", &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.InvalidParameterValue,
			Message: exception.InvalidParameterValueMsg,
			Params:  map[string]interface{}{"param": param, "value": value},
		}
	}
	return level, nil
}

// getMaxErrorsParam clamps the requested cap into [0, 500] instead of
// rejecting out-of-range values.
func getMaxErrorsParam(r *http.Request, param string) (int, *exception.CustomError) {
	value := r.URL.Query().Get(param)
	if value == "" {
		value = r.FormValue(param)
	}
	if value == "" {
		return defaultMaxErrors, nil
	}
	maxErrors, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.InvalidParameterValue,
			Message: exception.InvalidParameterValueMsg,
			Params:  map[string]interface{}{"param": param, "value": value},
		}
	}
	if maxErrors < 0 {
		maxErrors = 0
	}
	if maxErrors > maxErrorsLimit {
		maxErrors = maxErrorsLimit
	}
	return maxErrors, nil
}

func getCheckCvMappingParam(r *http.Request, param string) (bool, *exception.CustomError) {
	value := r.URL.Query().Get(param)
	if value == "" {
		value = r.FormValue(param)
	}
	if value == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.InvalidParameterValue,
			Message: exception.InvalidParameterValueMsg,
			Params:  map[string]interface{}{"param": param, "value": value},
		}
	}
	return parsed, nil
}
