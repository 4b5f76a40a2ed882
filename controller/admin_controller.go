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
	"net/http"

	"github.com/shaj13/go-guardian/v2/auth"
	log "github.com/sirupsen/logrus"

	"github.com/lifs-tools/mztab-validator-service/exception"
	"github.com/lifs-tools/mztab-validator-service/repository"
	"github.com/lifs-tools/mztab-validator-service/service"
)

// adminGroup must match the group granted by the admin API key strategy.
const adminGroup = "admin"

// AdminController exposes maintenance operations behind the admin API key.
type AdminController interface {
	ClearResults(w http.ResponseWriter, r *http.Request)
	ClearStorage(w http.ResponseWriter, r *http.Request)
}

func NewAdminController(storageService service.StorageService, toolResultRepository repository.ToolResultRepository) AdminController {
	return &adminControllerImpl{
		storageService:       storageService,
		toolResultRepository: toolResultRepository,
	}
}

type adminControllerImpl struct {
	storageService       service.StorageService
	toolResultRepository repository.ToolResultRepository
}

func (a *adminControllerImpl) ClearResults(w http.ResponseWriter, r *http.Request) {
	if !hasAdminGroup(r) {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusForbidden,
			Code:    exception.InsufficientPrivileges,
			Message: exception.InsufficientPrivilegesMsg,
		})
		return
	}
	a.toolResultRepository.Clear()
	log.Info("Cleared all validation results")
	w.WriteHeader(http.StatusNoContent)
}

func (a *adminControllerImpl) ClearStorage(w http.ResponseWriter, r *http.Request) {
	if !hasAdminGroup(r) {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusForbidden,
			Code:    exception.InsufficientPrivileges,
			Message: exception.InsufficientPrivilegesMsg,
		})
		return
	}
	if err := a.storageService.DeleteEverything(); err != nil {
		respondWithError(w, "Failed to clear session storage", err)
		return
	}
	a.toolResultRepository.Clear()
	log.Info("Cleared session storage and validation results")
	w.WriteHeader(http.StatusNoContent)
}

func hasAdminGroup(r *http.Request) bool {
	user := auth.User(r)
	if user == nil {
		return false
	}
	for _, group := range user.GetGroups() {
		if group == adminGroup {
			return true
		}
	}
	return false
}
