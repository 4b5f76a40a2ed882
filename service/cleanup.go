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
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/lifs-tools/mztab-validator-service/repository"
	"github.com/lifs-tools/mztab-validator-service/utils"
)

// CleanupService removes uploaded session files and their job records after
// the configured retention. Validation results are otherwise kept for the
// whole process lifetime, so this ticker is the only automatic reclamation.
type CleanupService interface {
	Start()
	CleanupExpiredSessions() (int, error)
}

func NewCleanupService(storageService StorageService, resultRepo repository.ToolResultRepository, retention time.Duration) CleanupService {
	return &cleanupServiceImpl{
		storageService: storageService,
		resultRepo:     resultRepo,
		retention:      retention,
	}
}

type cleanupServiceImpl struct {
	storageService StorageService
	resultRepo     repository.ToolResultRepository
	retention      time.Duration
}

func (c *cleanupServiceImpl) Start() {
	utils.SafeAsync(func() {
		ticker := time.NewTicker(time.Hour)
		for range ticker.C {
			removed, err := c.CleanupExpiredSessions()
			if err != nil {
				log.Errorf("Session cleanup failed: %s", err)
				continue
			}
			if removed > 0 {
				log.Infof("Session cleanup removed %d expired sessions", removed)
			}
		}
	})
}

func (c *cleanupServiceImpl) CleanupExpiredSessions() (int, error) {
	sessions, err := c.storageService.ListSessions()
	if err != nil {
		return 0, err
	}
	deadline := time.Now().Add(-c.retention)
	removed := 0
	for _, session := range sessions {
		if session.StoredAt.After(deadline) {
			continue
		}
		if err := c.storageService.DeleteAll(session.SessionId); err != nil {
			log.Errorf("Failed to delete files of expired session %s: %s", session.SessionId, err)
			continue
		}
		c.resultRepo.Delete(session.SessionId)
		removed++
	}
	return removed, nil
}
