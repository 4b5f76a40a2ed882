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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/lifs-tools/mztab-validator-service/entity"
)

// StorageSlot selects which of a session's files is addressed. A session
// holds exactly one DATA_FILE and at most one MAPPING_FILE.
type StorageSlot string

const (
	SlotDataFile    StorageSlot = "DATA_FILE"
	SlotMappingFile StorageSlot = "MAPPING_FILE"
)

// FileNotFoundError marks a missing session file, surfaced to the boundary
// layer as a not-found condition rather than a generic failure.
type FileNotFoundError struct {
	SessionId uuid.UUID
	Slot      StorageSlot
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("no %s file stored for session %s", e.Slot, e.SessionId)
}

type SessionInfo struct {
	SessionId uuid.UUID
	StoredAt  time.Time
}

// StorageService is the on-disk blob store, keyed by (session id, slot).
// Layout: <root>/<sessionId>/<slot>/<original file name>.
type StorageService interface {
	Store(content io.Reader, filename string, sessionId uuid.UUID, slot StorageSlot) (entity.UserSessionFile, error)
	StoreString(content string, sessionId uuid.UUID, slot StorageSlot) (entity.UserSessionFile, error)
	// Load resolves the stored file path; missing files return
	// *FileNotFoundError.
	Load(sessionId uuid.UUID, slot StorageSlot) (string, error)
	Exists(sessionId uuid.UUID, slot StorageSlot) bool
	Filename(sessionId uuid.UUID, slot StorageSlot) (string, error)
	ListSessions() ([]SessionInfo, error)
	DeleteAll(sessionId uuid.UUID) error
	DeleteEverything() error
}

func NewStorageService(rootPath string) (StorageService, error) {
	if err := os.MkdirAll(rootPath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", rootPath, err)
	}
	return &storageServiceImpl{rootPath: rootPath}, nil
}

type storageServiceImpl struct {
	rootPath string
}

func (s *storageServiceImpl) Store(content io.Reader, filename string, sessionId uuid.UUID, slot StorageSlot) (entity.UserSessionFile, error) {
	filename = sanitizeFilename(filename)
	slotDir := s.slotDir(sessionId, slot)
	// one file per slot, drop any previous upload
	if err := os.RemoveAll(slotDir); err != nil {
		return entity.UserSessionFile{}, err
	}
	if err := os.MkdirAll(slotDir, 0700); err != nil {
		return entity.UserSessionFile{}, err
	}

	target, err := os.Create(filepath.Join(slotDir, filename))
	if err != nil {
		return entity.UserSessionFile{}, err
	}
	defer target.Close()

	written, err := io.Copy(target, content)
	if err != nil {
		return entity.UserSessionFile{}, fmt.Errorf("failed to store %s for session %s: %w", slot, sessionId, err)
	}
	log.Debugf("Stored %s '%s' for session %s (%d bytes)", slot, filename, sessionId, written)
	return entity.UserSessionFile{SessionId: sessionId, Filename: filename}, nil
}

func (s *storageServiceImpl) StoreString(content string, sessionId uuid.UUID, slot StorageSlot) (entity.UserSessionFile, error) {
	return s.Store(strings.NewReader(content), defaultFilename(slot), sessionId, slot)
}

func (s *storageServiceImpl) Load(sessionId uuid.UUID, slot StorageSlot) (string, error) {
	filename, err := s.Filename(sessionId, slot)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.slotDir(sessionId, slot), filename), nil
}

func (s *storageServiceImpl) Exists(sessionId uuid.UUID, slot StorageSlot) bool {
	_, err := s.Filename(sessionId, slot)
	return err == nil
}

func (s *storageServiceImpl) Filename(sessionId uuid.UUID, slot StorageSlot) (string, error) {
	entries, err := os.ReadDir(s.slotDir(sessionId, slot))
	if err != nil {
		return "", &FileNotFoundError{SessionId: sessionId, Slot: slot}
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return entry.Name(), nil
		}
	}
	return "", &FileNotFoundError{SessionId: sessionId, Slot: slot}
}

func (s *storageServiceImpl) ListSessions() ([]SessionInfo, error) {
	entries, err := os.ReadDir(s.rootPath)
	if err != nil {
		return nil, err
	}
	var sessions []SessionInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sessionId, err := uuid.Parse(entry.Name())
		if err != nil {
			log.Debugf("Skipping non-session directory %s in storage root", entry.Name())
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		sessions = append(sessions, SessionInfo{SessionId: sessionId, StoredAt: info.ModTime()})
	}
	return sessions, nil
}

func (s *storageServiceImpl) DeleteAll(sessionId uuid.UUID) error {
	return os.RemoveAll(filepath.Join(s.rootPath, sessionId.String()))
}

func (s *storageServiceImpl) DeleteEverything() error {
	sessions, err := s.ListSessions()
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if err := s.DeleteAll(session.SessionId); err != nil {
			return err
		}
	}
	return nil
}

func (s *storageServiceImpl) slotDir(sessionId uuid.UUID, slot StorageSlot) string {
	return filepath.Join(s.rootPath, sessionId.String(), string(slot))
}

func sanitizeFilename(filename string) string {
	filename = filepath.Base(filepath.Clean(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return "upload.mztab"
	}
	return filename
}

func defaultFilename(slot StorageSlot) string {
	if slot == SlotMappingFile {
		return "mapping.xml"
	}
	return "upload.mztab"
}
