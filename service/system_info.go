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
	"os"
	"runtime"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	LISTEN_ADDRESS       = "LISTEN_ADDRESS"
	ORIGIN_ALLOWED       = "ORIGIN_ALLOWED"
	LOG_LEVEL            = "LOG_LEVEL"
	CONFIG_FILE          = "CONFIG_FILE"
	STORAGE_PATH         = "STORAGE_PATH"
	OLS_URL              = "OLS_URL"
	TRACKER_URL          = "TRACKER_URL"
	TRACKER_SITE_ID      = "TRACKER_SITE_ID"
	ADMIN_API_KEY        = "ADMIN_API_KEY"
	DEFAULT_MAPPING_FILE = "DEFAULT_MAPPING_FILE"
	SESSION_RETENTION_H  = "SESSION_RETENTION_HOURS"
	MAX_WORKERS          = "MAX_WORKERS"
)

type SystemInfoService interface {
	Init() error
	GetListenAddress() string
	GetOriginAllowed() string
	GetLogLevel() string
	GetStoragePath() string
	GetOlsUrl() string
	GetTrackerUrl() string
	GetTrackerSiteId() string
	GetAdminApiKey() string
	GetDefaultMappingFilePath() string
	GetSessionRetention() time.Duration
	GetWorkerCount() int
}

// fileConfig mirrors the optional YAML config file; environment variables
// override any value set here.
type fileConfig struct {
	ListenAddress      string `yaml:"listenAddress"`
	OriginAllowed      string `yaml:"originAllowed"`
	LogLevel           string `yaml:"logLevel"`
	StoragePath        string `yaml:"storagePath"`
	OlsUrl             string `yaml:"olsUrl"`
	TrackerUrl         string `yaml:"trackerUrl"`
	TrackerSiteId      string `yaml:"trackerSiteId"`
	AdminApiKey        string `yaml:"adminApiKey"`
	DefaultMappingFile string `yaml:"defaultMappingFile"`
	SessionRetentionH  int    `yaml:"sessionRetentionHours"`
	MaxWorkers         int    `yaml:"maxWorkers"`
}

func NewSystemInfoService() (SystemInfoService, error) {
	s := &systemInfoServiceImpl{
		systemInfoMap: make(map[string]interface{})}
	if err := s.Init(); err != nil {
		log.Error("Failed to read system info: " + err.Error())
		return nil, err
	}
	return s, nil
}

type systemInfoServiceImpl struct {
	systemInfoMap map[string]interface{}
}

func (g systemInfoServiceImpl) Init() error {
	cfg := fileConfig{}
	if configPath := os.Getenv(CONFIG_FILE); configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return err
		}
		log.Infof("Loaded configuration file %s", configPath)
	}

	g.setString(LISTEN_ADDRESS, cfg.ListenAddress, ":8080")
	g.setString(ORIGIN_ALLOWED, cfg.OriginAllowed, "")
	g.setString(LOG_LEVEL, cfg.LogLevel, "info")
	g.setString(STORAGE_PATH, cfg.StoragePath, "uploads")
	g.setString(OLS_URL, cfg.OlsUrl, "https://www.ebi.ac.uk/ols4")
	g.setString(TRACKER_URL, cfg.TrackerUrl, "")
	g.setString(TRACKER_SITE_ID, cfg.TrackerSiteId, "")
	g.setString(ADMIN_API_KEY, cfg.AdminApiKey, "")
	g.setString(DEFAULT_MAPPING_FILE, cfg.DefaultMappingFile, "mappings/mzTab-M-mapping.xml")
	g.setInt(SESSION_RETENTION_H, cfg.SessionRetentionH, 24)
	g.setInt(MAX_WORKERS, cfg.MaxWorkers, max(1, runtime.NumCPU()-1))

	return nil
}

func (g systemInfoServiceImpl) setString(key string, fileValue string, defaultValue string) {
	value := os.Getenv(key)
	if value == "" {
		value = fileValue
	}
	if value == "" {
		value = defaultValue
	}
	g.systemInfoMap[key] = value
}

func (g systemInfoServiceImpl) setInt(key string, fileValue int, defaultValue int) {
	value := fileValue
	if env := os.Getenv(key); env != "" {
		parsed, err := strconv.Atoi(env)
		if err != nil {
			log.Errorf("Value '%s' for %s is not an integer, ignoring", env, key)
		} else {
			value = parsed
		}
	}
	if value <= 0 {
		value = defaultValue
	}
	g.systemInfoMap[key] = value
}

func (g systemInfoServiceImpl) GetListenAddress() string {
	return g.systemInfoMap[LISTEN_ADDRESS].(string)
}

func (g systemInfoServiceImpl) GetOriginAllowed() string {
	return g.systemInfoMap[ORIGIN_ALLOWED].(string)
}

func (g systemInfoServiceImpl) GetLogLevel() string {
	return g.systemInfoMap[LOG_LEVEL].(string)
}

func (g systemInfoServiceImpl) GetStoragePath() string {
	return g.systemInfoMap[STORAGE_PATH].(string)
}

func (g systemInfoServiceImpl) GetOlsUrl() string {
	return g.systemInfoMap[OLS_URL].(string)
}

func (g systemInfoServiceImpl) GetTrackerUrl() string {
	return g.systemInfoMap[TRACKER_URL].(string)
}

func (g systemInfoServiceImpl) GetTrackerSiteId() string {
	return g.systemInfoMap[TRACKER_SITE_ID].(string)
}

func (g systemInfoServiceImpl) GetAdminApiKey() string {
	return g.systemInfoMap[ADMIN_API_KEY].(string)
}

func (g systemInfoServiceImpl) GetDefaultMappingFilePath() string {
	return g.systemInfoMap[DEFAULT_MAPPING_FILE].(string)
}

func (g systemInfoServiceImpl) GetSessionRetention() time.Duration {
	return time.Duration(g.systemInfoMap[SESSION_RETENTION_H].(int)) * time.Hour
}

func (g systemInfoServiceImpl) GetWorkerCount() int {
	return g.systemInfoMap[MAX_WORKERS].(int)
}
