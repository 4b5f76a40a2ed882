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

package main

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/lifs-tools/mztab-validator-service/client"
	"github.com/lifs-tools/mztab-validator-service/controller"
	"github.com/lifs-tools/mztab-validator-service/repository"
	"github.com/lifs-tools/mztab-validator-service/security"
	"github.com/lifs-tools/mztab-validator-service/service"
	"github.com/lifs-tools/mztab-validator-service/tracking"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %s", err.Error())
	}
	readyChan := make(chan bool)
	systemInfoService, err := service.NewSystemInfoService()
	if err != nil {
		panic(err)
	}
	logLevel, err := log.ParseLevel(systemInfoService.GetLogLevel())
	if err != nil {
		log.Errorf("Failed to parse log level '%s', using info: %s", systemInfoService.GetLogLevel(), err.Error())
		logLevel = log.InfoLevel
	}
	log.SetLevel(logLevel)

	storageService, err := service.NewStorageService(systemInfoService.GetStoragePath())
	if err != nil {
		panic(err)
	}
	toolResultRepository := repository.NewToolResultRepository()
	tracker := tracking.NewAnalyticsTracker(systemInfoService.GetTrackerUrl(), systemInfoService.GetTrackerSiteId())
	olsClient := client.NewOlsClient(systemInfoService.GetOlsUrl())

	validationService := service.NewValidationService(storageService, tracker, olsClient)
	validationRunner := service.NewValidationRunner(validationService, storageService, toolResultRepository, tracker, systemInfoService.GetWorkerCount())
	validationRunner.Start()
	cleanupService := service.NewCleanupService(storageService, toolResultRepository, systemInfoService.GetSessionRetention())
	cleanupService.Start()

	security.SetupGoGuardian(systemInfoService.GetAdminApiKey())

	validationController := controller.NewValidationController(validationService, storageService, systemInfoService)
	sessionController := controller.NewSessionController(validationService, validationRunner, storageService, systemInfoService, toolResultRepository)
	adminController := controller.NewAdminController(storageService, toolResultRepository)
	healthController := controller.NewHealthController(readyChan)

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/validate", security.NoSecure(validationController.ValidateMzTab)).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/sessions", security.NoSecure(sessionController.CreateSession)).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/sessions/{sessionId}", security.NoSecure(sessionController.GetSessionStatus)).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/sessions/{sessionId}/result", security.NoSecure(sessionController.GetSessionResult)).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/sessions/{sessionId}", security.NoSecure(sessionController.DeleteSession)).Methods(http.MethodDelete)
	router.HandleFunc("/api/admin/results", security.Secure(adminController.ClearResults)).Methods(http.MethodDelete)
	router.HandleFunc("/api/admin/storage", security.Secure(adminController.ClearStorage)).Methods(http.MethodDelete)

	router.HandleFunc("/live", healthController.HandleLiveRequest).Methods(http.MethodGet)
	router.HandleFunc("/ready", healthController.HandleReadyRequest).Methods(http.MethodGet)
	readyChan <- true
	close(readyChan)

	debug.SetGCPercent(30)

	srv := makeServer(systemInfoService, router)
	log.Fatalf("%v", srv.ListenAndServe())
}

func makeServer(systemInfoService service.SystemInfoService, r *mux.Router) *http.Server {
	listenAddr := systemInfoService.GetListenAddress()

	log.Infof("Listen addr = %s", listenAddr)

	var corsOptions []handlers.CORSOption

	corsOptions = append(corsOptions, handlers.AllowedHeaders([]string{"Connection", "Accept-Encoding", "Content-Encoding", "X-Requested-With", "Content-Type", "Authorization"}))

	allowedOrigin := systemInfoService.GetOriginAllowed()
	if allowedOrigin != "" {
		corsOptions = append(corsOptions, handlers.AllowedOrigins([]string{allowedOrigin}))
	}
	corsOptions = append(corsOptions, handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"}))

	return &http.Server{
		Handler:      handlers.CompressHandler(handlers.CORS(corsOptions...)(r)),
		Addr:         listenAddr,
		WriteTimeout: 600 * time.Second,
		ReadTimeout:  60 * time.Second,
	}
}
