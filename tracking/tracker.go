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

package tracking

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/resty.v1"

	"github.com/lifs-tools/mztab-validator-service/utils"
)

// AnalyticsTracker posts usage events to a Matomo-compatible endpoint. All
// calls are fire and forget; tracking failures never affect a job.
type AnalyticsTracker interface {
	Started(sessionId uuid.UUID, action string, label string)
	Stopped(sessionId uuid.UUID, action string, label string)
}

// NewAnalyticsTracker returns a tracker posting to trackerUrl, or a no-op
// tracker when the url is empty.
func NewAnalyticsTracker(trackerUrl string, siteId string) AnalyticsTracker {
	if trackerUrl == "" {
		return &noopTracker{}
	}
	cl := http.Client{Timeout: time.Second * 10}
	return &matomoTracker{trackerUrl: trackerUrl, siteId: siteId, client: resty.NewWithClient(&cl)}
}

type matomoTracker struct {
	trackerUrl string
	siteId     string
	client     *resty.Client
}

func (t *matomoTracker) Started(sessionId uuid.UUID, action string, label string) {
	t.send(sessionId, action+"/start", label)
}

func (t *matomoTracker) Stopped(sessionId uuid.UUID, action string, label string) {
	t.send(sessionId, action+"/stop", label)
}

func (t *matomoTracker) send(sessionId uuid.UUID, action string, label string) {
	utils.SafeAsync(func() {
		resp, err := t.client.R().
			SetQueryParams(map[string]string{
				"idsite":      t.siteId,
				"rec":         "1",
				"action_name": action + "/" + label,
				// session ids are user data, only a digest leaves the service
				"uid": utils.CreateSHA256Hash([]byte(sessionId.String())),
			}).
			Get(t.trackerUrl)
		if err != nil {
			log.Debugf("Tracking event %s for session %s failed: %s", action, sessionId, err)
			return
		}
		if resp.StatusCode() >= 400 {
			log.Debugf("Tracking event %s for session %s failed with status %d", action, sessionId, resp.StatusCode())
		}
	})
}

type noopTracker struct{}

func (n *noopTracker) Started(uuid.UUID, string, string) {}
func (n *noopTracker) Stopped(uuid.UUID, string, string) {}
