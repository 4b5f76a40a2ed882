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

package security

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/shaj13/go-guardian/v2/auth"
)

// NewAdminApiKeyStrategy authenticates the static admin API key sent in the
// api-key header. Authenticated principals carry the admin group checked by
// the maintenance handlers.
func NewAdminApiKeyStrategy(adminApiKey string) auth.Strategy {
	return &adminApiKeyStrategyImpl{adminApiKey: adminApiKey}
}

type adminApiKeyStrategyImpl struct {
	adminApiKey string
}

func (a adminApiKeyStrategyImpl) Authenticate(ctx context.Context, r *http.Request) (auth.Info, error) {
	if a.adminApiKey == "" {
		return nil, fmt.Errorf("authentication failed: no admin api key is configured")
	}
	apiKeyHeader := r.Header.Get("api-key")
	if apiKeyHeader == "" {
		return nil, fmt.Errorf("authentication failed: %v is empty", "api-key")
	}
	if subtle.ConstantTimeCompare([]byte(apiKeyHeader), []byte(a.adminApiKey)) != 1 {
		return nil, fmt.Errorf("authentication failed: %v is not valid", "api-key")
	}
	return auth.NewDefaultUser("admin", "admin", []string{"admin"}, auth.Extensions{}), nil
}
