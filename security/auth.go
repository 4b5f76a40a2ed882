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
	"github.com/shaj13/go-guardian/v2/auth/strategies/union"
	_ "github.com/shaj13/libcache/lru"
)

var strategy union.Union

// SetupGoGuardian wires the authentication strategies used by Secure. Only
// admin maintenance endpoints are authenticated, the validation API is open.
func SetupGoGuardian(adminApiKey string) {
	strategy = union.New(NewAdminApiKeyStrategy(adminApiKey))
}
