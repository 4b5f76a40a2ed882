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
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifs-tools/mztab-validator-service/exception"
	"github.com/lifs-tools/mztab-validator-service/view"
)

func multipartUpload(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func createSession(t *testing.T, env *testEnv, fields map[string]string, content string) string {
	t.Helper()
	body, contentType := multipartUpload(t, fields, "lipids.mztab", content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body)
	req.Header.Set("Content-Type", contentType)

	resp := env.do(t, req)
	require.Equal(t, http.StatusSeeOther, resp.Code, resp.Body.String())
	location := resp.Header().Get("Location")
	require.NotEmpty(t, location)
	return location
}

func pollUntilTerminal(t *testing.T, env *testEnv, location string) view.SessionStatus {
	t.Helper()
	var status view.SessionStatus
	require.Eventually(t, func() bool {
		resp := env.do(t, httptest.NewRequest(http.MethodGet, location, nil))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
		return status.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return status
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	location := createSession(t, env, map[string]string{"mzTabVersion": "MZTAB_2_0", "level": "info"}, cleanDocument)

	status := pollUntilTerminal(t, env, location)
	assert.Equal(t, view.StatusFinished, status.Status)
	assert.Equal(t, "MZTAB_2_0", status.Parameters["MZTABVERSION"])

	sessionPath := strings.SplitN(location, "?", 2)[0]
	resp := env.do(t, httptest.NewRequest(http.MethodGet, sessionPath+"/result", nil))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result view.SessionResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, view.StatusFinished, result.Status)
	assert.Empty(t, result.Results)
	assert.Empty(t, result.Error)
	require.Contains(t, result.Sections, "META")
	require.Contains(t, result.Sections, "SUMMARY")
	assert.Len(t, result.Sections["SUMMARY"], 1)

	// delete the session and verify it is gone
	resp = env.do(t, httptest.NewRequest(http.MethodDelete, sessionPath, nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = env.do(t, httptest.NewRequest(http.MethodGet, sessionPath, nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSessionWithFindings(t *testing.T) {
	env := newTestEnv(t)
	broken := "MTD\tmzTab-version\t2.0.0-M\n" +
		"XXX\tbogus line\n" +
		"SMH\tSML_ID\n" +
		"SML\t1\n"
	location := createSession(t, env, map[string]string{"level": "error"}, broken)

	status := pollUntilTerminal(t, env, location)
	require.Equal(t, view.StatusFinished, status.Status)

	sessionPath := strings.SplitN(location, "?", 2)[0]
	resp := env.do(t, httptest.NewRequest(http.MethodGet, sessionPath+"/result", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var result view.SessionResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.NotEmpty(t, result.Results)
	assert.Equal(t, int64(2), result.Results[0].LineNumber)
	assert.Equal(t, "table-danger", result.Results[0].StyleClass)
}

func TestSessionResultBeforeRunIsAccepted(t *testing.T) {
	env := newTestEnv(t)
	location := createSession(t, env, nil, cleanDocument)
	sessionPath := strings.SplitN(location, "?", 2)[0]

	// no status poll happened, the job never started
	resp := env.do(t, httptest.NewRequest(http.MethodGet, sessionPath+"/result", nil))
	assert.Equal(t, http.StatusAccepted, resp.Code)
}

func TestSessionResultUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/00000000-0000-0000-0000-000000000002/result", nil))
	require.Equal(t, http.StatusNotFound, resp.Code)

	var customError exception.CustomError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &customError))
	assert.Equal(t, exception.EntityNotFound, customError.Code)
}

func TestSessionStatusUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/00000000-0000-0000-0000-000000000001", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSessionRejectsBadSessionId(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateSessionWithoutFile(t *testing.T) {
	env := newTestEnv(t)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("mzTabVersion", "MZTAB_2_0"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateSessionRedirectCarriesParameters(t *testing.T) {
	env := newTestEnv(t)
	location := createSession(t, env, map[string]string{
		"mzTabVersion": "MZTAB_1_0",
		"level":        "warn",
		"maxErrors":    "42",
	}, "MTD\tmzTab-version\t1.0.0\nPRH\taccession\nPRT\tP12345\n")

	for _, expected := range []string{"mzTabVersion=MZTAB_1_0", "level=WARN", "maxErrors=42", "checkCvMapping=false"} {
		assert.Contains(t, location, expected, fmt.Sprintf("redirect must carry %s", expected))
	}
}
