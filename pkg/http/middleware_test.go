/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carverauto/arceus/pkg/logger"
	"github.com/carverauto/arceus/pkg/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
}

func TestCommonMiddlewareCORS(t *testing.T) {
	cors := models.CORSConfig{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
	}

	handler := CommonMiddleware(okHandler(), cors, logger.NewTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "http://evil.com")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCommonMiddlewarePreflight(t *testing.T) {
	called := false
	handler := CommonMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}), models.CORSConfig{AllowedOrigins: []string{"*"}}, logger.NewTestLogger())

	req := httptest.NewRequest(http.MethodOptions, "/api/devices", http.NoBody)
	req.Header.Set("Origin", "http://anywhere")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, called)
	assert.Equal(t, "http://anywhere", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestAPIKeyMiddleware(t *testing.T) {
	handler := APIKeyMiddlewareWithOptions(APIKeyOptions{
		APIKey:          "test-key",
		ExcludePaths:    []string{"/apks/"},
		LogUnauthorized: true,
		Logger:          logger.NewTestLogger(),
	})(okHandler())

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing key", "/api/devices", "", http.StatusUnauthorized},
		{"wrong key", "/api/devices", "nope", http.StatusUnauthorized},
		{"valid key", "/api/devices", "test-key", http.StatusOK},
		{"query key", "/api/events?api_key=test-key", "", http.StatusOK},
		{"excluded path", "/apks/app.apk", "", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, http.NoBody)
			if tc.header != "" {
				req.Header.Set("X-API-Key", tc.header)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestAPIKeyMiddlewareDisabled(t *testing.T) {
	handler := APIKeyMiddlewareWithOptions(APIKeyOptions{})(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/devices", http.NoBody))

	assert.Equal(t, http.StatusOK, rr.Code)
}
