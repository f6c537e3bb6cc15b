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

package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/carverauto/arceus/pkg/models"
)

const apkExt = ".apk"

func (s *Server) listAPKs(w http.ResponseWriter, r *http.Request) {
	if s.cfg.APKDir == "" {
		writeErr(w, errNoAPKDir)

		return
	}

	entries, err := os.ReadDir(s.cfg.APKDir)
	if errors.Is(err, fs.ErrNotExist) {
		encodeJSONResponse(w, http.StatusOK, []models.APKInfo{})

		return
	}

	if err != nil {
		s.logger.Error().Err(err).Str("dir", s.cfg.APKDir).Msg("Failed to read APK directory")
		writeError(w, "failed to read apk directory", http.StatusInternalServerError)

		return
	}

	base := s.publicBase(r)
	apks := make([]models.APKInfo, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), apkExt) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		apks = append(apks, models.APKInfo{
			Name: e.Name(),
			Size: info.Size(),
			URL:  apkURL(base, e.Name()),
		})
	}

	sort.Slice(apks, func(i, j int) bool { return apks[i].Name < apks[j].Name })

	encodeJSONResponse(w, http.StatusOK, apks)
}

// installURL resolves an InstallRequest body to the URL headsets download.
func (s *Server) installURL(r *http.Request) (string, error) {
	var req models.InstallRequest
	if err := decodeBody(r, &req); err != nil {
		return "", err
	}

	switch {
	case req.URL != "" && req.File != "":
		return "", fmt.Errorf("%w: set either file or url", errInvalidBody)
	case req.URL != "":
		u, err := url.Parse(req.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", fmt.Errorf("%w: url must be absolute http(s)", errInvalidAPK)
		}

		return req.URL, nil
	case req.File != "":
		return s.repositoryURL(r, req.File)
	default:
		return "", fmt.Errorf("%w: file or url is required", errInvalidBody)
	}
}

func (s *Server) repositoryURL(r *http.Request, name string) (string, error) {
	if s.cfg.APKDir == "" {
		return "", errNoAPKDir
	}

	if name != filepath.Base(name) || !strings.EqualFold(filepath.Ext(name), apkExt) {
		return "", fmt.Errorf("%w: %q", errInvalidAPK, name)
	}

	info, err := os.Stat(filepath.Join(s.cfg.APKDir, name))
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %q not found in repository", errInvalidAPK, name)
	}

	return apkURL(s.publicBase(r), name), nil
}

// publicBase prefers the configured public URL; otherwise it assumes headsets
// reach the API the same way the caller did.
func (s *Server) publicBase(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimRight(s.cfg.PublicURL, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}

func apkURL(base, name string) string {
	return base + "/apks/" + url.PathEscape(name)
}
