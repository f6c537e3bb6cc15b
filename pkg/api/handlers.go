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
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carverauto/arceus/pkg/models"
	"github.com/carverauto/arceus/pkg/protocol"
)

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}

	return nil
}

func (s *Server) listDevices(w http.ResponseWriter, _ *http.Request) {
	encodeJSONResponse(w, http.StatusOK, s.fleet.ListDevices())
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	snap, err := s.fleet.GetDevice(mux.Vars(r)["key"])
	if err != nil {
		writeErr(w, err)

		return
	}

	encodeJSONResponse(w, http.StatusOK, snap)
}

func (s *Server) sendCommand(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req models.CommandRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)

		return
	}

	t, err := protocol.ParseMessageType(req.Type)
	if err != nil {
		writeErr(w, err)

		return
	}

	if err := s.fleet.SendCommand(r.Context(), key, t, req.Arg); err != nil {
		writeErr(w, err)

		return
	}

	encodeJSONResponse(w, http.StatusAccepted, models.CommandResponse{Key: key, Type: t.String(), Sent: true})
}

func (s *Server) shutdownDevice(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req models.ShutdownRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)

		return
	}

	if err := s.fleet.SendShutdown(r.Context(), key, req.Action); err != nil {
		writeErr(w, err)

		return
	}

	encodeJSONResponse(w, http.StatusAccepted, models.CommandResponse{
		Key: key, Type: protocol.ShutdownDevice.String(), Sent: true,
	})
}

func (s *Server) uninstallApp(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.fleet.SendUninstall(r.Context(), vars["key"], vars["package"]); err != nil {
		writeErr(w, err)

		return
	}

	encodeJSONResponse(w, http.StatusAccepted, models.CommandResponse{
		Key: vars["key"], Type: protocol.UninstallApp.String(), Sent: true,
	})
}

func (s *Server) installAPK(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	url, err := s.installURL(r)
	if err != nil {
		writeErr(w, err)

		return
	}

	if err := s.fleet.InstallAPK(r.Context(), key, url); err != nil {
		writeErr(w, err)

		return
	}

	encodeJSONResponse(w, http.StatusAccepted, models.CommandResponse{
		Key: key, Type: protocol.DownloadAndInstallAPK.String(), Sent: true,
	})
}

func (s *Server) renameDevice(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req models.RenameRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)

		return
	}

	if err := s.fleet.RenameDevice(key, req.Name); err != nil {
		writeErr(w, err)

		return
	}

	snap, err := s.fleet.GetDevice(key)
	if err != nil {
		writeErr(w, err)

		return
	}

	encodeJSONResponse(w, http.StatusOK, snap)
}

func (s *Server) broadcast(w http.ResponseWriter, r *http.Request) {
	var req models.CommandRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)

		return
	}

	t, err := protocol.ParseMessageType(req.Type)
	if err != nil {
		writeErr(w, err)

		return
	}

	s.writeBroadcast(w, r, t, req.Arg)
}

func (s *Server) broadcastInstall(w http.ResponseWriter, r *http.Request) {
	url, err := s.installURL(r)
	if err != nil {
		writeErr(w, err)

		return
	}

	s.writeBroadcast(w, r, protocol.DownloadAndInstallAPK, url)
}

func (s *Server) writeBroadcast(w http.ResponseWriter, r *http.Request, t protocol.MessageType, arg string) {
	results, err := s.fleet.BroadcastCommand(r.Context(), t, arg)
	if err != nil {
		writeErr(w, err)

		return
	}

	resp := models.BroadcastResponse{Type: t.String(), Results: results}

	for _, ok := range results {
		if ok {
			resp.Sent++
		} else {
			resp.Failed++
		}
	}

	encodeJSONResponse(w, http.StatusOK, resp)
}
