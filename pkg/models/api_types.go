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

package models

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// CommandRequest asks the API to send one command to a device or the fleet.
type CommandRequest struct {
	// Type is the snake_case command name, e.g. "launch_app".
	Type string `json:"type"`
	Arg  string `json:"arg,omitempty"`
}

// ShutdownRequest carries "shutdown" or "restart".
type ShutdownRequest struct {
	Action string `json:"action"`
}

// InstallRequest names either an APK in the repository or an absolute URL.
type InstallRequest struct {
	File string `json:"file,omitempty"`
	URL  string `json:"url,omitempty"`
}

// RenameRequest sets a device's display name; an empty name clears it.
type RenameRequest struct {
	Name string `json:"name"`
}

// CommandResponse reports a single-device send.
type CommandResponse struct {
	Key  string `json:"key"`
	Type string `json:"type"`
	Sent bool   `json:"sent"`
}

// BroadcastResponse maps each session key to whether the send succeeded.
type BroadcastResponse struct {
	Type    string          `json:"type"`
	Results map[string]bool `json:"results"`
	Sent    int             `json:"sent"`
	Failed  int             `json:"failed"`
}

// APKInfo describes a package file served from the APK directory.
type APKInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// StatusResponse summarizes the coordinator and its host.
type StatusResponse struct {
	Version        string  `json:"version"`
	State          string  `json:"state"`
	ListenAddr     string  `json:"listen_addr,omitempty"`
	Devices        int     `json:"devices"`
	Registered     int     `json:"registered"`
	HostUptimeSecs uint64  `json:"host_uptime_seconds"`
	MemoryTotal    uint64  `json:"memory_total_bytes"`
	MemoryUsedPct  float64 `json:"memory_used_percent"`
}
