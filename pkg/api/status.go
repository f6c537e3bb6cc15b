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
	"net/http"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/carverauto/arceus/pkg/models"
	"github.com/carverauto/arceus/pkg/version"
)

// HostStats reports facts about the machine running the coordinator.
type HostStats interface {
	Uptime() (uint64, error)
	Memory() (total uint64, usedPercent float64, err error)
}

type systemHostStats struct{}

func (systemHostStats) Uptime() (uint64, error) {
	return host.Uptime()
}

func (systemHostStats) Memory() (uint64, float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}

	return vm.Total, vm.UsedPercent, nil
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	devices := s.fleet.ListDevices()

	resp := models.StatusResponse{
		Version: version.GetFullVersion(),
		State:   s.fleet.State().String(),
		Devices: len(devices),
	}

	if addr := s.fleet.Addr(); addr != nil {
		resp.ListenAddr = addr.String()
	}

	for i := range devices {
		if devices[i].Registered {
			resp.Registered++
		}
	}

	if up, err := s.host.Uptime(); err == nil {
		resp.HostUptimeSecs = up
	} else {
		s.logger.Debug().Err(err).Msg("Host uptime unavailable")
	}

	if total, used, err := s.host.Memory(); err == nil {
		resp.MemoryTotal = total
		resp.MemoryUsedPct = used
	} else {
		s.logger.Debug().Err(err).Msg("Host memory unavailable")
	}

	encodeJSONResponse(w, http.StatusOK, resp)
}
