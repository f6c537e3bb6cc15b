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

package fleet

import "github.com/carverauto/arceus/pkg/device"

// CommandEventData is the serializable form of CommandExecuted.
type CommandEventData struct {
	Key         string         `json:"key" cbor:"key"`
	DisplayName string         `json:"display_name" cbor:"display_name"`
	Succeeded   bool           `json:"succeeded" cbor:"succeeded"`
	Message     string         `json:"message" cbor:"message"`
	Outcome     device.Outcome `json:"outcome" cbor:"outcome"`
}

// KeyEventData wraps device_disconnected payloads.
type KeyEventData struct {
	Key string `json:"key" cbor:"key"`
}

// MessageEventData wraps error_occurred payloads.
type MessageEventData struct {
	Message string `json:"message" cbor:"message"`
}

// Export turns a payload published on topic into a value safe to serialize
// and hand to another process. Live sessions become snapshots.
func Export(topic string, payload any) any {
	switch p := payload.(type) {
	case *device.Session:
		return p.Snapshot()
	case CommandExecuted:
		return CommandEventData{
			Key:         p.Session.Key(),
			DisplayName: p.Session.DisplayName(),
			Succeeded:   p.Succeeded,
			Message:     p.Message,
			Outcome:     p.Outcome,
		}
	case string:
		if topic == DeviceDisconnectedTopic.Name() {
			return KeyEventData{Key: p}
		}

		return MessageEventData{Message: p}
	default:
		return payload
	}
}
