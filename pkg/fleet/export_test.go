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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/arceus/pkg/device"
	"github.com/carverauto/arceus/pkg/protocol"
)

func TestExport(t *testing.T) {
	sess, _ := pipeSession(t, 41000)

	_, _, err := sess.ApplyIdentity("Quest 3", "SN1")
	require.NoError(t, err)

	snap, ok := Export(DeviceConnectedTopic.Name(), sess).(device.Snapshot)
	require.True(t, ok)
	assert.Equal(t, "SN1", snap.Key)

	outcome := device.Outcome{Succeeded: true, Message: "ok", Command: protocol.Ping}
	cmd := Export(CommandExecutedTopic.Name(), CommandExecuted{
		Session: sess, Succeeded: true, Message: "ok", Outcome: outcome,
	})
	assert.Equal(t, CommandEventData{
		Key: "SN1", DisplayName: "Quest 3 (SN1)", Succeeded: true, Message: "ok", Outcome: outcome,
	}, cmd)

	assert.Equal(t, KeyEventData{Key: "SN1"}, Export(DeviceDisconnectedTopic.Name(), "SN1"))
	assert.Equal(t, MessageEventData{Message: "boom"}, Export(ErrorOccurredTopic.Name(), "boom"))
	assert.Equal(t, ServerStarted{Host: "h", Port: 1}, Export(ServerStartedTopic.Name(), ServerStarted{Host: "h", Port: 1}))
}
