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

package device

import (
	"bufio"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/arceus/pkg/protocol"
)

type addrConn struct {
	net.Conn
	remote net.Addr
}

func (c addrConn) RemoteAddr() net.Addr { return c.remote }

func newPipeSession(t *testing.T, opts Options) (*Session, net.Conn) {
	t.Helper()

	server, client := net.Pipe()
	remote := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 40000}
	s := NewSession(addrConn{Conn: server, remote: remote}, opts)

	t.Cleanup(func() {
		_ = s.Close()
		_ = client.Close()
	})

	return s, client
}

// sendAndRead runs send on its own goroutine because net.Pipe writes block
// until the peer reads.
func sendAndRead(t *testing.T, client net.Conn, n int, send func() error) []byte {
	t.Helper()

	errCh := make(chan error, 1)

	go func() { errCh <- send() }()

	buf := make([]byte, n)
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	require.NoError(t, <-errCh)

	return buf
}

func TestSessionKeyAndAddr(t *testing.T) {
	s, _ := newPipeSession(t, Options{})

	assert.Equal(t, "10.0.0.5:40000", s.Addr())
	assert.Equal(t, "10.0.0.5:40000", s.Key())
	assert.NotEmpty(t, s.ID())
	assert.True(t, s.Connected())

	_, registered := s.Identity()
	assert.False(t, registered)
}

func TestSendWritesTagAndPayload(t *testing.T) {
	s, client := newPipeSession(t, Options{WriteTimeout: time.Second})

	got := sendAndRead(t, client, 1+4+3, func() error {
		return s.SendCommand(protocol.LaunchApp, "app")
	})

	assert.Equal(t, []byte{0x10, 0, 0, 0, 3, 'a', 'p', 'p'}, got)
}

func TestSendPayloadlessCommand(t *testing.T) {
	s, client := newPipeSession(t, Options{})

	got := sendAndRead(t, client, 1, func() error {
		return s.SendCommand(protocol.RequestBattery, "")
	})

	assert.Equal(t, []byte{0x13}, got)
}

func TestSendShutdownAndUninstall(t *testing.T) {
	s, client := newPipeSession(t, Options{})

	got := sendAndRead(t, client, 1+4+7, func() error { return s.SendShutdown(protocol.ActionRestart) })
	assert.Equal(t, uint8(protocol.ShutdownDevice), got[0])
	assert.Equal(t, "restart", string(got[5:]))

	got = sendAndRead(t, client, 1+4+3, func() error { return s.SendUninstall("com") })
	assert.Equal(t, uint8(protocol.UninstallApp), got[0])

	require.ErrorIs(t, s.SendShutdown("reboot"), protocol.ErrInvalidShutdownAction)
	require.ErrorIs(t, s.SendUninstall(""), ErrMissingArgument)
	require.ErrorIs(t, s.SendCommand(protocol.Heartbeat, ""), protocol.ErrNotACommand)
}

func TestSendFailureDisconnects(t *testing.T) {
	s, client := newPipeSession(t, Options{})
	require.NoError(t, client.Close())

	err := s.SendCommand(protocol.Ping, "")
	require.ErrorIs(t, err, ErrSendFailed)
	assert.False(t, s.Connected())

	err = s.SendCommand(protocol.Ping, "")
	require.ErrorIs(t, err, ErrSessionClosed)
}

type failingWriteConn struct {
	net.Conn
}

func (failingWriteConn) Write([]byte) (int, error) { return 0, io.ErrShortWrite }

func TestSendFailureClosesSocket(t *testing.T) {
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })

	s := NewSession(failingWriteConn{Conn: server}, Options{})

	require.ErrorIs(t, s.SendCommand(protocol.Ping, ""), ErrSendFailed)
	assert.False(t, s.Connected())

	// a reader blocked on the session must observe the close
	_, err := s.Read(make([]byte, 1))
	require.Error(t, err)

	_, err = client.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)
}

func TestSendAfterClose(t *testing.T) {
	s, _ := newPipeSession(t, Options{})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")
	require.ErrorIs(t, s.SendCommand(protocol.Ping, ""), ErrSessionClosed)
}

func TestConcurrentSendsDoNotInterleave(t *testing.T) {
	s, client := newPipeSession(t, Options{})

	const senders = 8

	var wg sync.WaitGroup

	for i := 0; i < senders; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, s.SendCommand(protocol.ExecuteShell, "echo interleave-check"))
		}()
	}

	frameLen := 1 + 4 + len("echo interleave-check")
	r := bufio.NewReader(client)

	for i := 0; i < senders; i++ {
		buf := make([]byte, frameLen)
		_, err := io.ReadFull(r, buf)
		require.NoError(t, err)

		msg, n, err := protocol.Decode(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, frameLen, n)
		assert.Equal(t, protocol.Command{Kind: protocol.ExecuteShell, Arg: "echo interleave-check"}, msg)
	}

	wg.Wait()
}

func TestApplyIdentity(t *testing.T) {
	s, _ := newPipeSession(t, Options{})

	oldKey, newKey, err := s.ApplyIdentity("Quest 3", "SN1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:40000", oldKey)
	assert.Equal(t, "SN1", newKey)

	// same serial refreshes the model
	oldKey, newKey, err = s.ApplyIdentity("Quest 3S", "SN1")
	require.NoError(t, err)
	assert.Equal(t, "SN1", oldKey)
	assert.Equal(t, "SN1", newKey)

	_, _, err = s.ApplyIdentity("Quest 3", "SN2")
	require.ErrorIs(t, err, ErrSerialMismatch)

	id, registered := s.Identity()
	require.True(t, registered)
	assert.Equal(t, "SN1", id.Serial)
	assert.Equal(t, "Quest 3S", id.Model)
	assert.Equal(t, "10.0.0.5", id.IP)
	assert.Equal(t, 40000, id.Port)
}

func TestApplyBatteryReplaces(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newPipeSession(t, Options{Clock: func() time.Time { return now }})

	_, ok := s.Battery()
	assert.False(t, ok)

	s.ApplyBattery(90, false)
	s.ApplyBattery(85, true)

	b, ok := s.Battery()
	require.True(t, ok)
	assert.Equal(t, Battery{Level: 85, Charging: true, UpdatedAt: now}, b)
}

func TestHistoryIsBounded(t *testing.T) {
	s, _ := newPipeSession(t, Options{HistorySize: 3})

	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		s.AppendOutcome(true, msg)
	}

	history := s.History()
	require.Len(t, history, 3)
	assert.Equal(t, "c", history[0].Message)
	assert.Equal(t, "e", history[2].Message)
}

func TestResponsesCorrelateInArrivalOrder(t *testing.T) {
	s, client := newPipeSession(t, Options{})

	sendAndRead(t, client, 1+4+3, func() error { return s.SendCommand(protocol.LaunchApp, "app") })
	sendAndRead(t, client, 1, func() error { return s.SendCommand(protocol.RequestBattery, "") })
	sendAndRead(t, client, 1, func() error { return s.SendCommand(protocol.Ping, "") })

	assert.Equal(t, 2, s.Snapshot().Pending, "battery requests do not wait for COMMAND_RESPONSE")

	first := s.AppendResponse(true, "launched")
	second := s.AppendResponse(true, "pong")
	unsolicited := s.AppendResponse(false, "late")
	errOutcome := s.AppendOutcome(false, "Error: boom")

	assert.Equal(t, protocol.LaunchApp, first.Command)
	assert.Equal(t, protocol.Ping, second.Command)
	assert.Zero(t, unsolicited.Command)
	assert.Zero(t, errOutcome.Command)
	assert.Len(t, s.History(), 4)
}

func TestDisplayName(t *testing.T) {
	ctrl := gomock.NewController(t)
	names := NewMockNameResolver(ctrl)

	s, _ := newPipeSession(t, Options{Names: names})

	assert.Equal(t, "10.0.0.5:40000", s.DisplayName())

	_, _, err := s.ApplyIdentity("Quest 3", "SN1")
	require.NoError(t, err)

	names.EXPECT().Lookup("SN1").Return("", false).Times(1)
	assert.Equal(t, "Quest 3 (SN1)", s.DisplayName())
	assert.Equal(t, "Quest 3 (SN1)", s.DisplayName(), "second call is served from cache")

	s.InvalidateName()
	names.EXPECT().Lookup("SN1").Return("Front Desk", true).Times(1)
	assert.Equal(t, "Front Desk", s.DisplayName())
	assert.Equal(t, "Front Desk", s.Snapshot().DisplayName)
}

func TestSnapshotIsACopy(t *testing.T) {
	s, _ := newPipeSession(t, Options{})

	_, _, err := s.ApplyIdentity("Quest 2", "SN9")
	require.NoError(t, err)
	s.ApplyBattery(50, false)
	s.AppendOutcome(true, "ok")

	snap := s.Snapshot()
	snap.History[0].Message = "mutated"
	snap.Battery.Level = 1

	assert.Equal(t, "ok", s.History()[0].Message)

	b, _ := s.Battery()
	assert.Equal(t, uint8(50), b.Level)
	assert.Equal(t, "SN9", snap.Key)
	assert.True(t, snap.Registered)
}
