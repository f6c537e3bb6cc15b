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

package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/arceus/pkg/logger"
)

func TestCreateComponentLoggerTagsComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.log")

	log, err := CreateComponentLogger(context.Background(), "fleet", &logger.Config{
		Level:  "info",
		Output: logger.OutputFile,
		File:   logger.FileConfig{Path: path},
	})
	require.NoError(t, err)

	log.Info().Msg("listening")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"fleet"`)
	assert.Contains(t, string(data), `"message":"listening"`)
}

func TestCreateLoggerRejectsBadLevel(t *testing.T) {
	_, err := CreateLogger(context.Background(), &logger.Config{Level: "chatty"})
	require.Error(t, err)
}

func TestCreateLoggerDefaults(t *testing.T) {
	log, err := CreateLogger(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, log)
}
