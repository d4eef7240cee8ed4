// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georoute/georoute/geocode"
)

func TestLogSinkWritesAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer

	Log.SetOutput(&buf)
	defer Log.SetOutput(os.Stderr)
	Log.SetLevel(logrus.InfoLevel)

	logSink("no results for variant full")

	assert.Contains(t, buf.String(), "level=info")
	assert.Contains(t, buf.String(), "no results for variant full")
}

func TestServeCommandProviderFlag(t *testing.T) {
	flag := serveCmd.PersistentFlags().Lookup("provider")

	require.NotNil(t, flag)
	assert.Equal(t, geocode.ProviderNominatim, flag.DefValue)
}
