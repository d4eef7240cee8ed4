// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/georoute/georoute/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
