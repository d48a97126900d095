// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Thrustboard - GD thruster board link tool

package main

import (
	"os"

	"github.com/golang/glog"

	"github.com/Thermoquad/thrustboard/cmd"
)

func main() {
	err := cmd.Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
