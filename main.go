// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/peopleblood/peopleblood/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
