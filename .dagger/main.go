// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

// CI pipeline for the pblood CLI
package main

import (
	"context"
	"dagger/peopleblood/internal/dagger"
)

type Peopleblood struct{}

// Runs the unit tests of every package
func (p *Peopleblood) Test(
	ctx context.Context,
	// +defaultPath="/"
	// +ignore=["build", "data"]
	src *dagger.Directory,
) (string, error) {
	return p.BuildCliBase(ctx, src).
		WithExec([]string{"go", "test", "-race", "-count=1", "./..."}).
		Stdout(ctx)
}

// Runs the tests and the static checks, then returns the runtime container
func (p *Peopleblood) Check(
	ctx context.Context,
	// +defaultPath="/"
	// +ignore=["build", "data"]
	src *dagger.Directory,
) (*dagger.Container, error) {
	if _, err := p.Test(ctx, src); err != nil {
		return nil, err
	}

	if _, err := p.BuildCliValidate(ctx, src).Sync(ctx); err != nil {
		return nil, err
	}

	return p.BuildCli(ctx, src), nil
}
