// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

// Builds the CLI
package main

import (
	"context"
	"dagger/peopleblood/internal/dagger"
)

const (
	cliUser        = "appuser" // we'll create this user in the container
	distrolessUser = "65532"   // nonroot user in distroless images
)

// Builds the CLI binary
func (p *Peopleblood) BuildCliBase(
	ctx context.Context,
	// +defaultPath="/"
	// +ignore=["build", "data"]
	src *dagger.Directory,
) *dagger.Container {
	const cacheDir = "/home/" + cliUser + "/.cache"
	const goBuild = cacheDir + "/go-build"

	return dag.Container().
		// bookworm and not alpine: duckdb does not like musl
		From("golang:1.25.5-bookworm").
		WithExec([]string{"useradd", "-m", "-u", "1000", cliUser}).
		WithWorkdir("/src").
		WithMountedCache(
			"/go/pkg",
			dag.CacheVolume("go-pkg"),
			dagger.ContainerWithMountedCacheOpts{Owner: cliUser},
		).
		WithEnvVariable("GOCACHE", goBuild).
		WithMountedCache(
			cacheDir,
			dag.CacheVolume("go-cache"),
			dagger.ContainerWithMountedCacheOpts{Owner: cliUser},
		).
		// go.mod and go.sum first so source changes keep the module cache
		WithFile("go.mod", src.File("go.mod")).
		WithFile("go.sum", src.File("go.sum")).
		WithExec([]string{"chown", "-R", cliUser + ":" + cliUser,
			"/src",
			"/home/" + cliUser,
		}).
		WithUser(cliUser).
		WithExec([]string{"go", "mod", "download"}).
		WithUser("root").
		WithDirectory("/src", src).
		WithExec([]string{"chown", "-R", cliUser + ":" + cliUser, "/src"}).
		WithUser(cliUser).
		WithExec([]string{"go", "build", "-o", "build/pblood", "main.go"})
}

// Runs validation on CLI code
func (p *Peopleblood) BuildCliValidate(
	ctx context.Context,
	// +defaultPath="/"
	// +ignore=["build", "data"]
	src *dagger.Directory,
) *dagger.Container {
	return p.BuildCliBase(ctx, src).
		WithExec([]string{"go", "install", "-v", "github.com/golangci/golangci-lint/cmd/golangci-lint@latest"}).
		WithExec([]string{"go", "install", "-v", "github.com/securego/gosec/v2/cmd/gosec@latest"}).
		WithExec([]string{"go", "install", "-v", "golang.org/x/vuln/cmd/govulncheck@latest"}).
		WithExec([]string{"go", "install", "-v", "github.com/google/addlicense@latest"}).
		WithExec([]string{
			"golangci-lint",
			"run",
			"--timeout",
			"5m",
			"./...",
		}).
		WithExec([]string{
			"gosec",
			"-no-fail",
			"-exclude-generated",
			"-exclude-dir", ".dagger",
			"./...",
		}).
		WithExec([]string{"govulncheck", "./..."}).
		WithExec([]string{
			"addlicense",
			"--check",
			"--ignore", "build/**",
			"--ignore", "_examples/**",
			"--ignore", ".dagger/internal/**",
			"-c", "The PeopleBlood Authors",
			"-l", "apache",
			"-s=only",
			".",
		})
}

// Returns a container with the CLI built standalone. The API is served
// with `pblood serve`.
func (p *Peopleblood) BuildCli(
	ctx context.Context,
	// +defaultPath="/"
	// +ignore=["build", "data"]
	src *dagger.Directory,
) *dagger.Container {
	builder := p.BuildCliBase(ctx, src)

	return dag.Container().
		From("gcr.io/distroless/cc-debian12").
		WithWorkdir("/app").
		WithFile("/app/pblood", builder.File("/src/build/pblood")).
		WithEnvVariable("PBLOOD_DATA", "/app/data").
		WithEnvVariable("PBLOOD_LISTEN", ":8080").
		WithExposedPort(8080).
		WithEntrypoint([]string{"/app/pblood"}).
		WithDefaultArgs([]string{"serve"}).
		WithUser(distrolessUser)
}
