//go:build bdd

// Package bdd runs end-to-end scenarios against a real, in-process
// aggregator instance (memory store, real TCP acceptor, real pipeline
// and sweeper) using godog (Cucumber for Go).
//
//	go test -tags bdd -v ./tests/bdd/...
package bdd

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"

	"github.com/stationwatch/aggregator/tests/bdd/steps"
)

func TestFeatures(t *testing.T) {
	opts := godog.Options{
		Format:   "pretty",
		Output:   colors.Colored(os.Stdout),
		Paths:    []string{"features"},
		TestingT: t,
	}

	// One TestContext is reused across the whole suite; Reset and the
	// per-scenario harness teardown keep scenarios isolated from each
	// other without re-registering step closures for every scenario.
	tc := steps.NewTestContext("")

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(gctx context.Context, sc *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return gctx, nil
			})

			ctx.After(func(gctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
				if tc.Harness != nil {
					tc.Harness.Stop()
				}
				return gctx, nil
			})

			steps.RegisterWeatherSteps(ctx, tc)
		},
		Options: &opts,
	}

	if suite.Run() != 0 {
		t.Fatal("BDD tests failed")
	}
}

func init() {
	if _, err := os.Stat("features"); err != nil {
		candidates := []string{"tests/bdd/features", "../../tests/bdd/features"}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				os.Chdir(strings.TrimSuffix(c, "/features"))
				break
			}
		}
	}
}
