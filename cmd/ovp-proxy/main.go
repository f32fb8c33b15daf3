// Command ovp-proxy runs the OpenAPI validator proxy: it parses an
// OpenAPI 3.0 document, forwards incoming HTTP transactions to an
// upstream, validates the upstream's responses against the document,
// and exposes the result as a JUnit-XML report.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/ovp-io/openapi-validator-proxy/index"
	"github.com/ovp-io/openapi-validator-proxy/internal/config"
	"github.com/ovp-io/openapi-validator-proxy/internal/logging"
	"github.com/ovp-io/openapi-validator-proxy/proxyhandler"
	"github.com/ovp-io/openapi-validator-proxy/report"
	"github.com/ovp-io/openapi-validator-proxy/router"
	"github.com/ovp-io/openapi-validator-proxy/spec"
	"github.com/pkg/errors"
)

// Exit codes: 0 clean shutdown, 1 argument/spec-load error, 2 bind
// failure.
const (
	exitOK        = 0
	exitBadConfig = 1
	exitBindError = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, showVersion, err := config.ParseArgs(args)
	if showVersion {
		fmt.Println(config.Version)
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitBadConfig
	}

	logger := logging.New(cfg.Logger.Level, cfg.Logger.Format)

	doc, err := spec.Load(cfg.SpecPath)
	if err != nil {
		logger.WithError(errors.Wrap(err, "loading OpenAPI document")).Error("failed to load OpenAPI document")
		return exitBadConfig
	}

	descriptors, err := index.Compile(doc)
	if err != nil {
		logger.WithError(errors.Wrap(err, "compiling OpenAPI document")).Error("failed to compile OpenAPI document")
		return exitBadConfig
	}
	logger.Info("compiled OpenAPI document", "operations", len(descriptors))

	rt := router.New(descriptors, cfg.UpstreamBase.Path)
	store := report.NewStore()
	handler := proxyhandler.New(rt, store, cfg.UpstreamBase, logger)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	logger.Info("listening", "addr", cfg.ListenAddr, "upstream", cfg.UpstreamBase.String())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(errors.Wrapf(err, "binding %s", cfg.ListenAddr)).Error("failed to bind listen address")
		return exitBindError
	}

	return exitOK
}
