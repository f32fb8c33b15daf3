// Package proxyhandler implements the Proxy Handler: the HTTP entry
// point that resolves an operation, forwards the request upstream,
// classifies the response, and records a Testcase.
package proxyhandler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ovp-io/openapi-validator-proxy/classifier"
	"github.com/ovp-io/openapi-validator-proxy/internal/logging"
	"github.com/ovp-io/openapi-validator-proxy/report"
	"github.com/ovp-io/openapi-validator-proxy/router"
)

const (
	correlationIDHeader  = "OVP-Correlation-Id"
	fusedHeadersHeader   = "OVP-Fused-Correlation-Headers"
	ovpHeaderPrefix      = "ovp-"
	junitPath            = "/_ovp/junit"
	healthzPath          = "/_ovp/healthz"
)

// Handler is the top-level http.Handler for the proxy.
type Handler struct {
	Router       *router.Router
	Store        *report.Store
	UpstreamBase *url.URL
	Client       *http.Client
	Logger       *logging.Logger
}

// New builds a Handler with a default http.Client.
func New(r *router.Router, store *report.Store, upstreamBase *url.URL, logger *logging.Logger) *Handler {
	return &Handler{
		Router:       r,
		Store:        store,
		UpstreamBase: upstreamBase,
		Client:       &http.Client{},
		Logger:       logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case junitPath:
		h.serveJUnit(w)
		return
	case healthzPath:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}

	correlationID := r.Header.Get(correlationIDHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	strippedPath := h.Router.StripUpstreamPrefix(r.URL.Path)

	descriptor, _, err := h.Router.Match(r.Method, strippedPath)
	if err != nil {
		h.recordRoutingFailure(w, err, correlationID, r.Method, strippedPath)
		h.Logger.WithCorrelationID(correlationID).Info("transaction not routed",
			"method", r.Method, "path", strippedPath, "failed", true, "kind", err.Error())
		return
	}

	outgoingHeader := buildOutgoingHeader(r.Header, correlationID)

	requestBody, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	upstreamURL := *h.UpstreamBase
	upstreamURL.Path = h.Router.PrependUpstreamPrefix(strippedPath)
	upstreamURL.RawQuery = r.URL.RawQuery

	outgoingReq, err := http.NewRequest(r.Method, upstreamURL.String(), bytes.NewReader(requestBody))
	if err != nil {
		h.Logger.WithCorrelationID(correlationID).WithError(err).Error("failed to build upstream request")
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	outgoingReq.Header = outgoingHeader

	start := time.Now()
	resp, err := h.Client.Do(outgoingReq)
	if err != nil {
		// A transport failure before any response is observed is logged
		// and skipped: there is no status code or body to classify.
		h.Logger.WithCorrelationID(correlationID).WithOperation(descriptor.OperationID).WithError(err).
			Error("upstream request failed")
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	// A body-read failure from upstream is treated as an empty body, not
	// a transport failure: classification still proceeds.
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		respBody = nil
	}

	elapsed := time.Since(start).Seconds()

	testcase := classifier.Classify(
		descriptor,
		resp.StatusCode,
		resp.Header.Get("Content-Type"),
		respBody,
		classifier.TransactionMeta{CorrelationID: correlationID, Method: r.Method, Path: strippedPath},
		elapsed,
	)
	h.Store.Append(testcase)
	h.Logger.WithCorrelationID(correlationID).WithOperation(descriptor.OperationID).Info("transaction classified",
		"method", r.Method, "path", strippedPath, "status", resp.StatusCode, "failed", testcase.Outcome.Failed)

	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)
}

// recordRoutingFailure handles an unmatched route: it records a
// Testcase with only the properties known before routing, and returns
// an error response without ever calling upstream.
func (h *Handler) recordRoutingFailure(w http.ResponseWriter, err error, correlationID, method, path string) {
	kind := report.PathNotFound
	status := http.StatusNotFound

	var matchErr *router.MatchError
	if me, ok := err.(*router.MatchError); ok {
		matchErr = me
		kind = matchErr.Kind
		if kind == report.InvalidHTTPMethod {
			status = http.StatusMethodNotAllowed
		}
	}

	h.Store.Append(report.Testcase{
		Name: correlationID,
		Properties: []report.Property{
			{Key: "correlationId", Value: correlationID},
			{Key: "method", Value: method},
			{Key: "path", Value: path},
		},
		Outcome: report.Outcome{
			Failed:  true,
			Kind:    kind,
			Message: fmt.Sprintf("%s %s: %s", method, path, kind),
		},
	})

	http.Error(w, string(kind), status)
}

// buildOutgoingHeader copies incoming, stripping OVP-* proxy-control
// headers, then fans the correlation id out to every header named in
// OVP-Fused-Correlation-Headers.
func buildOutgoingHeader(incoming http.Header, correlationID string) http.Header {
	outgoing := make(http.Header, len(incoming))
	for name, values := range incoming {
		if strings.HasPrefix(strings.ToLower(name), ovpHeaderPrefix) {
			continue
		}
		outgoing[name] = append([]string(nil), values...)
	}

	fused := incoming.Get(fusedHeadersHeader)
	if fused == "" {
		return outgoing
	}
	for _, name := range strings.Split(fused, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		outgoing.Set(name, correlationID)
	}
	return outgoing
}

func (h *Handler) serveJUnit(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.Store.RenderJUnit()))
}
