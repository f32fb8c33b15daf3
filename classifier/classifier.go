// Package classifier implements the Response Classifier: it takes a
// matched operation and an upstream response and produces exactly one
// report.Testcase.
package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ovp-io/openapi-validator-proxy/index"
	"github.com/ovp-io/openapi-validator-proxy/report"
	"github.com/ovp-io/openapi-validator-proxy/validator"
)

// TransactionMeta carries the request-side facts known before
// classification begins — everything a Testcase's properties need
// besides the response itself.
type TransactionMeta struct {
	CorrelationID string
	Method        string
	Path          string
}

// Classify applies the response classification procedure and returns
// the resulting Testcase. statusCode and body are the upstream
// response's status and (possibly empty, on a read failure) body;
// contentTypeHeader is the raw Content-Type header value, or "" if
// absent.
func Classify(
	descriptor *index.OperationDescriptor,
	statusCode int,
	contentTypeHeader string,
	body []byte,
	meta TransactionMeta,
	elapsedSeconds float64,
) report.Testcase {
	base := []report.Property{
		{Key: "correlationId", Value: meta.CorrelationID},
		{Key: "method", Value: meta.Method},
		{Key: "path", Value: meta.Path},
		{Key: "operationId", Value: descriptor.OperationID},
		{Key: "statusCode", Value: fmt.Sprintf("%d", statusCode)},
	}

	fail := func(kind report.FailureKind, message string, extra ...report.Property) report.Testcase {
		return report.Testcase{
			Name:           meta.CorrelationID,
			ElapsedSeconds: elapsedSeconds,
			Properties:     append(base, extra...),
			Outcome:        report.Outcome{Failed: true, Kind: kind, Message: message},
		}
	}

	pass := func(extra ...report.Property) report.Testcase {
		return report.Testcase{
			Name:           meta.CorrelationID,
			ElapsedSeconds: elapsedSeconds,
			Properties:     append(base, extra...),
			Outcome:        report.Outcome{Failed: false},
		}
	}

	entry, ok := descriptor.Responses.Lookup(statusCode)
	if !ok {
		return fail(report.InvalidStatusCode, fmt.Sprintf("no response entry for status %d or default", statusCode))
	}

	if entry.Unresolved {
		return fail(report.MissingResponseDefinition, "response definition's $ref could not be resolved")
	}

	if len(entry.Content) == 0 {
		if len(body) == 0 {
			return pass()
		}
		return fail(report.MismatchNonEmptyBody, "operation declares no content but response body is non-empty")
	}

	if contentTypeHeader == "" {
		return fail(report.MissingContentTypeHeader, "response has no Content-Type header")
	}

	primary := primaryMediaType(contentTypeHeader)
	ctProp := report.Property{Key: "responseContentType", Value: primary}

	schema, ok := entry.Content[primary]
	if !ok {
		return fail(report.MismatchedContentTypeHeader, fmt.Sprintf("Content-Type %q is not declared for this response", primary), ctProp)
	}

	if primary != "application/json" {
		return pass(ctProp)
	}

	var value interface{}
	if err := json.Unmarshal(body, &value); err != nil {
		return fail(report.FailedJSONDeserialization, err.Error(), ctProp)
	}

	if failure := validator.Validate(schema, value); failure != nil {
		return fail(failure.Kind, failure.Message, ctProp)
	}

	return pass(ctProp)
}

// primaryMediaType strips parameters (e.g. "; charset=utf-8") from a
// Content-Type header value, leaving just the media type.
func primaryMediaType(contentType string) string {
	primary := strings.SplitN(contentType, ";", 2)[0]
	return strings.TrimSpace(primary)
}
