// Package fetcher executes FetchPlans over their protocol transports and
// yields decoded response documents.
package fetcher

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/models"
	"inventory-connector-service/internal/template"
)

// Result is one Job's execution output: the decoded response documents plus
// the bookkeeping the Sink records.
type Result struct {
	// Documents are decoded JSON-shaped response bodies (maps, lists, or
	// row objects for file transports).
	Documents []interface{}

	// FailedBatches counts chunk-scoped request failures that did not
	// abort the Job.
	FailedBatches int

	// Response is the vendor-table bookkeeping pair, reported exactly once
	// per Job.
	Response models.ResponseInfo
}

// Executor runs one protocol's requests for a FetchPlan.
type Executor interface {
	Execute(ctx context.Context, plan *template.FetchPlan) (*Result, error)
}

// Registry hands out the executor for a protocol. All executors share one
// HTTP client so retry and rate limiting behave uniformly.
type Registry struct {
	restJSON *RESTJSONExecutor
	restXML  *RESTXMLExecutor
	csv      *CSVExecutor
	ftp      *FTPExecutor
}

// NewRegistry wires the protocol executors.
func NewRegistry(client *Client, log *logrus.Logger) *Registry {
	return &Registry{
		restJSON: NewRESTJSONExecutor(client, log),
		restXML:  NewRESTXMLExecutor(client, log),
		csv:      NewCSVExecutor(client, log),
		ftp:      NewFTPExecutor(log),
	}
}

// ForProtocol returns the executor handling the given protocol.
func (r *Registry) ForProtocol(p models.Protocol) (Executor, error) {
	switch p {
	case models.ProtocolRESTJSON:
		return r.restJSON, nil
	case models.ProtocolRESTXML:
		return r.restXML, nil
	case models.ProtocolCSVHTTP:
		return r.csv, nil
	case models.ProtocolFTPCSV, models.ProtocolFTPTXT:
		return r.ftp, nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", p)
	}
}
