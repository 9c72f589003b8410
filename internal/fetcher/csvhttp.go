package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/models"
	"inventory-connector-service/internal/template"
)

// CSVExecutor downloads a CSV export over HTTP, optionally behind digest
// auth, and transforms its rows into item documents.
type CSVExecutor struct {
	client *Client
	log    *logrus.Logger
}

// NewCSVExecutor creates a CSV-over-HTTP executor.
func NewCSVExecutor(client *Client, log *logrus.Logger) *CSVExecutor {
	return &CSVExecutor{client: client, log: log}
}

// Execute downloads the vendor export to the plan's local path and parses it.
// CSV vendors expose a single file, so any failure is fatal for the Job.
func (e *CSVExecutor) Execute(ctx context.Context, plan *template.FetchPlan) (*Result, error) {
	if len(plan.Requests) == 0 {
		return nil, fmt.Errorf("csv plan for vendor %d has no request", plan.VendorID)
	}
	req := plan.Requests[0]
	result := &Result{Response: successResponse(plan.VendorID)}

	var resp *Response
	var err error
	if plan.Config != nil && plan.Config.APIRequestTemplate != nil && plan.Config.APIRequestTemplate.URL.AuthRequired {
		username := req.Header["username"]
		password := req.Header["password"]
		resp, err = e.client.DoDigest(ctx, req.Method, req.URL, username, password, req.Query)
	} else {
		resp, err = e.client.Do(ctx, req.Method, req.URL, req.Header, req.Query, nil)
	}
	if err != nil {
		result.Response = models.ResponseInfo{VendorID: plan.VendorID, ResponseCode: http.StatusBadRequest, ResponseText: err.Error()}
		return result, fmt.Errorf("downloading vendor %d export: %w", plan.VendorID, err)
	}
	if !resp.OK() {
		result.Response = failureResponse(plan.VendorID, resp)
		return result, fmt.Errorf("vendor %d export download returned status %d", plan.VendorID, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(plan.LocalPath), 0o755); err != nil {
		result.Response = models.ResponseInfo{VendorID: plan.VendorID, ResponseCode: http.StatusBadRequest, ResponseText: err.Error()}
		return result, fmt.Errorf("creating download directory: %w", err)
	}
	if err := os.WriteFile(plan.LocalPath, resp.Body, 0o644); err != nil {
		result.Response = models.ResponseInfo{VendorID: plan.VendorID, ResponseCode: http.StatusBadRequest, ResponseText: err.Error()}
		return result, fmt.Errorf("writing vendor %d export: %w", plan.VendorID, err)
	}
	defer os.Remove(plan.LocalPath)

	fileType, delimiter := "", ","
	if plan.Config != nil {
		fileType = plan.Config.FileType
		if plan.Config.Delimiter != "" {
			delimiter = plan.Config.Delimiter
		}
	}
	rows, err := transformFile(plan.LocalPath, fileType, delimiter)
	if err != nil {
		result.Response = models.ResponseInfo{VendorID: plan.VendorID, ResponseCode: http.StatusBadRequest, ResponseText: "response is not a valid"}
		return result, fmt.Errorf("transforming vendor %d export: %w", plan.VendorID, err)
	}
	e.log.WithFields(logrus.Fields{
		"vendor_id": plan.VendorID,
		"rows":      len(rows),
	}).Info("Parsed vendor export")
	result.Documents = rows
	return result, nil
}
