package fetcher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/models"
	"inventory-connector-service/internal/template"
	"inventory-connector-service/internal/xmlconv"
)

// RESTXMLExecutor runs XML-over-HTTP fetch plans. Response bodies are parsed
// into map documents so the rest of the pipeline never sees XML.
type RESTXMLExecutor struct {
	client *Client
	log    *logrus.Logger
}

// NewRESTXMLExecutor creates a REST-XML executor.
func NewRESTXMLExecutor(client *Client, log *logrus.Logger) *RESTXMLExecutor {
	return &RESTXMLExecutor{client: client, log: log}
}

// Execute runs the plan's requests, one per constructed body or query chunk.
// A single-request plan fails the Job on any error; chunked plans count the
// failed chunk and carry on.
func (e *RESTXMLExecutor) Execute(ctx context.Context, plan *template.FetchPlan) (*Result, error) {
	result := &Result{Response: successResponse(plan.VendorID)}
	fatal := len(plan.Requests) == 1

	for i, req := range plan.Requests {
		resp, err := e.client.Do(ctx, req.Method, req.URL, req.Header, req.Query, req.Body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if fatal {
				result.Response = models.ResponseInfo{VendorID: plan.VendorID, ResponseCode: http.StatusBadRequest, ResponseText: err.Error()}
				return result, fmt.Errorf("vendor %d request failed: %w", plan.VendorID, err)
			}
			e.log.WithError(err).WithFields(logrus.Fields{
				"vendor_id": plan.VendorID,
				"chunk":     i,
			}).Warn("XML chunk request failed")
			result.FailedBatches++
			continue
		}
		if !resp.OK() {
			if fatal {
				result.Response = failureResponse(plan.VendorID, resp)
				return result, fmt.Errorf("vendor %d returned status %d", plan.VendorID, resp.StatusCode)
			}
			e.log.WithFields(logrus.Fields{
				"vendor_id": plan.VendorID,
				"chunk":     i,
				"status":    resp.StatusCode,
			}).Warn("XML chunk returned error status")
			result.FailedBatches++
			continue
		}
		doc, err := xmlconv.Parse(resp.Body)
		if err != nil {
			if fatal {
				result.Response = models.ResponseInfo{VendorID: plan.VendorID, ResponseCode: http.StatusBadRequest, ResponseText: "Malformed response body"}
				return result, fmt.Errorf("parsing vendor %d response: %w", plan.VendorID, err)
			}
			e.log.WithError(err).WithField("chunk", i).Warn("Failed to parse XML chunk response")
			result.FailedBatches++
			continue
		}
		result.Documents = append(result.Documents, doc)
	}
	return result, nil
}
