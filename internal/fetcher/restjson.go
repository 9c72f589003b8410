package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/flatten"
	"inventory-connector-service/internal/models"
	"inventory-connector-service/internal/template"
)

// RESTJSONExecutor runs JSON-over-HTTP fetch plans: single requests, chunked
// multi-body requests, per-item URL loops and paginated listings.
type RESTJSONExecutor struct {
	client *Client
	log    *logrus.Logger
}

// NewRESTJSONExecutor creates a REST-JSON executor.
func NewRESTJSONExecutor(client *Client, log *logrus.Logger) *RESTJSONExecutor {
	return &RESTJSONExecutor{client: client, log: log}
}

// Execute runs the plan's requests and collects decoded JSON documents.
func (e *RESTJSONExecutor) Execute(ctx context.Context, plan *template.FetchPlan) (*Result, error) {
	switch {
	case plan.PerItemURL:
		return e.executePerItem(ctx, plan)
	case plan.Pagination != nil:
		return e.executePaginated(ctx, plan)
	default:
		return e.executeRequests(ctx, plan)
	}
}

// executePerItem issues one request per item code, substituting the code into
// the URL template. A 404 means the vendor does not know the code and only
// skips that code.
func (e *RESTJSONExecutor) executePerItem(ctx context.Context, plan *template.FetchPlan) (*Result, error) {
	if len(plan.Requests) == 0 {
		return nil, fmt.Errorf("per-item plan for vendor %d has no base request", plan.VendorID)
	}
	base := plan.Requests[0]
	result := &Result{Response: successResponse(plan.VendorID)}

	for _, code := range plan.ItemCodes {
		url := strings.ReplaceAll(base.URL, models.ItemCodePlaceholder, code)
		resp, err := e.client.Do(ctx, base.Method, url, base.Header, base.Query, base.Body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.log.WithError(err).WithFields(logrus.Fields{
				"vendor_id": plan.VendorID,
				"item_code": code,
			}).Warn("Per-item request failed")
			result.FailedBatches++
			continue
		}
		if resp.StatusCode == http.StatusNotFound {
			e.log.WithFields(logrus.Fields{
				"vendor_id": plan.VendorID,
				"item_code": code,
			}).Warn("Item code not found at vendor, skipping")
			continue
		}
		if !resp.OK() {
			e.log.WithFields(logrus.Fields{
				"vendor_id": plan.VendorID,
				"item_code": code,
				"status":    resp.StatusCode,
			}).Warn("Per-item request returned error status")
			result.FailedBatches++
			continue
		}
		doc, err := decodeJSON(resp.Body)
		if err != nil {
			e.log.WithError(err).WithField("item_code", code).Warn("Failed to decode per-item response")
			result.FailedBatches++
			continue
		}
		result.Documents = append(result.Documents, doc)
	}
	return result, nil
}

// executePaginated walks the vendor's page loop starting at page 1. The total
// page count comes from a response header or from the first page's body,
// whichever the config declares. A failed page aborts the loop but keeps the
// pages already fetched.
func (e *RESTJSONExecutor) executePaginated(ctx context.Context, plan *template.FetchPlan) (*Result, error) {
	if len(plan.Requests) == 0 {
		return nil, fmt.Errorf("paginated plan for vendor %d has no base request", plan.VendorID)
	}
	base := plan.Requests[0]
	result := &Result{Response: successResponse(plan.VendorID)}

	totalPages := 1
	for page := 1; page <= totalPages; page++ {
		// The page number always travels as a query parameter. No vendor
		// config uses a body-side page location, so request.param_location
		// is accepted but not consulted.
		query := map[string]string{}
		for k, v := range base.Query {
			query[k] = v
		}
		query[plan.Pagination.Request.PageNumber] = strconv.Itoa(page)

		resp, err := e.client.Do(ctx, base.Method, base.URL, base.Header, query, base.Body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.log.WithError(err).WithFields(logrus.Fields{
				"vendor_id": plan.VendorID,
				"page":      page,
			}).Warn("Page request failed, stopping pagination")
			result.FailedBatches++
			break
		}
		if !resp.OK() {
			if page == 1 {
				result.Response = failureResponse(plan.VendorID, resp)
				return result, fmt.Errorf("vendor %d returned status %d on first page", plan.VendorID, resp.StatusCode)
			}
			e.log.WithFields(logrus.Fields{
				"vendor_id": plan.VendorID,
				"page":      page,
				"status":    resp.StatusCode,
			}).Warn("Page request returned error status, stopping pagination")
			result.FailedBatches++
			break
		}
		doc, err := decodeJSON(resp.Body)
		if err != nil {
			e.log.WithError(err).WithField("page", page).Warn("Failed to decode page response")
			result.FailedBatches++
			break
		}
		result.Documents = append(result.Documents, doc)

		if page == 1 {
			totalPages = e.totalPages(plan.Pagination, resp, doc)
		}
	}
	return result, nil
}

// totalPages reads the page count announced by the first response. An absent
// or malformed count means a single page.
func (e *RESTJSONExecutor) totalPages(ctrl *models.PaginationControl, resp *Response, doc interface{}) int {
	var raw string
	switch ctrl.Response.ParamLocation {
	case "header":
		raw = resp.Header.Get(ctrl.Response.TotalPages)
	default:
		if v := flatten.SafeGet(doc, ctrl.Response.TotalPages); v != nil {
			raw = fmt.Sprint(v)
		}
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(raw, ".0")))
	if err != nil || n < 1 {
		if raw != "" {
			e.log.WithField("total_pages", raw).Warn("Unreadable total page count, assuming one page")
		}
		return 1
	}
	return n
}

// executeRequests runs the plan's prepared request list. With a single
// request any failure is fatal for the Job; with chunked multi-body requests
// a failed chunk is counted and the remaining chunks still run.
func (e *RESTJSONExecutor) executeRequests(ctx context.Context, plan *template.FetchPlan) (*Result, error) {
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
			}).Warn("Chunk request failed")
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
			}).Warn("Chunk request returned error status")
			result.FailedBatches++
			continue
		}
		doc, err := decodeJSON(resp.Body)
		if err != nil {
			if fatal {
				result.Response = models.ResponseInfo{VendorID: plan.VendorID, ResponseCode: http.StatusBadRequest, ResponseText: "Malformed response body"}
				return result, fmt.Errorf("decoding vendor %d response: %w", plan.VendorID, err)
			}
			e.log.WithError(err).WithField("chunk", i).Warn("Failed to decode chunk response")
			result.FailedBatches++
			continue
		}
		result.Documents = append(result.Documents, e.extractChunk(plan.Config, doc))
	}
	return result, nil
}

// extractChunk applies the per-chunk items_response extraction when the
// config declares one.
func (e *RESTJSONExecutor) extractChunk(cfg *models.ConnectorConfig, doc interface{}) interface{} {
	if cfg == nil || cfg.ItemsResponse == "" {
		return doc
	}
	if extracted := flatten.SafeGet(doc, cfg.ItemsResponse); extracted != nil {
		return extracted
	}
	e.log.WithField("path", cfg.ItemsResponse).Warn("Items path missing from chunk response")
	return doc
}

func decodeJSON(body []byte) (interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func successResponse(vendorID int64) models.ResponseInfo {
	return models.ResponseInfo{VendorID: vendorID, ResponseCode: http.StatusOK}
}

func failureResponse(vendorID int64, resp *Response) models.ResponseInfo {
	text := http.StatusText(resp.StatusCode)
	if text == "" {
		text = resp.Status
	}
	return models.ResponseInfo{VendorID: vendorID, ResponseCode: resp.StatusCode, ResponseText: text}
}
