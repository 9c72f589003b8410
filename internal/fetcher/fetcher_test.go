package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-connector-service/internal/models"
	"inventory-connector-service/internal/template"
)

func newTestClient() *Client {
	return NewClient(5*time.Second, 1000, &RetryConfig{
		MaxRetries:     0,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		BackoffFactor:  1,
	})
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRESTJSONSingleRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"items":[{"sku":"A1","qty":3}]}}`))
	}))
	defer server.Close()

	exec := NewRESTJSONExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID: 7,
		Requests: []template.HTTPRequest{{
			Method: http.MethodGet,
			URL:    server.URL,
			Header: map[string]string{"Authorization": "Bearer token-1"},
		}},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, 0, result.FailedBatches)
	assert.Equal(t, http.StatusOK, result.Response.ResponseCode)
}

func TestRESTJSONSingleRequestFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	exec := NewRESTJSONExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID: 7,
		Requests: []template.HTTPRequest{{Method: http.MethodGet, URL: server.URL}},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, result.Response.ResponseCode)
	assert.Equal(t, "Internal Server Error", result.Response.ResponseText)
}

func TestRESTJSONChunkFailureTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "fail-me") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"items":[{"sku":"A1"}]}`))
	}))
	defer server.Close()

	exec := NewRESTJSONExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID:  7,
		MultiBody: true,
		Requests: []template.HTTPRequest{
			{Method: http.MethodPost, URL: server.URL, Body: []byte(`{"codes":["A1"]}`)},
			{Method: http.MethodPost, URL: server.URL, Body: []byte(`{"codes":["fail-me"]}`)},
			{Method: http.MethodPost, URL: server.URL, Body: []byte(`{"codes":["C3"]}`)},
		},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, result.Documents, 2)
	assert.Equal(t, 1, result.FailedBatches)
	assert.Equal(t, http.StatusOK, result.Response.ResponseCode)
}

func TestRESTJSONItemsResponseExtraction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"items":[{"sku":"A1"},{"sku":"B2"}]}}`))
	}))
	defer server.Close()

	exec := NewRESTJSONExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID:  7,
		MultiBody: true,
		Config:    &models.ConnectorConfig{ItemsResponse: "data.items"},
		Requests: []template.HTTPRequest{
			{Method: http.MethodPost, URL: server.URL, Body: []byte(`{}`)},
			{Method: http.MethodPost, URL: server.URL, Body: []byte(`{}`)},
		},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, result.Documents, 2)
	items, ok := result.Documents[0].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestRESTJSONPerItemSkipsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/GONE") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"sku":"` + filepath.Base(r.URL.Path) + `","qty":1}`))
	}))
	defer server.Close()

	exec := NewRESTJSONExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID:   7,
		PerItemURL: true,
		ItemCodes:  []string{"A1", "GONE", "C3"},
		Requests: []template.HTTPRequest{{
			Method: http.MethodGet,
			URL:    server.URL + "/items/" + models.ItemCodePlaceholder,
		}},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, result.Documents, 2)
	assert.Equal(t, 0, result.FailedBatches)
}

func TestRESTJSONPagination(t *testing.T) {
	var pagesServed []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pagesServed = append(pagesServed, page)
		w.Header().Set("X-Total-Pages", "3")
		w.Write([]byte(`{"items":[{"sku":"P` + page + `"}]}`))
	}))
	defer server.Close()

	exec := NewRESTJSONExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID: 7,
		Requests: []template.HTTPRequest{{Method: http.MethodGet, URL: server.URL}},
		Pagination: &models.PaginationControl{
			Request:  models.PaginationRequest{ParamLocation: "url", PageNumber: "page"},
			Response: models.PaginationResponse{ParamLocation: "header", TotalPages: "X-Total-Pages"},
		},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, result.Documents, 3)
	assert.Equal(t, []string{"1", "2", "3"}, pagesServed)
}

func TestRESTJSONPaginationTotalFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"total_pages":2},"items":[]}`))
	}))
	defer server.Close()

	exec := NewRESTJSONExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID: 7,
		Requests: []template.HTTPRequest{{Method: http.MethodGet, URL: server.URL}},
		Pagination: &models.PaginationControl{
			Request:  models.PaginationRequest{ParamLocation: "url", PageNumber: "pageNo"},
			Response: models.PaginationResponse{ParamLocation: "body", TotalPages: "meta.total_pages"},
		},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, result.Documents, 2)
}

func TestRESTXMLParsesResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<Envelope><Items><Item><Sku>A1</Sku><Qty>4</Qty></Item></Items></Envelope>`))
	}))
	defer server.Close()

	exec := NewRESTXMLExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID: 9,
		Requests: []template.HTTPRequest{{
			Method: http.MethodPost,
			URL:    server.URL,
			Body:   []byte(`<Request/>`),
		}},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	doc, ok := result.Documents[0].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, doc, "Envelope")
}

func TestRESTXMLChunkFailureTolerated(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`<Envelope/>`))
	}))
	defer server.Close()

	exec := NewRESTXMLExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID:  9,
		MultiBody: true,
		Requests: []template.HTTPRequest{
			{Method: http.MethodPost, URL: server.URL, Body: []byte(`<a/>`)},
			{Method: http.MethodPost, URL: server.URL, Body: []byte(`<b/>`)},
		},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, result.Documents, 1)
	assert.Equal(t, 1, result.FailedBatches)
}

func TestCSVExecutorDownloadsAndParses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("sku,qty,price\nA1,3,10.00\nB2,0,5.50\n"))
	}))
	defer server.Close()

	localPath := filepath.Join(t.TempDir(), "export.csv")
	exec := NewCSVExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID:  11,
		LocalPath: localPath,
		Config:    &models.ConnectorConfig{FileType: "csv", Delimiter: ","},
		Requests:  []template.HTTPRequest{{Method: http.MethodGet, URL: server.URL}},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, result.Documents, 2)

	row, ok := result.Documents[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "A1", row["sku"])
	assert.Equal(t, "3", row["qty"])

	_, statErr := os.Stat(localPath)
	assert.True(t, os.IsNotExist(statErr), "download should be cleaned up")
}

func TestCSVExecutorFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	exec := NewCSVExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID:  11,
		LocalPath: filepath.Join(t.TempDir(), "export.csv"),
		Requests:  []template.HTTPRequest{{Method: http.MethodGet, URL: server.URL}},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, result.Response.ResponseCode)
}

func TestTransformFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("sku;qty\nA1;3\nB2;7\n"), 0o644))

	rows, err := transformFile(path, "csv", ";")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	row := rows[1].(map[string]interface{})
	assert.Equal(t, "B2", row["sku"])
	assert.Equal(t, "7", row["qty"])
}

func TestTransformFileTabSeparatedText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("sku\tqty\nA1\t3\n"), 0o644))

	rows, err := transformFile(path, "text", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "A1", row["sku"])
}

func TestTransformFileStripsNullBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("sku,qty\x00\nA\x001,3\n"), 0o644))

	rows, err := transformFile(path, "csv", ",")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "A1", row["sku"])
}

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistry(newTestClient(), newTestLogger())

	for _, protocol := range []models.Protocol{
		models.ProtocolRESTJSON,
		models.ProtocolRESTXML,
		models.ProtocolCSVHTTP,
		models.ProtocolFTPCSV,
		models.ProtocolFTPTXT,
	} {
		exec, err := registry.ForProtocol(protocol)
		require.NoError(t, err)
		assert.NotNil(t, exec)
	}

	_, err := registry.ForProtocol(models.Protocol("gopher"))
	assert.Error(t, err)
}

func TestCSVExecutorTransportFailureReportsFailureResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	exec := NewCSVExecutor(newTestClient(), newTestLogger())
	plan := &template.FetchPlan{
		VendorID:  11,
		LocalPath: filepath.Join(t.TempDir(), "export.csv"),
		Requests:  []template.HTTPRequest{{Method: http.MethodGet, URL: server.URL}},
	}

	result, err := exec.Execute(context.Background(), plan)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, result.Response.ResponseCode)
	assert.NotEmpty(t, result.Response.ResponseText)
}

func TestTransformFileStripsHeaderByteOrderMark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffsku,qty\nA1,3\n"), 0o644))

	rows, err := transformFile(path, "csv", ",")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "A1", row["sku"])
}
