package template

import "inventory-connector-service/internal/models"

// HTTPRequest is one concrete HTTP call produced by the resolver.
type HTTPRequest struct {
	Method string
	URL    string
	Header map[string]string
	Query  map[string]string
	Body   []byte
}

// FTPRequest describes the file download for FTP vendors.
type FTPRequest struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FileName  string
	ZipFile   string
	LocalPath string
}

// FetchPlan is the fully resolved request set for one Job. The executor
// consumes it without touching the raw config again.
type FetchPlan struct {
	VendorID int64
	Protocol models.Protocol
	Config   *models.ConnectorConfig

	// ItemCodes are the codes that survived validation; InvalidCodes were
	// filtered out and must be reported to the Sink.
	ItemCodes    []string
	InvalidCodes []string

	SingleItem bool
	MultiBody  bool

	// PerItemURL means the request URL carries the item-code placeholder
	// and the executor issues one call per code.
	PerItemURL bool

	Requests   []HTTPRequest
	Pagination *models.PaginationControl

	FTP *FTPRequest

	// LocalPath is where CSV-over-HTTP downloads land before parsing.
	LocalPath string
}
