package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt decodes from either a JSON number or a numeric string; vendor
// config documents are inconsistent about which they use for limits.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// Protocol identifies the transport a vendor exposes its inventory over.
type Protocol string

const (
	ProtocolRESTJSON Protocol = "rest-json"
	ProtocolRESTXML  Protocol = "rest-xml"
	ProtocolCSVHTTP  Protocol = "csv-http"
	ProtocolFTPCSV   Protocol = "ftp-csv"
	ProtocolFTPTXT   Protocol = "ftp-txt"
)

// ItemCodePlaceholder marks where a vendor code is repeated in a request
// template (URL, body skeleton or XML payload).
const ItemCodePlaceholder = "<<TPL_ITEM_CODE>>"

// DefaultChunkLimit caps how many item codes go into one request when the
// vendor config does not set its own limit.
const DefaultChunkLimit = 100

// KeyValue is a header or query parameter entry in a request template.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RequestURL describes the URL portion of an API request template.
type RequestURL struct {
	Raw          string     `json:"raw"`
	Method       string     `json:"method"`
	Query        []KeyValue `json:"query,omitempty"`
	AuthRequired bool       `json:"auth_required,omitempty"`
}

// APIRequestTemplate is the HTTP request skeleton of a vendor config.
type APIRequestTemplate struct {
	URL    RequestURL `json:"url"`
	Header []KeyValue `json:"header,omitempty"`
}

// FTPRequestTemplate is the FTP connection skeleton of a vendor config.
type FTPRequestTemplate struct {
	URL  string `json:"url"`
	Port int    `json:"port,omitempty"`
}

// FieldMapping maps one vendor source field expression onto a canonical
// destination field. SourceField may be a dotted path, a comma-separated
// candidate list, a "[i]"-suffixed loop expression or a "[date]."-separated
// date array expression.
type FieldMapping struct {
	DestinationField string `json:"destination_field"`
	SourceField      string `json:"source_field"`
	SourceFormat     string `json:"source_format,omitempty"`
	CurrencySign     string `json:"currency_sign,omitempty"`
}

// Mapping groups the field mappings of a vendor config.
type Mapping struct {
	InventoryTable     []FieldMapping `json:"inventory_table,omitempty"`
	VendorCodeTable    []FieldMapping `json:"vendor_code_table,omitempty"`
	MessageWhenNoError []string       `json:"message_when_no_error,omitempty"`
}

// PaginationRequest says where and under which key the page number goes.
type PaginationRequest struct {
	ParamLocation string `json:"param_location"` // "url" or "body"
	PageNumber    string `json:"page_number"`
}

// PaginationResponse says where the total page count is reported.
type PaginationResponse struct {
	ParamLocation string `json:"param_location"` // "header" or "body"
	TotalPages    string `json:"total_pages"`
}

// PaginationControl describes a vendor's page-loop contract.
type PaginationControl struct {
	Request  PaginationRequest  `json:"request"`
	Response PaginationResponse `json:"response"`
}

// CodeValidation is a declarative vendor-code validity rule. Type "numeric"
// compares the code length with Op/Operand and applies to all-digit codes;
// type "pattern" requires the code to match Pattern. The comparison operator
// set is closed: no expression evaluation happens at runtime.
type CodeValidation struct {
	Type    string `json:"type"` // "numeric" or "pattern"
	Op      string `json:"op,omitempty"`
	Operand int    `json:"operand,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// ConnectorConfig is the declarative per-vendor connector document. It is
// loaded once per Job, template-resolved, and immutable for the Job's
// duration.
type ConnectorConfig struct {
	Protocol Protocol `json:"protocol,omitempty"`

	APIRequestTemplate *APIRequestTemplate `json:"api_request_template,omitempty"`
	FTPRequestTemplate *FTPRequestTemplate `json:"ftp-request-template,omitempty"`

	Mapping Mapping `json:"mapping"`

	// DataListPath addresses the item array inside a response document.
	DataListPath string `json:"data_list_path,omitempty"`
	// ItemsList addresses the repeated item node inside the request body
	// skeleton. ItemsResponse addresses the item list for responses that
	// wrap it differently per chunk.
	ItemsList     string `json:"items_list,omitempty"`
	ItemsResponse string `json:"items_response,omitempty"`

	VendorCodeValidation []CodeValidation   `json:"vendor_code_validation,omitempty"`
	Pagination           *PaginationControl `json:"pagination_control,omitempty"`
	ChunkLimit           FlexInt            `json:"chunk_limit,omitempty"`

	// XML request construction.
	XMLPayloadFormat      string `json:"xml_payload_format,omitempty"` // dotted path to the payload template string
	XMLReqBody            string `json:"xml_req_body,omitempty"`
	XMLAppendMulti        string `json:"xml_append_multi,omitempty"`
	XMLIterator           string `json:"xml_iterator,omitempty"`
	XMLPayloadLimit       FlexInt `json:"xml_payload_limit,omitempty"`
	XMLMultiReqBody       bool   `json:"xml_multi_req_body,omitempty"`
	XMLReqBodyManufacture string `json:"xml_req_body_manufacture,omitempty"`
	XMLReqBodyDistributor string `json:"xml_req_body_distributor,omitempty"`

	// File transports.
	Delimiter string `json:"delimiter,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	FileName  string `json:"file_name,omitempty"`
	ZipFile   string `json:"zip_file,omitempty"`
	FileType  string `json:"file_type,omitempty"`

	// Raw holds the whole resolved document, including free-form parts such
	// as the request body skeleton under "data" that have no typed field.
	Raw map[string]interface{} `json:"-"`
}

// Body returns the request body skeleton ("data" subtree) of the resolved
// document, or nil when the vendor sends no body.
func (c *ConnectorConfig) Body() map[string]interface{} {
	if c.Raw == nil {
		return nil
	}
	body, _ := c.Raw["data"].(map[string]interface{})
	return body
}

// EffectiveChunkLimit returns the configured chunk limit, preferring the XML
// payload limit for XML vendors, falling back to DefaultChunkLimit.
func (c *ConnectorConfig) EffectiveChunkLimit() int {
	if c.XMLPayloadLimit > 0 {
		return int(c.XMLPayloadLimit)
	}
	if c.ChunkLimit > 0 {
		return int(c.ChunkLimit)
	}
	return DefaultChunkLimit
}

// DecodeConnectorConfig parses a resolved config document into its typed
// form, retaining the raw document for body construction.
func DecodeConnectorConfig(doc map[string]interface{}) (*ConnectorConfig, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var cfg ConnectorConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.Raw = doc
	return &cfg, nil
}
