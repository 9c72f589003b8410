// Package template turns a declarative vendor config plus a set of item
// codes into a concrete FetchPlan: one or more protocol requests, chunked
// according to the vendor's limits.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/flatten"
	"inventory-connector-service/internal/models"
)

// UnresolvedTokenError reports template placeholders that no template value
// covers. Resolution is strict: a leftover token is a job-fatal error, not a
// literal to send to the vendor.
type UnresolvedTokenError struct {
	Tokens []string
}

func (e *UnresolvedTokenError) Error() string {
	return fmt.Sprintf("template values missing for tokens: %s", strings.Join(e.Tokens, ", "))
}

var tokenPattern = regexp.MustCompile(`<<([^<>]+)>>`)

// Resolver builds FetchPlans from vendor config documents.
type Resolver struct {
	log *logrus.Logger
}

// NewResolver creates a template resolver.
func NewResolver(log *logrus.Logger) *Resolver {
	return &Resolver{log: log}
}

// Resolve substitutes <<KEY>> placeholders throughout the config document
// and decodes the result into its typed form. The input document is not
// modified. Any token left unresolved, other than the item-code marker and
// the vendor's XML iterator, fails the Job.
func (r *Resolver) Resolve(doc map[string]interface{}, values map[string]string) (*models.ConnectorConfig, error) {
	resolved, ok := cloneReplacing(doc, func(s string) string {
		return substituteValues(s, values)
	}).(map[string]interface{})
	if !ok {
		return nil, errors.New("config document is not a JSON object")
	}

	cfg, err := models.DecodeConnectorConfig(resolved)
	if err != nil {
		return nil, fmt.Errorf("decoding resolved config: %w", err)
	}

	allowed := map[string]struct{}{models.ItemCodePlaceholder: {}}
	if cfg.XMLIterator != "" {
		allowed["<<"+cfg.XMLIterator+">>"] = struct{}{}
	}
	if unresolved := collectTokens(resolved, allowed); len(unresolved) > 0 {
		return nil, &UnresolvedTokenError{Tokens: unresolved}
	}
	return cfg, nil
}

// FilterCodes applies the config's vendor-code validation rules, splitting
// the requested codes into valid and invalid sets. Invalid codes are
// excluded from the plan and reported through the Sink.
func (r *Resolver) FilterCodes(cfg *models.ConnectorConfig, codes []string) (valid, invalid []string) {
	if len(cfg.VendorCodeValidation) == 0 {
		return codes, nil
	}
	for _, code := range codes {
		if r.codeValid(cfg.VendorCodeValidation, code) {
			valid = append(valid, code)
		} else {
			invalid = append(invalid, code)
		}
	}
	return valid, invalid
}

func (r *Resolver) codeValid(rules []models.CodeValidation, code string) bool {
	for _, rule := range rules {
		switch rule.Type {
		case "numeric":
			// Length rules only constrain all-digit codes.
			if !isDigits(code) {
				continue
			}
			if !compareLen(len(code), rule.Op, rule.Operand) {
				return false
			}
		case "pattern":
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				r.log.WithError(err).WithField("pattern", rule.Pattern).
					Warn("Skipping unparseable vendor code validation pattern")
				continue
			}
			if !re.MatchString(code) {
				return false
			}
		}
	}
	return true
}

// BuildPlan resolves the request set for one Job. codes are the Job's item
// codes that exist in the catalog; validation filtering happens here.
func (r *Resolver) BuildPlan(job *models.Job, cfg *models.ConnectorConfig, codes []string) (*FetchPlan, error) {
	valid, invalid := r.FilterCodes(cfg, codes)

	protocol := job.Protocol
	if protocol == "" {
		protocol = cfg.Protocol
	}

	plan := &FetchPlan{
		VendorID:     job.VendorID,
		Protocol:     protocol,
		Config:       cfg,
		ItemCodes:    valid,
		InvalidCodes: invalid,
		SingleItem:   len(valid) == 1,
		LocalPath:    job.DataFilePath,
	}

	var err error
	switch protocol {
	case models.ProtocolRESTJSON:
		err = r.planRESTJSON(plan)
	case models.ProtocolRESTXML:
		err = r.planRESTXML(plan)
	case models.ProtocolCSVHTTP:
		err = r.planCSV(plan)
	case models.ProtocolFTPCSV, models.ProtocolFTPTXT:
		err = r.planFTP(plan, job)
	default:
		err = fmt.Errorf("unsupported protocol %q", protocol)
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *Resolver) planRESTJSON(plan *FetchPlan) error {
	cfg := plan.Config
	tpl := cfg.APIRequestTemplate
	if tpl == nil {
		return errors.New("config has no api_request_template")
	}
	if len(plan.ItemCodes) == 0 {
		return errors.New("no item codes left after validation")
	}

	base := HTTPRequest{
		Method: tpl.URL.Method,
		URL:    tpl.URL.Raw,
		Header: kvMap(tpl.Header),
		Query:  kvMap(tpl.URL.Query),
	}
	body := cfg.Body()

	// One call per item code, with the code spliced into the URL.
	if strings.Contains(tpl.URL.Raw, models.ItemCodePlaceholder) {
		plan.PerItemURL = true
		plan.Requests = []HTTPRequest{base}
		return nil
	}

	// Paginated vendors send no body; the executor loops over pages.
	if cfg.Pagination != nil && len(body) == 0 {
		plan.Pagination = cfg.Pagination
		plan.Requests = []HTTPRequest{base}
		return nil
	}

	// Plain GETs and configs without an item-list node need no body work.
	if cfg.ItemsList == "" || strings.EqualFold(tpl.URL.Method, http.MethodGet) {
		buf, err := marshalBody(body)
		if err != nil {
			return err
		}
		base.Body = buf
		plan.Requests = []HTTPRequest{base}
		return nil
	}

	node := flatten.SafeGet(cfg.Raw, cfg.ItemsList)
	list, ok := node.([]interface{})
	if !ok || len(list) == 0 {
		return errors.New("the item list node is not a list")
	}
	itemTpl := list[0]

	entries := make([]interface{}, 0, len(plan.ItemCodes))
	for _, code := range plan.ItemCodes {
		entries = append(entries, cloneReplacing(itemTpl, func(s string) string {
			return strings.ReplaceAll(s, models.ItemCodePlaceholder, code)
		}))
	}

	for _, chunk := range chunkEntries(entries, cfg.EffectiveChunkLimit()) {
		docCopy, _ := cloneReplacing(cfg.Raw, nil).(map[string]interface{})
		flatten.Set(docCopy, cfg.ItemsList, chunk)
		chunkBody, _ := docCopy["data"].(map[string]interface{})
		buf, err := marshalBody(chunkBody)
		if err != nil {
			return err
		}
		req := base
		req.Body = buf
		plan.Requests = append(plan.Requests, req)
	}
	plan.MultiBody = len(plan.Requests) > 1
	return nil
}

func (r *Resolver) planCSV(plan *FetchPlan) error {
	cfg := plan.Config
	tpl := cfg.APIRequestTemplate
	if tpl == nil {
		return errors.New("config has no api_request_template")
	}
	if plan.LocalPath == "" {
		return errors.New("no data file path for CSV download")
	}
	plan.Requests = []HTTPRequest{{
		Method: tpl.URL.Method,
		URL:    tpl.URL.Raw,
		Header: kvMap(tpl.Header),
		Query:  kvMap(tpl.URL.Query),
	}}
	return nil
}

func (r *Resolver) planFTP(plan *FetchPlan, job *models.Job) error {
	cfg := plan.Config
	tpl := cfg.FTPRequestTemplate
	if tpl == nil {
		return errors.New("config has no ftp-request-template")
	}
	if job.DataFilePath == "" {
		return errors.New("no data file path for FTP download")
	}
	plan.FTP = &FTPRequest{
		Host:      tpl.URL,
		Port:      tpl.Port,
		Username:  job.TemplateValues["username"],
		Password:  job.TemplateValues["password"],
		FileName:  cfg.FileName,
		ZipFile:   cfg.ZipFile,
		LocalPath: job.DataFilePath,
	}
	return nil
}

// cloneReplacing deep-copies a JSON-shaped value, applying replace to every
// string leaf. A nil replace copies verbatim.
func cloneReplacing(node interface{}, replace func(string) string) interface{} {
	switch v := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, c := range v {
			out[k] = cloneReplacing(c, replace)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, c := range v {
			out[i] = cloneReplacing(c, replace)
		}
		return out
	case string:
		if replace == nil {
			return v
		}
		return replace(v)
	default:
		return v
	}
}

func substituteValues(s string, values map[string]string) string {
	if !strings.Contains(s, "<<") {
		return s
	}
	for k, v := range values {
		s = strings.ReplaceAll(s, "<<"+k+">>", v)
	}
	return s
}

func collectTokens(node interface{}, allowed map[string]struct{}) []string {
	seen := make(map[string]struct{})
	var walk func(interface{})
	walk = func(n interface{}) {
		switch v := n.(type) {
		case map[string]interface{}:
			for _, c := range v {
				walk(c)
			}
		case []interface{}:
			for _, c := range v {
				walk(c)
			}
		case string:
			for _, m := range tokenPattern.FindAllString(v, -1) {
				if _, ok := allowed[m]; !ok {
					seen[m] = struct{}{}
				}
			}
		}
	}
	walk(node)
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func kvMap(kvs []models.KeyValue) map[string]string {
	if len(kvs) == 0 {
		return nil
	}
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[kv.Key] = kv.Value
	}
	return out
}

func marshalBody(body map[string]interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return buf, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func compareLen(n int, op string, operand int) bool {
	switch op {
	case "<":
		return n < operand
	case "<=":
		return n <= operand
	case ">":
		return n > operand
	case ">=":
		return n >= operand
	case "==":
		return n == operand
	case "!=":
		return n != operand
	default:
		return false
	}
}

// chunkEntries splits entries into ceil(len/limit) ordered chunks of at most
// limit elements each.
func chunkEntries(entries []interface{}, limit int) [][]interface{} {
	if limit <= 0 {
		limit = models.DefaultChunkLimit
	}
	var out [][]interface{}
	for i := 0; i < len(entries); i += limit {
		end := i + limit
		if end > len(entries) {
			end = len(entries)
		}
		out = append(out, entries[i:end])
	}
	return out
}

func chunkStrings(codes []string, limit int) [][]string {
	if limit <= 0 {
		limit = models.DefaultChunkLimit
	}
	var out [][]string
	for i := 0; i < len(codes); i += limit {
		end := i + limit
		if end > len(codes) {
			end = len(codes)
		}
		out = append(out, codes[i:end])
	}
	return out
}
