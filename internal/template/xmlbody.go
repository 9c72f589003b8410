package template

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"inventory-connector-service/internal/models"
)

func (r *Resolver) planRESTXML(plan *FetchPlan) error {
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
	limit := cfg.EffectiveChunkLimit()
	payload := r.xmlPayloadTemplate(cfg)

	switch {
	case cfg.XMLMultiReqBody && payload != "":
		bodies, err := r.buildIdentifierBodies(cfg, payload, plan.ItemCodes, limit)
		if err != nil {
			return err
		}
		for _, b := range bodies {
			req := base
			req.Body = []byte(b)
			plan.Requests = append(plan.Requests, req)
		}

	case cfg.XMLReqBody != "" && payload != "":
		bodies, err := r.buildAppendBodies(cfg, payload, plan.ItemCodes, limit)
		if err != nil {
			return err
		}
		for _, b := range bodies {
			req := base
			req.Body = []byte(b)
			plan.Requests = append(plan.Requests, req)
		}

	case len(base.Query) > 0:
		// Item codes travel comma-joined in a URL query parameter, one
		// request per chunk.
		for _, chunk := range chunkStrings(plan.ItemCodes, limit) {
			req := base
			q := make(map[string]string, len(base.Query))
			for k, v := range base.Query {
				q[k] = strings.ReplaceAll(v, models.ItemCodePlaceholder, strings.Join(chunk, ","))
			}
			req.Query = q
			plan.Requests = append(plan.Requests, req)
		}

	default:
		req := base
		if payload != "" {
			req.Body = []byte(payload)
		}
		plan.Requests = append(plan.Requests, req)
	}

	plan.MultiBody = len(plan.Requests) > 1
	return nil
}

// xmlPayloadTemplate reads the XML body skeleton addressed by
// xml_payload_format out of the resolved document.
func (r *Resolver) xmlPayloadTemplate(cfg *models.ConnectorConfig) string {
	if cfg.XMLPayloadFormat == "" {
		return ""
	}
	s, _ := lookupRaw(cfg, cfg.XMLPayloadFormat).(string)
	return s
}

func lookupRaw(cfg *models.ConnectorConfig, expr string) interface{} {
	cur := interface{}(cfg.Raw)
	for _, seg := range strings.Split(expr, ".") {
		node, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = node[seg]
	}
	return cur
}

// buildIdentifierBodies produces one XML body per chunk for vendors whose
// item node differs by identifier kind: all-digit codes use the distributor
// sub-template, anything else the manufacturer one.
func (r *Resolver) buildIdentifierBodies(cfg *models.ConnectorConfig, payload string, codes []string, limit int) ([]string, error) {
	masked := maskTokens(payload)
	var bodies []string
	for _, chunk := range chunkStrings(codes, limit) {
		doc := etree.NewDocument()
		if err := doc.ReadFromString(masked); err != nil {
			return nil, fmt.Errorf("parsing xml payload template: %w", err)
		}
		target, itemNode := locateItemNode(doc.Root(), cfg)
		if itemNode != nil {
			target.RemoveChild(itemNode)
		}
		for _, code := range chunk {
			sub := cfg.XMLReqBodyManufacture
			if isDigits(code) {
				sub = cfg.XMLReqBodyDistributor
			}
			if err := appendFragment(target, strings.ReplaceAll(sub, models.ItemCodePlaceholder, code)); err != nil {
				return nil, err
			}
		}
		body, err := doc.WriteToString()
		if err != nil {
			return nil, fmt.Errorf("serializing xml request body: %w", err)
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}

// buildAppendBodies produces one XML body per chunk by replacing the
// template's item node with one xml_req_body instance per code, numbering
// them when the config names an iterator token.
func (r *Resolver) buildAppendBodies(cfg *models.ConnectorConfig, payload string, codes []string, limit int) ([]string, error) {
	masked := maskTokens(payload)
	iterToken := ""
	if cfg.XMLIterator != "" {
		iterToken = "<<" + cfg.XMLIterator + ">>"
	}

	line := 0
	var bodies []string
	for _, chunk := range chunkStrings(codes, limit) {
		doc := etree.NewDocument()
		if err := doc.ReadFromString(masked); err != nil {
			return nil, fmt.Errorf("parsing xml payload template: %w", err)
		}
		target, itemNode := locateItemNode(doc.Root(), cfg)
		if itemNode != nil {
			target.RemoveChild(itemNode)
		}
		for _, code := range chunk {
			frag := strings.ReplaceAll(cfg.XMLReqBody, models.ItemCodePlaceholder, code)
			if iterToken != "" {
				line++
				frag = strings.ReplaceAll(frag, iterToken, strconv.Itoa(line))
			}
			if err := appendFragment(target, frag); err != nil {
				return nil, err
			}
		}
		body, err := doc.WriteToString()
		if err != nil {
			return nil, fmt.Errorf("serializing xml request body: %w", err)
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}

// locateItemNode finds the repeated item element inside the request
// template, preferring the configured append tag, then the data list path.
// It returns the element's parent (where per-code fragments get appended)
// and the element itself, or (root, nil) when the template carries no item
// node.
func locateItemNode(root *etree.Element, cfg *models.ConnectorConfig) (target, item *etree.Element) {
	if cfg.XMLAppendMulti != "" {
		if items := root.FindElements(".//" + cfg.XMLAppendMulti); len(items) > 0 {
			item = items[len(items)-1]
			return item.Parent(), item
		}
	}
	if cfg.DataListPath != "" {
		// The first path segment names the root element itself.
		segs := strings.Split(cfg.DataListPath, ".")
		cur := root
		for _, seg := range segs[1:] {
			next := cur.FindElement(seg)
			if next == nil {
				return root, nil
			}
			cur = next
		}
		if cur != root {
			return cur.Parent(), cur
		}
	}
	return root, nil
}

func appendFragment(target *etree.Element, fragment string) error {
	frag := etree.NewDocument()
	if err := frag.ReadFromString(fragment); err != nil {
		return fmt.Errorf("parsing xml item fragment: %w", err)
	}
	target.AddChild(frag.Root())
	return nil
}

// maskTokens strips the <<...>> delimiters so the payload skeleton parses as
// XML. The masked item node is removed before per-code fragments go in.
func maskTokens(payload string) string {
	return tokenPattern.ReplaceAllString(payload, "$1")
}
