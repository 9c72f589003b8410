package mapper

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/models"
)

const (
	noErrorDescription   = "No Error"
	invalidCodeFallback  = "Invalid Item Code"
	failedSentinelString = "FAILED"
)

// CodeStatus is the classifier's per-vendor-code verdict, before joining
// against internal ids.
type CodeStatus struct {
	VendorCode       string
	Error            bool
	ErrorDescription string
}

// Classifier derives per-code error status from a config's vendor-code
// field mappings.
type Classifier struct {
	log *logrus.Logger

	// TreatAnyValueAsError keeps the observed production behavior of the
	// falsiness heuristic: any non-empty mapped value raises the error flag.
	// Disabling it requires the value to differ from both false and the
	// FAILED sentinel before the flag is raised.
	TreatAnyValueAsError bool
}

// NewClassifier creates a Classifier with the observed production
// heuristics.
func NewClassifier(log *logrus.Logger) *Classifier {
	return &Classifier{log: log, TreatAnyValueAsError: true}
}

// Classify produces one status per distinct vendor code found in the items,
// restricted to the Job's requested codes, first occurrence winning. With a
// configured status mapping, a mapped value listed there means no error; any
// other value means error. Without one, presence/falsiness heuristics apply.
func (c *Classifier) Classify(items []models.FlatItem, cfg *models.ConnectorConfig, jobCodes []string) []CodeStatus {
	mappings := cfg.Mapping.VendorCodeTable
	if len(mappings) == 0 {
		return nil
	}
	statusMapping := cfg.Mapping.MessageWhenNoError

	var out []CodeStatus
	seen := make(map[string]struct{})
	for _, item := range items {
		verdict := c.classifyItem(item, mappings, statusMapping, jobCodes)
		if verdict.VendorCode == "" || !codeInSet(verdict.VendorCode, jobCodes) {
			continue
		}
		key := strings.ToLower(verdict.VendorCode)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, verdict)
	}
	return out
}

func (c *Classifier) classifyItem(item models.FlatItem, mappings []models.FieldMapping, statusMapping, jobCodes []string) CodeStatus {
	fields := make(map[string]interface{}, len(mappings))
	var errorSet, errorFlag bool

	for _, fm := range mappings {
		dest := fm.DestinationField
		src := fm.SourceField

		if dest == multiVendorCodeField {
			if code := pickIdentifier(item, jobCodes); code != "" {
				fields["vendor_code"] = code
			}
			continue
		}

		val := c.resolveStatusValue(item, src)

		// Identity fields never drive the verdict.
		if dest == "vendor_code" {
			fields[dest] = val
			continue
		}

		if len(statusMapping) > 0 {
			errorSet = true
			errorFlag = errorFlag || !valueInStatusMapping(val, statusMapping)
			fields[dest] = val
			continue
		}

		if !truthy(val) {
			if dest == "error" {
				fields[dest] = false
				errorSet = true
			} else {
				fields[dest] = nil
			}
			continue
		}

		raised := c.TreatAnyValueAsError ||
			(val != false && val != failedSentinelString)
		if dest == "error" {
			fields[dest] = raised
			errorSet = true
			errorFlag = errorFlag || raised
		} else {
			fields[dest] = val
			if dest == "error_description" && raised {
				errorSet = true
				errorFlag = true
			}
		}
	}

	if len(statusMapping) > 0 {
		errorSet = true
	}
	if !errorSet {
		errorFlag = false
	}

	status := CodeStatus{Error: errorFlag}
	if code := fields["vendor_code"]; code != nil {
		status.VendorCode = strings.TrimSpace(fmt.Sprint(code))
	}
	if desc, ok := fields["error_description"].(string); ok && desc != "" {
		status.ErrorDescription = desc
	} else if status.Error {
		status.ErrorDescription = invalidCodeFallback
	} else {
		status.ErrorDescription = noErrorDescription
	}
	return status
}

// resolveStatusValue resolves a source expression that may list several
// comma-separated candidate fields; the first one holding a value wins.
func (c *Classifier) resolveStatusValue(item models.FlatItem, src string) interface{} {
	if strings.Contains(src, ",") {
		for _, candidate := range strings.Split(src, ",") {
			if v := lookupPath(item, strings.TrimSpace(candidate)); truthy(v) {
				return v
			}
		}
		return nil
	}
	return lookupPath(item, src)
}

func valueInStatusMapping(val interface{}, statusMapping []string) bool {
	if val == nil {
		return false
	}
	s := fmt.Sprint(val)
	for _, accepted := range statusMapping {
		if s == accepted {
			return true
		}
	}
	return false
}
