package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/models"
)

// ConfigLoader reads per-vendor connector config documents. A Job may carry
// the document inline, point at an HTTP location, or name a file under the
// configured base directory.
type ConfigLoader struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

// NewConfigLoader creates a config loader.
func NewConfigLoader(baseURL string, timeout time.Duration, log *logrus.Logger) *ConfigLoader {
	return &ConfigLoader{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Load returns the raw config template document for a Job.
func (l *ConfigLoader) Load(ctx context.Context, job *models.Job) (map[string]interface{}, error) {
	data, err := l.read(ctx, job)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing config for vendor %d: %w", job.VendorID, err)
	}
	return doc, nil
}

func (l *ConfigLoader) read(ctx context.Context, job *models.Job) ([]byte, error) {
	if len(job.ConfigJSON) > 0 {
		return job.ConfigJSON, nil
	}
	if job.ConfigPath == "" {
		return nil, fmt.Errorf("vendor %d job has no config source", job.VendorID)
	}

	location := job.ConfigPath
	if !strings.Contains(location, "://") && l.baseURL != "" {
		if strings.HasPrefix(l.baseURL, "http://") || strings.HasPrefix(l.baseURL, "https://") {
			location = strings.TrimSuffix(l.baseURL, "/") + "/" + location
		} else {
			location = filepath.Join(l.baseURL, location)
		}
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return l.fetch(ctx, location)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return data, nil
}

func (l *ConfigLoader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching config from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config fetch from %s returned status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
