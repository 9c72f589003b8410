package fetcher

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/models"
	"inventory-connector-service/internal/template"
)

const ftpDialTimeout = 30 * time.Second

// FTPExecutor downloads a vendor's inventory export from its FTP server,
// unzips it when needed, and transforms the rows into item documents. An
// absent remote file is not a Job failure: the vendor simply has nothing to
// report, so the result is empty and the vendor table records a 404.
type FTPExecutor struct {
	log *logrus.Logger
}

// NewFTPExecutor creates an FTP executor.
func NewFTPExecutor(log *logrus.Logger) *FTPExecutor {
	return &FTPExecutor{log: log}
}

// Execute downloads and parses the vendor export. The returned Response
// carries the single terminal state of the transfer.
func (e *FTPExecutor) Execute(ctx context.Context, plan *template.FetchPlan) (*Result, error) {
	if plan.FTP == nil {
		return nil, fmt.Errorf("ftp plan for vendor %d has no connection details", plan.VendorID)
	}
	req := plan.FTP
	result := &Result{Response: successResponse(plan.VendorID)}

	localPath, found, err := e.download(ctx, req)
	if err != nil {
		result.Response = models.ResponseInfo{
			VendorID:     plan.VendorID,
			ResponseCode: http.StatusBadRequest,
			ResponseText: "FTP error",
		}
		return result, fmt.Errorf("vendor %d ftp transfer: %w", plan.VendorID, err)
	}
	if !found {
		e.log.WithFields(logrus.Fields{
			"vendor_id": plan.VendorID,
			"file":      remoteFile(req),
		}).Warn("File not found on FTP server, nothing to do")
		result.Response = models.ResponseInfo{
			VendorID:     plan.VendorID,
			ResponseCode: http.StatusNotFound,
			ResponseText: "File not available in the server",
		}
		return result, nil
	}
	defer os.Remove(localPath)

	if req.ZipFile != "" {
		extracted, err := e.unzip(localPath, filepath.Dir(localPath))
		if err != nil {
			result.Response = models.ResponseInfo{
				VendorID:     plan.VendorID,
				ResponseCode: http.StatusBadRequest,
				ResponseText: "zip file exception",
			}
			return result, fmt.Errorf("vendor %d zip extraction: %w", plan.VendorID, err)
		}
		defer os.Remove(extracted)
		localPath = extracted
	}

	fileType, delimiter := "", ","
	if plan.Config != nil {
		fileType = plan.Config.FileType
		if plan.Config.Delimiter != "" {
			delimiter = plan.Config.Delimiter
		}
	}
	rows, err := transformFile(localPath, fileType, delimiter)
	if err != nil {
		result.Response = models.ResponseInfo{
			VendorID:     plan.VendorID,
			ResponseCode: http.StatusBadRequest,
			ResponseText: "response is not a valid",
		}
		return result, fmt.Errorf("transforming vendor %d export: %w", plan.VendorID, err)
	}
	e.log.WithFields(logrus.Fields{
		"vendor_id": plan.VendorID,
		"rows":      len(rows),
	}).Info("Parsed FTP vendor export")
	result.Documents = rows
	return result, nil
}

// download connects, verifies that the remote file exists and retrieves it.
// found is false when the server does not carry the file.
func (e *FTPExecutor) download(ctx context.Context, req *template.FTPRequest) (localPath string, found bool, err error) {
	addr := req.Host
	if req.Port > 0 {
		addr = fmt.Sprintf("%s:%d", req.Host, req.Port)
	} else {
		addr += ":21"
	}

	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(ftpDialTimeout))
	if err != nil {
		return "", false, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Quit()

	if err := conn.Login(req.Username, req.Password); err != nil {
		return "", false, fmt.Errorf("logging in to %s: %w", addr, err)
	}

	target := remoteFile(req)
	names, err := conn.NameList("")
	if err != nil {
		return "", false, fmt.Errorf("listing %s: %w", addr, err)
	}
	if !containsName(names, target) {
		return "", false, nil
	}

	resp, err := conn.Retr(target)
	if err != nil {
		return "", false, fmt.Errorf("retrieving %s: %w", target, err)
	}
	defer resp.Close()

	localPath = filepath.Join(filepath.Dir(req.LocalPath), filepath.Base(target))
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", false, err
	}
	out, err := os.Create(localPath)
	if err != nil {
		return "", false, err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp); err != nil {
		os.Remove(localPath)
		return "", false, fmt.Errorf("downloading %s: %w", target, err)
	}
	return localPath, true, nil
}

// unzip extracts the export from the downloaded archive and returns the path
// of the last extracted file, matching how zipped vendor exports carry a
// single data file.
func (e *FTPExecutor) unzip(archivePath, destDir string) (string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	var extracted string
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		dest := filepath.Join(destDir, filepath.Base(f.Name))
		if err := extractZipFile(f, dest); err != nil {
			return "", err
		}
		extracted = dest
	}
	if extracted == "" {
		return "", fmt.Errorf("archive %s contains no files", archivePath)
	}
	return extracted, nil
}

func extractZipFile(f *zip.File, dest string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

func remoteFile(req *template.FTPRequest) string {
	if req.ZipFile != "" {
		return req.ZipFile
	}
	return req.FileName
}

func containsName(names []string, target string) bool {
	for _, n := range names {
		if n == target || filepath.Base(n) == target {
			return true
		}
	}
	return false
}
