// Package network registers HTTP helpers backed by one shared client.
package network

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/specialistvlad/dmutils/internal/manifest"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
)

//go:embed manifest.hcl
var manifestSrc []byte

// Module implements the namespace.Module interface for this package. The
// client is shared by every call; a nil Client gets a pooled default.
type Module struct {
	Client *http.Client
}

// NewClient returns an HTTP client with connection pooling configured.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Register registers the module's functions with the namespace.
func (m *Module) Register(ns *namespace.Namespace) error {
	if m.Client == nil {
		m.Client = NewClient(60 * time.Second)
	}
	return manifest.RegisterSource(ns, "network/manifest.hcl", manifestSrc, map[string]namespace.Impl{
		"http_request":     m.httpRequest,
		"check_connection": m.checkConnection,
		"upload_file":      m.uploadFile,
	})
}

// Close releases idle connections held by the shared client.
func (m *Module) Close() error {
	if m.Client != nil {
		m.Client.CloseIdleConnections()
	}
	return nil
}

func (m *Module) httpRequest(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	url, err := args.String("url")
	if err != nil {
		return cty.NilVal, err
	}
	method, err := args.String("method")
	if err != nil {
		return cty.NilVal, err
	}
	method = strings.ToUpper(method)

	logger.Info("Making HTTP request", "method", method, "url", url)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to read response body: %w", err)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"body":        cty.StringVal(string(bodyBytes)),
	}), nil
}

func (m *Module) checkConnection(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	url, err := args.String("url")
	if err != nil {
		return cty.NilVal, err
	}
	seconds, err := args.Float("timeout")
	if err != nil {
		return cty.NilVal, err
	}
	if seconds <= 0 {
		return cty.NilVal, fmt.Errorf("timeout must be positive, got %v", seconds)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(seconds*float64(time.Second)))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := m.Client.Do(req)
	elapsed := time.Since(start)

	reachable, status := err == nil, 0
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Connection check failed.", "url", url, "error", err)
	} else {
		status = resp.StatusCode
		resp.Body.Close()
	}

	return cty.ObjectVal(map[string]cty.Value{
		"url":         cty.StringVal(url),
		"reachable":   cty.BoolVal(reachable),
		"status_code": cty.NumberIntVal(int64(status)),
		"elapsed_ms":  cty.NumberIntVal(elapsed.Milliseconds()),
	}), nil
}

func (m *Module) uploadFile(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	source, err := args.String("source_path")
	if err != nil {
		return cty.NilVal, err
	}
	url, err := args.String("upload_url")
	if err != nil {
		return cty.NilVal, err
	}
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	file, err := os.Open(source)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to open source file '%s': %w", source, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to get file stats for '%s': %w", source, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create upload request: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(source))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading file", "source", source, "size", stat.Size(), "contentType", contentType)
	resp, err := m.Client.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return cty.NilVal, fmt.Errorf("upload failed with status: %s", resp.Status)
	}
	logger.Info("Successfully uploaded file", "status", resp.Status)

	return cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"bytes":       cty.NumberIntVal(stat.Size()),
	}), nil
}
