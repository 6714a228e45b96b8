// file: internal/schema/loader.go
package schema

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/logging"
)

// loadSchemaFromURI loads schema data from a file:// path or an http(s)://
// URL. It is only used when a schema override URI is configured; otherwise
// the embedded schema content is used directly.
func loadSchemaFromURI(ctx context.Context, uri string, logger logging.Logger, httpClient *http.Client) ([]byte, error) {
	parsedURI, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schema override URI: %s", uri)
	}

	logger.Info("Loading schema from URI.", "uri", uri, "scheme", parsedURI.Scheme)

	switch parsedURI.Scheme {
	case "file":
		filePath := parsedURI.Path
		// Windows file URIs carry a leading slash before the drive letter.
		if os.PathSeparator == '\\' && strings.HasPrefix(filePath, "/") {
			filePath = strings.TrimPrefix(filePath, "/")
		}
		data, err := os.ReadFile(filePath) // #nosec G304 -- URI comes from config/flag.
		if err != nil {
			logger.Error("Failed to read schema file.", "path", filePath, "error", err)
			return nil, NewValidationError(
				ErrSchemaNotFound,
				"Failed to read schema file from override URI",
				errors.Wrapf(err, "failed to read schema file: %s", filePath),
			).WithContext("uri", uri)
		}
		logger.Debug("Schema file read.", "path", filePath, "size_bytes", len(data))
		return data, nil

	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, NewValidationError(
				ErrSchemaLoadFailed,
				"Failed to create HTTP request for schema override URL",
				errors.Wrap(err, "http.NewRequestWithContext failed"),
			).WithContext("url", uri)
		}
		req.Header.Set("Accept", "application/json, text/plain, */*")
		req.Header.Set("User-Agent", "PromptClinic-Schema-Loader/0.1.0 (schema override)")

		resp, err := httpClient.Do(req)
		if err != nil {
			logger.Error("Network error fetching schema override.", "url", uri, "error", err)
			return nil, NewValidationError(
				ErrSchemaLoadFailed,
				"Failed to fetch schema from override URL",
				errors.Wrap(err, "httpClient.Do failed"),
			).WithContext("url", uri)
		}
		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				logger.Warn("Error closing schema response body.", "url", uri, "error", closeErr)
			}
		}()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			logger.Error("Schema override URL returned error status.", "url", uri, "status", resp.Status)
			return nil, NewValidationError(
				ErrSchemaLoadFailed,
				fmt.Sprintf("Failed to fetch schema override: HTTP status %d", resp.StatusCode),
				nil,
			).WithContext("url", uri).
				WithContext("statusCode", resp.StatusCode).
				WithContext("responseBody", calculatePreview(bodyBytes))
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, NewValidationError(
				ErrSchemaLoadFailed,
				"Failed to read schema from override HTTP response",
				errors.Wrap(err, "io.ReadAll failed"),
			).WithContext("url", uri)
		}
		logger.Debug("Downloaded schema override.", "url", uri, "size_bytes", len(data))
		return data, nil

	default:
		return nil, NewValidationError(
			ErrSchemaLoadFailed,
			fmt.Sprintf("Unsupported schema URI scheme: %s", parsedURI.Scheme),
			nil,
		).WithContext("uri", uri)
	}
}
