package apiclient

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/invopilot/invoice-edge/internal/domain"
)

// ExportFormat selects the e-invoice or accounting export produced by the
// backend. Payloads are opaque to this layer.
type ExportFormat string

const (
	ExportXRechnung ExportFormat = "xrechnung"
	ExportZUGFeRD   ExportFormat = "zugferd"
	ExportDATEV     ExportFormat = "datev"
)

func (f ExportFormat) String() string { return string(f) }

func (f ExportFormat) IsValid() bool {
	switch f {
	case ExportXRechnung, ExportZUGFeRD, ExportDATEV:
		return true
	}
	return false
}

func ParseExportFormatFromString(s string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: invalid export format %q", domain.ErrValidation, s)
	}
	return f, nil
}

// Invoice is the backend's invoice list representation.
type Invoice struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	Status     string    `json:"status"`
	Recipient  string    `json:"recipient"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	IssuedAt   time.Time `json:"issued_at"`
}

type invoiceListResponse struct {
	Data  []Invoice `json:"data"`
	Total int64     `json:"total"`
}

// Export is a downloaded export artifact.
type Export struct {
	Format   ExportFormat
	Filename string
	Content  []byte
}

// OCRResult is the backend's acknowledgement of an uploaded document.
type OCRResult struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

func (c *Client) ListInvoices(ctx context.Context, page int, pageSize int) ([]Invoice, int64, error) {
	if page < 1 {
		return nil, 0, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if pageSize < 1 {
		return nil, 0, fmt.Errorf("%w: pageSize must be >= 1", domain.ErrValidation)
	}

	var out invoiceListResponse
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetQueryParam("page", strconv.Itoa(page)).
			SetQueryParam("page_size", strconv.Itoa(pageSize)).
			SetResult(&out).
			Get("/api/invoices")
	})
	if err != nil {
		return nil, 0, err
	}
	if resp.IsError() {
		return nil, 0, newAPIError(resp)
	}

	return out.Data, out.Total, nil
}

func (c *Client) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return nil, fmt.Errorf("%w: invoice id is required", domain.ErrValidation)
	}

	var out Invoice
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetResult(&out).
			Get("/api/invoices/" + trimmedID)
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: invoice %q", domain.ErrNotFound, trimmedID)
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	return &out, nil
}

func (c *Client) CreateInvoice(ctx context.Context, invoice Invoice) (*Invoice, error) {
	var out Invoice
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(invoice).
			SetResult(&out).
			Post("/api/invoices")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	return &out, nil
}

func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return fmt.Errorf("%w: invoice id is required", domain.ErrValidation)
	}

	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			Delete("/api/invoices/" + trimmedID)
	})
	if err != nil {
		return err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: invoice %q", domain.ErrNotFound, trimmedID)
	}
	if resp.IsError() {
		return newAPIError(resp)
	}

	return nil
}

// DownloadExport fetches an XRechnung/ZUGFeRD/DATEV artifact for an invoice.
// The filename is taken from Content-Disposition when the backend sends one.
func (c *Client) DownloadExport(ctx context.Context, id string, format ExportFormat) (*Export, error) {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return nil, fmt.Errorf("%w: invoice id is required", domain.ErrValidation)
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: invalid export format %q", domain.ErrValidation, format)
	}

	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetQueryParam("format", format.String()).
			Get("/api/invoices/" + trimmedID + "/export")
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: invoice %q", domain.ErrNotFound, trimmedID)
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	return &Export{
		Format:   format,
		Filename: exportFilename(resp, trimmedID, format),
		Content:  resp.Body(),
	}, nil
}

// UploadDocument submits a scanned document for OCR ingestion.
func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader) (*OCRResult, error) {
	trimmedName := strings.TrimSpace(filename)
	if trimmedName == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}
	if content == nil {
		return nil, fmt.Errorf("%w: document content is required", domain.ErrValidation)
	}

	var out OCRResult
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetFileReader("file", trimmedName, content).
			SetResult(&out).
			Post("/api/ocr/upload")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	return &out, nil
}

func exportFilename(resp *resty.Response, id string, format ExportFormat) string {
	if disposition := resp.Header().Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return name
			}
		}
	}

	ext := "xml"
	if format == ExportDATEV {
		ext = "zip"
	}
	return fmt.Sprintf("%s-%s.%s", id, format, ext)
}
