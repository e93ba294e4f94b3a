package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/aqualyx/geoanalyze/internal/ingest"
	"github.com/aqualyx/geoanalyze/pkg/types"
)

const (
	// uploadField is the multipart form field carrying the file.
	uploadField = "file"

	defaultUploadName = "upload.csv"
	sampleBatchName   = "Sample dataset"
)

// errUnsupportedType is returned for uploads that are not delimited text.
var errUnsupportedType = errors.New("unsupported file type: upload a .csv file")

// errSpreadsheet is returned for Excel uploads, which are not parsed.
var errSpreadsheet = errors.New("spreadsheet files are not supported: export the sheet as .csv and upload that")

// upload handles POST /api/v1/upload. The body is either a multipart form
// with a "file" field or the raw CSV text; ?name= names a raw upload.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.deps.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadBytes)
	}

	name, text, err := readUpload(r)
	if err != nil {
		h.deps.Metrics.ObserveRejected()
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			slog.Warn("api: upload too large", "limit", tooLarge.Limit)
			jsonErr(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, errUnsupportedType), errors.Is(err, errSpreadsheet):
			slog.Warn("api: upload rejected", "name", name, "err", err)
			jsonErr(w, http.StatusUnsupportedMediaType, err.Error())
		default:
			slog.Warn("api: upload unreadable", "err", err)
			jsonErr(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	vr := ingest.Parse(text, h.currentSchema())
	if len(vr.Records) == 0 {
		h.deps.Metrics.ObserveRejected()
		slog.Warn("api: upload produced no records", "name", name, "errors", len(vr.Errors))
		jsonResp(w, http.StatusUnprocessableEntity, RejectedResponse{
			Error:  "no valid records",
			Errors: vr.Errors,
		})
		return
	}

	b := h.accept(name, vr)
	jsonResp(w, http.StatusCreated, uploadResponse(b))
}

// sample handles GET /api/v1/sample (template download) and
// POST /api/v1/sample (analyse the built-in dataset as a batch).
func (h *Handler) sample(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", attachment(ingest.SampleFilename))
		io.WriteString(w, ingest.SampleCSV()) //nolint:errcheck
	case http.MethodPost:
		b := h.accept(sampleBatchName, types.ValidationResult{Records: ingest.SampleRecords()})
		jsonResp(w, http.StatusCreated, uploadResponse(b))
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// exportBatch writes the analysed report of a batch as CSV.
func (h *Handler) exportBatch(w http.ResponseWriter, id string) {
	e, ok := h.deps.Store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "batch not found")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(ingest.ReportFilename))
	if err := ingest.WriteReport(w, e.Batch.Results); err != nil {
		slog.Error("api: export failed", "batch", id, "err", err)
	}
}

// accept computes, stores and announces a batch.
func (h *Handler) accept(name string, vr types.ValidationResult) *types.Batch {
	b := h.deps.Engine.Process(name, vr, h.now())
	h.deps.Store.Put(b)
	h.deps.Metrics.ObserveBatch(b)
	if h.deps.Alerts != nil {
		h.deps.Alerts.Evaluate(b)
	}
	if h.deps.OnBatch != nil {
		h.deps.OnBatch(b)
	}
	slog.Info("api: batch analysed",
		"batch", b.ID,
		"name", name,
		"records", len(b.Results),
		"errors", len(b.Errors),
		"unsafe", b.Summary.Counts.Unsafe,
	)
	return b
}

func uploadResponse(b *types.Batch) UploadResponse {
	return UploadResponse{
		ID:      b.ID,
		Name:    b.Name,
		Count:   len(b.Results),
		Errors:  b.Errors,
		Summary: b.Summary,
	}
}

// readUpload extracts the file name and text from r.
func readUpload(r *http.Request) (string, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		f, hdr, err := r.FormFile(uploadField)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", "", err
			}
			return "", "", fmt.Errorf("read form field %q: %w", uploadField, err)
		}
		defer f.Close()
		if err := checkExtension(hdr.Filename); err != nil {
			return hdr.Filename, "", err
		}
		data, err := io.ReadAll(f)
		if err != nil {
			return hdr.Filename, "", err
		}
		return filepath.Base(hdr.Filename), string(data), nil
	}

	switch mediaType {
	case "", "text/csv", "text/plain", "application/csv", "application/octet-stream":
	default:
		return "", "", errUnsupportedType
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultUploadName
	}
	if err := checkExtension(name); err != nil {
		return name, "", err
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return name, "", err
	}
	return filepath.Base(name), string(data), nil
}

func checkExtension(name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return nil
	case ".xlsx", ".xls":
		return errSpreadsheet
	default:
		return errUnsupportedType
	}
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
