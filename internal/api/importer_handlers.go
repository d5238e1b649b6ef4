package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/digiteinfotech/kairon/internal/exporter"
	"github.com/digiteinfotech/kairon/internal/importer"
	"github.com/digiteinfotech/kairon/internal/models"
)

// maxImportUploadBytes bounds the multipart form held in memory during an
// import request.
const maxImportUploadBytes = 100 << 20

// importHandler accepts a multipart upload of training files under the
// "training_files" field and runs the import pipeline synchronously. The
// importer log, including the validation report, is returned as data.
// Flags (query or form): overwrite (default true) selects the commit mode,
// import_data=false validates without committing, force_import=true commits
// past append conflicts.
func (s *Server) importHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	tenant := r.PathValue("bot")
	if err := r.ParseMultipartForm(maxImportUploadBytes); err != nil {
		slog.Warn("Server.importHandler: failed to parse multipart form", "error", err, "bot", tenant)
		writeJSONResponse(w, http.StatusBadRequest, models.Failure(400, "Invalid multipart form"))
		return
	}

	files := make(map[string][]byte)
	for _, header := range r.MultipartForm.File["training_files"] {
		file, err := header.Open()
		if err != nil {
			writeError(w, fmt.Errorf("open uploaded file %s: %w", header.Filename, err))
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, fmt.Errorf("read uploaded file %s: %w", header.Filename, err))
			return
		}
		files[header.Filename] = content
	}
	if len(files) == 0 {
		writeError(w, models.NewValidationError("at least one training file is required", "body", "training_files"))
		return
	}

	mode := models.ImportOverwrite
	if r.FormValue("overwrite") == "false" {
		mode = models.ImportAppend
	}

	log, err := s.importer.Run(importer.Request{
		Tenant:       tenant,
		User:         actor(r),
		Files:        files,
		Mode:         mode,
		Force:        r.FormValue("force_import") == "true",
		ValidateOnly: r.FormValue("import_data") == "false",
	})
	if err != nil {
		writeError(w, err)
		return
	}
	message := "Import completed"
	if log.Status == models.ImportFailure {
		message = "Import failed"
	}
	writeSuccess(w, message, log)
}

func (s *Server) listImportLogsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, models.NewValidationError("limit must be a positive integer", "query", "limit"))
			return
		}
		limit = parsed
	}
	logs, err := s.importer.ListLogs(r.PathValue("bot"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil, logs)
}

func (s *Server) getImportLogHandler(w http.ResponseWriter, r *http.Request) {
	log, err := s.importer.GetLog(r.PathValue("bot"), r.PathValue("reference"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil, log)
}

// exportHandler streams the tenant's training data as a zip download.
func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("bot")
	archive, err := s.exporter.Export(tenant)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exporter.ArchiveName(tenant)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive); err != nil {
		slog.Error("Server.exportHandler: failed to write archive", "error", err, "bot", tenant)
	}
}

// listAuditHandler returns the audit trail of a tenant within a time window,
// defaulting to the last 30 days.
func (s *Server) listAuditHandler(w http.ResponseWriter, r *http.Request) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, models.NewValidationError("from must be an RFC 3339 timestamp", "query", "from"))
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, models.NewValidationError("to must be an RFC 3339 timestamp", "query", "to"))
			return
		}
		to = parsed
	}
	entries, err := s.processor.Audit().List(r.PathValue("bot"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil, entries)
}
