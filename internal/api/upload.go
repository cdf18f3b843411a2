package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// uploadMemoryLimit bounds the in-memory part of multipart parsing; larger
// bodies spill to temp files.
const uploadMemoryLimit = 32 << 20

func handleUpload(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Resolver == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DATA_NOT_CONFIGURED", "data root is not configured", false, nil)
		return
	}
	if _, pinned := deps.Resolver.SingleFile(); pinned {
		writeError(r.Context(), w, http.StatusBadRequest, "UPLOADS_DISABLED", "uploads are disabled", false, nil)
		return
	}

	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "invalid multipart request", false, map[string]any{"details": err.Error()})
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "FILES_REQUIRED", "at least one file part named files is required", false, nil)
		return
	}

	saved := make([]string, 0, len(parts))
	skipped := make([]string, 0)
	for _, part := range parts {
		name := filepath.Base(part.Filename)
		if name == "" || name == "." {
			continue
		}
		target, err := deps.Resolver.UploadTarget(name)
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		if err := saveUploadPart(part, target); err != nil {
			writeError(r.Context(), w, http.StatusInternalServerError, "UPLOAD_FAILED", "failed to store upload", true, map[string]any{"file": name, "details": err.Error()})
			return
		}
		saved = append(saved, filepath.Base(target))
	}

	if len(saved) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", "unsupported file extension", false, map[string]any{"skipped": skipped})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": saved, "skipped": skipped})
}

func saveUploadPart(part *multipart.FileHeader, target string) error {
	in, err := part.Open()
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(target)
		return err
	}
	return nil
}
