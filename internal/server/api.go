package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/stepform/stepform/pkg/backend"
	"github.com/stepform/stepform/pkg/logging"
	"github.com/stepform/stepform/pkg/schema"
)

// uploadMemoryLimit caps how much of a multipart upload is buffered in memory
// before spilling to disk.
const uploadMemoryLimit = 8 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func apiError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleSave proxies a partial value diff to the backend draft store and
// answers with the recomputed whole-form progress.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var diff map[string]any
	if err := json.NewDecoder(r.Body).Decode(&diff); err != nil {
		apiError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess := sessionFrom(r.Context())
	if len(diff) > 0 {
		if err := s.backend.SaveDraft(r.Context(), sess, diff); err != nil {
			s.saveError(w, err)
			return
		}
	}
	env, err := s.backend.FetchForm(r.Context(), sess, s.cfg.FormID)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			apiError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.logger.Error("fetch form after save", logging.Err(err))
		apiError(w, http.StatusBadGateway, "form is unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"percent": schema.Progress(env.Structure, env.SavedData),
	})
}

func (s *Server) saveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		apiError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, backend.ErrLocked):
		apiError(w, http.StatusConflict, "form already submitted")
	default:
		s.logger.Error("save draft", logging.Err(err))
		apiError(w, http.StatusBadGateway, "save failed")
	}
}

// handleSubmit is the JSON flavour of final submission.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	res, err := s.backend.Submit(r.Context(), sess)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, backend.ErrAlreadySubmitted):
		apiError(w, http.StatusConflict, "form already submitted")
	case errors.Is(err, backend.ErrUnauthorized):
		apiError(w, http.StatusUnauthorized, "unauthorized")
	default:
		var verr *backend.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verr.Fields})
			return
		}
		s.logger.Error("submit", logging.Err(err))
		apiError(w, http.StatusBadGateway, "submit failed")
	}
}

// handleMediaUpload checks the file against the field's declared media
// constraints, forwards it to the backend store, and persists the returned
// storage path as the field's value. The transient URL never leaves the
// server.
func (s *Server) handleMediaUpload(w http.ResponseWriter, r *http.Request) {
	fieldKey := r.URL.Query().Get("fieldKey")
	if fieldKey == "" {
		apiError(w, http.StatusBadRequest, "missing fieldKey")
		return
	}
	sess := sessionFrom(r.Context())
	env, err := s.backend.FetchForm(r.Context(), sess, s.cfg.FormID)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			apiError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.logger.Error("fetch form for upload", logging.Err(err))
		apiError(w, http.StatusBadGateway, "form is unavailable")
		return
	}
	if env.Meta.IsSubmitted {
		apiError(w, http.StatusConflict, "form already submitted")
		return
	}
	field := schema.FieldByKey(env.Structure, fieldKey)
	if field == nil || field.Type != schema.TypeMedia {
		apiError(w, http.StatusBadRequest, "unknown media field")
		return
	}

	if field.MaxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(field.MaxSize)<<20+uploadMemoryLimit)
	}
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		apiError(w, http.StatusRequestEntityTooLarge, "file too large or malformed upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		apiError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()

	if field.MaxSize > 0 && header.Size > int64(field.MaxSize)<<20 {
		apiError(w, http.StatusRequestEntityTooLarge, "file exceeds the field's size limit")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !mediaTypeAllowed(field.MediaType, header.Filename, contentType) {
		apiError(w, http.StatusBadRequest, "file type not allowed for this field")
		return
	}

	ref, err := s.backend.UploadMedia(r.Context(), sess, fieldKey, header.Filename, contentType, file)
	if err != nil {
		s.logger.Error("media upload", logging.String("fieldKey", fieldKey), logging.Err(err))
		apiError(w, http.StatusBadGateway, "upload failed")
		return
	}
	if err := s.backend.SaveDraft(r.Context(), sess, map[string]any{fieldKey: ref.Path}); err != nil {
		s.saveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": ref.Path})
}

// mediaTypeAllowed enforces a field's declared media kind. Unknown kinds are
// passed through; the backend remains the authority.
func mediaTypeAllowed(mediaType, filename, contentType string) bool {
	switch strings.ToUpper(mediaType) {
	case "PDF":
		return contentType == "application/pdf" ||
			strings.EqualFold(extOf(filename), ".pdf")
	case "IMAGE":
		if strings.HasPrefix(contentType, "image/") {
			return true
		}
		byExt := mime.TypeByExtension(strings.ToLower(extOf(filename)))
		return strings.HasPrefix(byExt, "image/")
	default:
		return true
	}
}

func extOf(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		return filename[i:]
	}
	return ""
}

// handleMediaDelete removes the stored file and blanks the field's value so
// that progress no longer counts it.
func (s *Server) handleMediaDelete(w http.ResponseWriter, r *http.Request) {
	fieldKey := r.URL.Query().Get("fieldKey")
	if fieldKey == "" {
		apiError(w, http.StatusBadRequest, "missing fieldKey")
		return
	}
	sess := sessionFrom(r.Context())
	if err := s.backend.DeleteMedia(r.Context(), sess, fieldKey); err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			apiError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.logger.Error("media delete", logging.String("fieldKey", fieldKey), logging.Err(err))
		apiError(w, http.StatusBadGateway, "delete failed")
		return
	}
	if err := s.backend.SaveDraft(r.Context(), sess, map[string]any{fieldKey: ""}); err != nil {
		s.saveError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMediaDownload streams the stored file through, forwarding the
// backend's content headers.
func (s *Server) handleMediaDownload(w http.ResponseWriter, r *http.Request) {
	fieldKey := r.URL.Query().Get("fieldKey")
	if fieldKey == "" {
		apiError(w, http.StatusBadRequest, "missing fieldKey")
		return
	}
	sess := sessionFrom(r.Context())
	dl, err := s.backend.DownloadMedia(r.Context(), sess, fieldKey)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			apiError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var serr *backend.StatusError
		if errors.As(err, &serr) && serr.Status == http.StatusNotFound {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("media download", logging.String("fieldKey", fieldKey), logging.Err(err))
		apiError(w, http.StatusBadGateway, "download failed")
		return
	}
	defer dl.Body.Close()
	if dl.ContentType != "" {
		w.Header().Set("Content-Type", dl.ContentType)
	}
	if dl.Disposition != "" {
		w.Header().Set("Content-Disposition", dl.Disposition)
	}
	if _, err := io.Copy(w, dl.Body); err != nil {
		s.logger.Debug("media stream interrupted", logging.Err(err))
	}
}
