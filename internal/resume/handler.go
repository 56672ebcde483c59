package resume

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/muhammadolammi/ascend/internal/career"
	"github.com/muhammadolammi/ascend/internal/quest"
	"github.com/muhammadolammi/ascend/internal/questapi"
)

// MaxUploadSize caps the uploaded file itself.
const MaxUploadSize = 10 << 20

type HandlerConfig struct {
	Logger       *slog.Logger
	DefaultOwner string

	// Analyzer defaults to career.KeywordAnalyzer.
	Analyzer career.Analyzer

	// Store and Recorder are optional.
	Store    ObjectStore
	Recorder Recorder
}

type uploadResponse struct {
	Text      string                `json:"text"`
	FileName  string                `json:"fileName"`
	ObjectKey string                `json:"objectKey,omitempty"`
	ResumeID  string                `json:"resumeId,omitempty"`
	Analysis  career.ResumeAnalysis `json:"analysis"`
}

type handler struct {
	ledgers *quest.Ledgers
	config  *HandlerConfig
}

// NewHandler serves POST /api/resume.
func NewHandler(ledgers *quest.Ledgers, cfg *HandlerConfig) http.Handler {
	if cfg == nil {
		cfg = &HandlerConfig{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultOwner == "" {
		cfg.DefaultOwner = questapi.DefaultOwner
	}
	if cfg.Analyzer == nil {
		cfg.Analyzer = career.KeywordAnalyzer{}
	}

	h := &handler{ledgers: ledgers, config: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/resume", h.handleUpload)
	return mux
}

func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := h.config.Logger
	owner, err := questapi.Owner(r, h.config.DefaultOwner)
	if err != nil {
		questapi.WriteError(w, http.StatusBadRequest, "invalid_owner", err.Error())
		return
	}

	// Leave room for the multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			questapi.WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 10 MiB")
			return
		}
		questapi.WriteError(w, http.StatusBadRequest, "invalid_form", "expected multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		questapi.WriteError(w, http.StatusBadRequest, "missing_file", "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		h.internalError(w, "read upload", err)
		return
	}
	if len(data) > MaxUploadSize {
		questapi.WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 10 MiB")
		return
	}

	fileName := filepath.Base(header.Filename)
	mimeType := DetectMime(header.Header.Get("Content-Type"), fileName)
	text, err := ExtractText(mimeType, data)
	if err != nil {
		if errors.Is(err, ErrUnsupportedType) {
			questapi.WriteError(w, http.StatusUnsupportedMediaType, "unsupported_type", "upload a PDF, DOCX or plain text file")
			return
		}
		log.Warn("text extraction failed", "file", fileName, "mime", mimeType, "error", err)
		questapi.WriteError(w, http.StatusUnprocessableEntity, "unreadable_file", "could not read text from file")
		return
	}
	if strings.TrimSpace(text) == "" {
		questapi.WriteError(w, http.StatusUnprocessableEntity, "empty_resume", "no text found in file")
		return
	}

	analysis, err := h.config.Analyzer.Analyze(r.Context(), text)
	if err != nil {
		log.Warn("resume analysis failed, using keyword scan", "error", err)
		analysis = career.AnalyzeResume(text)
	}

	upload := Upload{
		Owner:    owner,
		FileName: fileName,
		Mime:     mimeType,
		Size:     int64(len(data)),
		Analysis: analysis,
	}

	if store := h.config.Store; store != nil {
		key := fmt.Sprintf("resumes/%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(fileName)))
		if err := store.Put(r.Context(), key, mimeType, data); err != nil {
			log.Error("failed to store resume", "key", key, "error", err)
		} else {
			upload.ObjectKey = key
			upload.Provider = store.Provider()
		}
	}

	resp := uploadResponse{
		Text:      text,
		FileName:  fileName,
		ObjectKey: upload.ObjectKey,
		Analysis:  analysis,
	}

	if rec := h.config.Recorder; rec != nil {
		id, err := rec.Record(r.Context(), upload)
		if err != nil {
			log.Error("failed to record resume", "owner", owner, "error", err)
		}
		if id != uuid.Nil {
			resp.ResumeID = id.String()
		}
	}

	if h.ledgers != nil {
		res, err := h.ledgers.For(owner).Complete(r.Context(), quest.IDResume)
		switch {
		case err != nil:
			log.Warn("quest completion failed", "owner", owner, "quest", quest.IDResume, "error", err)
		case res.Awarded:
			log.Info("quest completed", "owner", owner, "quest", quest.IDResume, "xp", res.Quest.XP)
		}
	}

	questapi.WriteJSON(w, http.StatusOK, resp)
}

func (h *handler) internalError(w http.ResponseWriter, op string, err error) {
	h.config.Logger.Error(op+" failed", "error", err)
	questapi.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
