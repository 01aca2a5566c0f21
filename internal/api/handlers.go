package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"veil.share/config"
	"veil.share/internal/keys"
	"veil.share/internal/logger"
	"veil.share/internal/models"
	"veil.share/internal/store"
	"veil.share/web"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	store  store.Store
	config *config.Config
}

func NewHandler(s store.Store, cfg *config.Config) *Handler {
	return &Handler{
		store:  s,
		config: cfg,
	}
}

type CreateRequest struct {
	Ciphertext       string `json:"ciphertext"`
	IV               string `json:"iv"`
	Salt             string `json:"salt,omitempty"`
	PasswordVerifier string `json:"password_verifier,omitempty"`
	ExpirySelection  string `json:"expiry_selection"`
	MaxViews         int    `json:"max_views"`
	ContentType      string `json:"content_type"`
}

type CreateResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type MetadataResponse struct {
	HasPassword    bool      `json:"has_password"`
	ExpiresAt      time.Time `json:"expires_at"`
	RemainingViews int       `json:"remaining_views"`
	MaxViews       int       `json:"max_views"`
	ContentType    string    `json:"content_type"`
}

type ViewRequest struct {
	PasswordVerifier string `json:"password_verifier,omitempty"`
}

type ViewResponse struct {
	Ciphertext     string `json:"ciphertext"`
	IV             string `json:"iv"`
	Salt           string `json:"salt,omitempty"`
	RemainingViews int    `json:"remaining_views"`
	Destroyed      bool   `json:"destroyed"`
	ContentType    string `json:"content_type"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateSecret(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Ciphertext) > h.config.Secrets.MaxContentBytes {
		h.error(w, http.StatusBadRequest, "ciphertext exceeds maximum size")
		return
	}

	ciphertext, err := base64.StdEncoding.DecodeString(req.Ciphertext)
	if err != nil || len(ciphertext) == 0 {
		h.error(w, http.StatusBadRequest, "ciphertext must be non-empty base64")
		return
	}

	iv, err := base64.StdEncoding.DecodeString(req.IV)
	if err != nil || len(iv) != keys.IVSize {
		h.error(w, http.StatusBadRequest, "iv must be base64 of 12 bytes")
		return
	}

	var salt []byte
	if req.Salt != "" {
		salt, err = base64.StdEncoding.DecodeString(req.Salt)
		if err != nil || len(salt) != keys.SaltSize {
			h.error(w, http.StatusBadRequest, "salt must be base64 of 16 bytes")
			return
		}
	}

	expiry, err := models.ParseExpirySelection(req.ExpirySelection)
	if err != nil {
		h.error(w, http.StatusBadRequest, "invalid expiry selection")
		return
	}

	if req.MaxViews < models.MinViews || req.MaxViews > models.MaxViews {
		h.error(w, http.StatusBadRequest, "max_views must be between 1 and 10")
		return
	}

	contentType, err := models.ParseContentType(req.ContentType)
	if err != nil {
		h.error(w, http.StatusBadRequest, "invalid content type")
		return
	}

	verifierHash, err := store.HashVerifier(req.PasswordVerifier)
	if err != nil {
		log.Err(err).Msg("hashing password verifier failed")
		h.error(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now()
	record := &models.SecretRecord{
		ID:           keys.GenerateID(),
		Ciphertext:   ciphertext,
		IV:           iv,
		Salt:         salt,
		VerifierHash: verifierHash,
		ContentType:  contentType,
		CreatedAt:    now,
		ExpiresAt:    now.Add(expiry.Duration()),
		MaxViews:     req.MaxViews,
		ViewCount:    0,
	}

	if err := h.store.Save(r.Context(), record); err != nil {
		log.Err(err).Msg("failed to save secret")
		h.error(w, http.StatusInternalServerError, "failed to save secret")
		return
	}

	log.Info().Str("id", record.ID).Time("expires_at", record.ExpiresAt).Msg("secret created")

	h.json(w, http.StatusCreated, CreateResponse{
		ID:        record.ID,
		ExpiresAt: record.ExpiresAt,
	})
}

func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	meta, err := h.store.PeekMetadata(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	h.json(w, http.StatusOK, MetadataResponse{
		HasPassword:    meta.HasPassword,
		ExpiresAt:      meta.ExpiresAt,
		RemainingViews: meta.RemainingViews,
		MaxViews:       meta.MaxViews,
		ContentType:    string(meta.ContentType),
	})
}

func (h *Handler) ViewSecret(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// The body is optional for secrets without a password gate.
	var req ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.store.ConsumeView(r.Context(), id, req.PasswordVerifier)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	resp := ViewResponse{
		Ciphertext:     base64.StdEncoding.EncodeToString(result.Ciphertext),
		IV:             base64.StdEncoding.EncodeToString(result.IV),
		RemainingViews: result.RemainingViews,
		Destroyed:      result.Destroyed,
		ContentType:    string(result.ContentType),
	}
	if len(result.Salt) > 0 {
		resp.Salt = base64.StdEncoding.EncodeToString(result.Salt)
	}

	h.json(w, http.StatusOK, resp)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, "index.html")
}

func (h *Handler) RevealPage(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, "reveal.html")
}

func (h *Handler) serveFile(w http.ResponseWriter, filename string) {
	content, err := web.GetFile(filename)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(content)
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) error(w http.ResponseWriter, status int, message string) {
	h.json(w, status, ErrorResponse{Error: message})
}

func (h *Handler) handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrUnavailable):
		// Missing, expired and exhausted all look the same from here.
		h.error(w, http.StatusNotFound, "secret unavailable")
	case errors.Is(err, store.ErrPasswordRequired):
		h.error(w, http.StatusUnauthorized, "password required")
	case errors.Is(err, store.ErrInvalidPassword):
		h.error(w, http.StatusUnauthorized, "invalid password")
	default:
		logger.FromRequest(r).Err(err).Msg("store operation failed")
		h.error(w, http.StatusInternalServerError, "internal error")
	}
}
