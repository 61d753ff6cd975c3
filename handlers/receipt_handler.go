package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"wmsinbound/inbound"
	"wmsinbound/utils"
)

const maxPhotoSize = 10 << 20

// PhotoStorage keeps uploaded photo bytes and hands back a URL for them.
type PhotoStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

type ReceiptHandler struct {
	Service *inbound.Service
	Storage PhotoStorage // nil disables multipart upload
	Logger  *zap.Logger
}

type lineRequest struct {
	PlanLineID  *string `json:"plan_line_id"`
	ProductID   string  `json:"product_id"`
	AcceptedQty int64   `json:"accepted_qty"`
	DamagedQty  int64   `json:"damaged_qty"`
	MissingQty  int64   `json:"missing_qty"`
	OtherQty    int64   `json:"other_qty"`
	LocationID  *string `json:"location_id"`
	Notes       *string `json:"notes"`
}

type saveLinesRequest struct {
	Lines []lineRequest `json:"lines"`
}

type photoRequest struct {
	SlotKey     string `json:"slot_key"`
	StoragePath string `json:"storage_path"`
}

func (h *ReceiptHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("receipt request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSONError(w, status, err.Error(), errorData(err))
}

// GetReceipt handles GET /receipts/{id}
func (h *ReceiptHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Service.GetReceipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, detail)
}

// SaveLines handles PUT /receipts/{id}/lines
func (h *ReceiptHandler) SaveLines(w http.ResponseWriter, r *http.Request) {
	var req saveLinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	inputs := make([]inbound.LineInput, len(req.Lines))
	for i, l := range req.Lines {
		inputs[i] = inbound.LineInput{
			PlanLineID:  l.PlanLineID,
			ProductID:   l.ProductID,
			AcceptedQty: l.AcceptedQty,
			DamagedQty:  l.DamagedQty,
			MissingQty:  l.MissingQty,
			OtherQty:    l.OtherQty,
			LocationID:  l.LocationID,
			Notes:       l.Notes,
		}
	}

	result, err := h.Service.SaveLines(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), inputs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, result)
}

// AddPhoto handles POST /receipts/{id}/photos with an already stored path.
func (h *ReceiptHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	var req photoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	photo, err := h.Service.AddPhoto(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), req.SlotKey, req.StoragePath)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, photo)
}

// UploadPhoto handles POST /receipts/{id}/photos/upload. The file goes to
// object storage first; if recording it fails the object is removed again.
func (h *ReceiptHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if h.Storage == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "photo storage is not configured", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to parse multipart form", nil)
		return
	}
	slotKey := r.FormValue("slot_key")
	if slotKey == "" {
		writeJSONError(w, http.StatusBadRequest, "slot_key: is required", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "file: is required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read file", nil)
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	receiptID := chi.URLParam(r, "id")
	key := utils.PhotoKey(receiptID, slotKey, fmt.Sprintf("%s-%s", uuid.NewString(), header.Filename))
	url, err := h.Storage.Put(r.Context(), key, contentType, data)
	if err != nil {
		h.fail(w, r, fmt.Errorf("store photo: %w", err))
		return
	}

	photo, err := h.Service.AddPhoto(r.Context(), ActorFrom(r.Context()), receiptID, slotKey, url)
	if err != nil {
		if derr := h.Storage.Delete(context.WithoutCancel(r.Context()), url); derr != nil {
			h.Logger.Warn("failed to remove orphaned photo", zap.String("url", url), zap.Error(derr))
		}
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, photo)
}

// Confirm handles POST /receipts/{id}/confirm. A discrepancy is reported
// with 200 and discrepancy=true.
func (h *ReceiptHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Confirm(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, result)
}

// PutawayReady handles POST /receipts/{id}/putaway-ready
func (h *ReceiptHandler) PutawayReady(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.Service.MarkPutawayReady(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, receipt)
}

// ListEvents handles GET /receipts/{id}/events
func (h *ReceiptHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.ListEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if events == nil {
		writeOK(w, http.StatusOK, []any{})
		return
	}
	writeOK(w, http.StatusOK, events)
}
