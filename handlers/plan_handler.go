package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"wmsinbound/inbound"
	"wmsinbound/models"
)

const dateLayout = "2006-01-02"

type PlanHandler struct {
	Service *inbound.Service
	Logger  *zap.Logger
}

type planLineRequest struct {
	ProductID   string  `json:"product_id"`
	ExpectedQty int64   `json:"expected_qty"`
	BoxCount    *int64  `json:"box_count"`
	PalletID    *string `json:"pallet_id"`
	MfgDate     *string `json:"mfg_date"`
	ExpiryDate  *string `json:"expiry_date"`
	Notes       *string `json:"notes"`
}

type planRequest struct {
	OrganizationID string            `json:"organization_id"`
	WarehouseID    string            `json:"warehouse_id"`
	ClientID       string            `json:"client_id"`
	PlannedDate    string            `json:"planned_date"`
	Manager        *string           `json:"manager"`
	Notes          *string           `json:"notes"`
	Lines          []planLineRequest `json:"lines"`
}

func parseDate(field, v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, &inbound.ValidationError{Field: field, Message: "must be a YYYY-MM-DD date"}
	}
	return t, nil
}

func parseOptionalDate(field string, v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	t, err := parseDate(field, *v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (req planRequest) toInput() (inbound.PlanInput, error) {
	in := inbound.PlanInput{
		OrganizationID: req.OrganizationID,
		WarehouseID:    req.WarehouseID,
		ClientID:       req.ClientID,
		Manager:        req.Manager,
		Notes:          req.Notes,
	}
	if req.PlannedDate != "" {
		d, err := parseDate("planned_date", req.PlannedDate)
		if err != nil {
			return in, err
		}
		in.PlannedDate = d
	}
	for i, l := range req.Lines {
		mfg, err := parseOptionalDate(fmt.Sprintf("lines[%d].mfg_date", i), l.MfgDate)
		if err != nil {
			return in, err
		}
		exp, err := parseOptionalDate(fmt.Sprintf("lines[%d].expiry_date", i), l.ExpiryDate)
		if err != nil {
			return in, err
		}
		in.Lines = append(in.Lines, inbound.PlanLineInput{
			ProductID:   l.ProductID,
			ExpectedQty: l.ExpectedQty,
			BoxCount:    l.BoxCount,
			PalletID:    l.PalletID,
			MfgDate:     mfg,
			ExpiryDate:  exp,
			Notes:       l.Notes,
		})
	}
	return in, nil
}

func (h *PlanHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("plan request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSONError(w, status, err.Error(), errorData(err))
}

func (h *PlanHandler) decode(w http.ResponseWriter, r *http.Request) (inbound.PlanInput, bool) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return inbound.PlanInput{}, false
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, r, err)
		return inbound.PlanInput{}, false
	}
	return in, true
}

// CreatePlan handles POST /plans
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.Service.CreatePlan(r.Context(), ActorFrom(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, created)
}

// ListPlans handles GET /plans
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.PlanFilter{
		OrganizationID: q.Get("organization_id"),
		WarehouseID:    q.Get("warehouse_id"),
		Status:         models.ReceiptStatus(q.Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeJSONError(w, http.StatusBadRequest, "unknown status "+string(filter.Status), nil)
		return
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		filter.Limit = limit
	}

	plans, err := h.Service.ListPlans(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if plans == nil {
		plans = []*models.InboundPlan{}
	}
	writeOK(w, http.StatusOK, plans)
}

// GetPlan handles GET /plans/{id}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Service.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, plan)
}

// UpdatePlan handles PUT /plans/{id}
func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	plan, err := h.Service.UpdatePlan(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, plan)
}

// DeletePlan handles DELETE /plans/{id}
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeletePlan(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "plan deleted"})
}
