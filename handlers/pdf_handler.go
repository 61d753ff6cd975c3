package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"wmsinbound/inbound"
	"wmsinbound/models"
	"wmsinbound/utils"
)

// PDFRenderer turns slip data into PDF bytes.
type PDFRenderer func(ctx context.Context, data models.ReceiptSlipData, templatePath string) ([]byte, error)

type PDFHandler struct {
	Service      *inbound.Service
	Render       PDFRenderer // defaults to utils.GenerateReceiptPDF
	TemplatePath string
	Logger       *zap.Logger
}

// ReceiptSlip handles GET /receipts/{id}/slip.pdf
func (h *PDFHandler) ReceiptSlip(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Service.GetReceipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, errorStatus(err), err.Error(), nil)
		return
	}

	render := h.Render
	if render == nil {
		render = utils.GenerateReceiptPDF
	}
	data := utils.NewReceiptSlipData(detail.Plan, detail.Receipt, detail.Lines, time.Now())
	pdfBytes, err := render(r.Context(), data, h.TemplatePath)
	if err != nil {
		h.Logger.Error("failed to generate receipt slip",
			zap.String("receipt_id", detail.Receipt.ID), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to generate PDF", nil)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="receipt_%s.pdf"`, detail.Receipt.ReceiptNo))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdfBytes)
}
