package utils

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"wmsinbound/models"
)

//go:embed templates/receipt_slip.html
var receiptSlipTemplate string

// NewReceiptSlipData totals the plan and the counted lines for printing.
func NewReceiptSlipData(plan *models.InboundPlan, receipt *models.InboundReceipt, lines []models.InboundReceiptLine, printedAt time.Time) models.ReceiptSlipData {
	data := models.ReceiptSlipData{
		Plan:      plan,
		Receipt:   receipt,
		Lines:     lines,
		Date:      "-",
		PrintedAt: printedAt.Format("02-Jan-2006 15:04"),
	}
	if plan != nil {
		if !plan.PlannedDate.IsZero() {
			data.Date = plan.PlannedDate.Format("02-Jan-2006")
		}
		for _, l := range plan.Lines {
			data.TotalExpected += l.ExpectedQty
		}
	}
	for _, l := range lines {
		data.TotalReceived += l.ReceivedTotal()
	}
	return data
}

// RenderReceiptSlipHTML executes the slip template. An empty templatePath
// uses the embedded template.
func RenderReceiptSlipHTML(data models.ReceiptSlipData, templatePath string) ([]byte, error) {
	var (
		tmpl *template.Template
		err  error
	)
	if templatePath != "" {
		tmpl, err = template.ParseFiles(templatePath)
	} else {
		tmpl, err = template.New("receipt_slip").Parse(receiptSlipTemplate)
	}
	if err != nil {
		return nil, fmt.Errorf("parse slip template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render slip: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateReceiptPDF prints the receiving slip with headless Chrome.
func GenerateReceiptPDF(ctx context.Context, data models.ReceiptSlipData, templatePath string) ([]byte, error) {
	html, err := RenderReceiptSlipHTML(data, templatePath)
	if err != nil {
		return nil, err
	}

	tmpHTML := filepath.Join(os.TempDir(), fmt.Sprintf("receipt_%s_%d.html", data.Receipt.ID, time.Now().UnixNano()))
	if err := os.WriteFile(tmpHTML, html, 0o644); err != nil {
		return nil, err
	}
	defer os.Remove(tmpHTML)

	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdfBuf []byte
	err = chromedp.Run(ctx,
		chromedp.Navigate("file://"+tmpHTML),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).  // A4 width
				WithPaperHeight(11.7). // A4 height
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print slip: %w", err)
	}
	return pdfBuf, nil
}
