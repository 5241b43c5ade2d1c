// Package receipt renders donation receipts as self-contained HTML documents.
// The same artifact is emailed to the donor and served from the receipt
// endpoint.
package receipt

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"donation-gateway/internal/donation/models"
)

//go:embed receipt.html.tmpl
var receiptTemplate string

// Renderer produces the receipt artifact for a completed donation.
type Renderer interface {
	Render(donation *models.Donation) (string, error)
}

// HTMLRenderer renders receipts from the embedded template and optionally
// archives a copy on disk.
type HTMLRenderer struct {
	tmpl *template.Template
	// dir receives archived copies; empty disables archiving.
	dir          string
	organization string
}

// NewHTMLRenderer constructs a renderer. dir may be empty to skip archiving.
func NewHTMLRenderer(dir, organization string) (*HTMLRenderer, error) {
	tmpl, err := template.New("receipt").Parse(receiptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse receipt template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl, dir: dir, organization: organization}, nil
}

type receiptData struct {
	Organization string
	Donation     *models.Donation
	Amount       string
	Date         string
	FamilySize   int
}

// Render produces the receipt HTML and archives a copy when a directory is
// configured. Archive failures are returned; the caller decides whether the
// rendered HTML is still usable.
func (r *HTMLRenderer) Render(donation *models.Donation) (string, error) {
	var buf strings.Builder
	data := receiptData{
		Organization: r.organization,
		Donation:     donation,
		Amount:       fmt.Sprintf("%.2f", donation.Amount),
		Date:         donation.UpdatedAt.Format("2 January 2006"),
		FamilySize:   len(donation.FamilyMembers),
	}
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	html := buf.String()

	if r.dir != "" {
		name := fmt.Sprintf("receipt-%s-%d.html", donation.PaymentReference, time.Now().Unix())
		if err := os.WriteFile(filepath.Join(r.dir, name), []byte(html), 0o644); err != nil {
			return html, fmt.Errorf("archive receipt: %w", err)
		}
	}
	return html, nil
}
