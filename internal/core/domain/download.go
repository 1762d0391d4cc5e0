package domain

import (
	"fmt"
	"strings"
)

// Format is one output representation of a downloaded invoice.
type Format string

// Supported formats.
const (
	// FormatRaw is the invoice document exactly as fetched.
	FormatRaw Format = "raw"
	// FormatSummary is the metadata record as indented JSON.
	FormatSummary Format = "summary"
	// FormatRendered is a human-readable PDF produced by the renderer.
	FormatRendered Format = "rendered"
)

// Extension returns the file extension, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatRaw:
		return "xml"
	case FormatSummary:
		return "json"
	case FormatRendered:
		return "pdf"
	default:
		return ""
	}
}

// DownloadJob is created per download request and discarded on completion.
type DownloadJob struct {
	ID                string
	SelectedIndices   []int
	Formats           []Format
	TargetDir         string
	PerIdentitySubdir bool
	CustomFilenames   bool
}

// Wants reports whether the job requested format f.
func (j DownloadJob) Wants(f Format) bool {
	for _, have := range j.Formats {
		if have == f {
			return true
		}
	}
	return false
}

// DownloadRequest is the browser's download body.
type DownloadRequest struct {
	OutputDir       string `json:"outputDir"`
	SelectedIndices []int  `json:"selectedIndices,omitempty"`
	CustomFilenames bool   `json:"customFilenames"`
	ExportXML       bool   `json:"exportXml"`
	ExportJSON      bool   `json:"exportJson"`
	ExportPDF       bool   `json:"exportPdf"`
	SeparateByNIP   bool   `json:"separateByNip"`
}

// Job converts the request into a DownloadJob.
func (r DownloadRequest) Job() DownloadJob {
	job := DownloadJob{
		SelectedIndices:   r.SelectedIndices,
		TargetDir:         r.OutputDir,
		PerIdentitySubdir: r.SeparateByNIP,
		CustomFilenames:   r.CustomFilenames,
	}
	if r.ExportXML {
		job.Formats = append(job.Formats, FormatRaw)
	}
	if r.ExportJSON {
		job.Formats = append(job.Formats, FormatSummary)
	}
	if r.ExportPDF {
		job.Formats = append(job.Formats, FormatRendered)
	}
	return job
}

// Preferences returns the request as the preference keys remembered for the next session.
func (r DownloadRequest) Preferences() map[string]any {
	return map[string]any{
		"outputDir":       r.OutputDir,
		"customFilenames": r.CustomFilenames,
		"exportXml":       r.ExportXML,
		"exportJson":      r.ExportJSON,
		"exportPdf":       r.ExportPDF,
		"separateByNip":   r.SeparateByNIP,
	}
}

// DownloadResult summarises a finished download job.
type DownloadResult struct {
	JobID string `json:"job"`
	Count int    `json:"count"`
	Dir   string `json:"dir"`
}

// ExistingCheck locates the files a download with these options would produce.
type ExistingCheck struct {
	OutputDir       string `json:"outputDir"`
	CustomFilenames bool   `json:"customFilenames"`
	SeparateByNIP   bool   `json:"separateByNip"`
}

// ExistingFiles reports which formats of one item already exist on disk.
type ExistingFiles struct {
	XML  bool `json:"xml"`
	PDF  bool `json:"pdf"`
	JSON bool `json:"json"`
}

// FileBase returns the file name, without extension, used for an invoice.
// The default is the KSeF number; custom names combine issue date, seller
// NIP and the seller's invoice number.
func FileBase(item InvoiceSummary, custom bool) string {
	if !custom {
		return SanitizeFilename(item.KSeFNumber)
	}
	parts := []string{item.IssueDate, item.SellerNIP, item.InvoiceNumber}
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return SanitizeFilename(item.KSeFNumber)
	}
	return SanitizeFilename(strings.Join(kept, "_"))
}

// FileBases returns FileBase for every item of a result set. Items whose
// base names collide get their KSeF number appended, so no two items of the
// set share an output file.
func FileBases(items []InvoiceSummary, custom bool) []string {
	bases := make([]string, len(items))
	counts := make(map[string]int, len(items))
	for i, item := range items {
		bases[i] = FileBase(item, custom)
		counts[bases[i]]++
	}

	used := make(map[string]bool, len(items))
	for i, item := range items {
		base := bases[i]
		if counts[base] > 1 && base != SanitizeFilename(item.KSeFNumber) {
			base += "_" + SanitizeFilename(item.KSeFNumber)
		}
		// The same KSeF number twice in one set is still one name per item.
		unique := base
		for n := 2; used[unique]; n++ {
			unique = fmt.Sprintf("%s-%d", base, n)
		}
		used[unique] = true
		bases[i] = unique
	}
	return bases
}

// SanitizeFilename replaces anything outside [A-Za-z0-9._-] with '-'.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "invoice"
	}
	return out
}
