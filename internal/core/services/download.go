package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// partialPrefix names the per-job working directory created inside the
// target directory, so staged files move into place with a same-device rename.
const partialPrefix = ".partial-"

// stalePartialAge is how old a working directory must be before a new job
// treats it as left behind by a crashed run.
const stalePartialAge = time.Hour

// itemError ties a job failure to the position it happened at.
type itemError struct {
	index int
	err   error
}

func (e *itemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.index, e.err)
}

func (e *itemError) Unwrap() error {
	return e.err
}

// stagedFile is a fully written file waiting in the working directory.
type stagedFile struct {
	name string
	data []byte
}

// Download writes the selected items in the requested formats. Every file is
// written to a private working directory first and renamed into the target
// directory only once the whole item succeeded. The first failing item
// aborts the job; the failure is returned and published as an error event.
func (o *Orchestrator) Download(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	job := req.Job()
	if len(job.Formats) == 0 {
		return nil, domain.NewValidationError("formats", "select at least one export format")
	}
	if job.Wants(domain.FormatRendered) && o.renderer == nil {
		return nil, domain.ErrRendererUnavailable
	}

	if !o.gate.TryLock() {
		return nil, domain.ErrJobRunning
	}
	defer o.gate.Unlock()

	job.ID = o.newID()
	result, err := o.runDownload(ctx, job)
	if err != nil {
		payload := domain.JobError{Message: err.Error(), Job: job.ID}
		var ie *itemError
		if errors.As(err, &ie) {
			payload.Index = &ie.index
		}
		o.events.Publish(domain.EventError, payload)
		return nil, fmt.Errorf("download: %w", err)
	}

	if err := o.prefs.Merge(req.Preferences()); err != nil {
		logger.Warn("Failed to remember download preferences: %v", err)
	}
	return result, nil
}

func (o *Orchestrator) runDownload(ctx context.Context, job domain.DownloadJob) (*domain.DownloadResult, error) {
	profile, items := o.snapshot()
	if profile.Name == "" {
		return nil, domain.ErrAuthRequired
	}

	selected, err := selectIndices(items, job.SelectedIndices)
	if err != nil {
		return nil, err
	}

	dir, err := o.outputDir(job.TargetDir, job.PerIdentitySubdir, profile.Identity())
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	removeStalePartials(dir, time.Now().Add(-stalePartialAge))

	work, err := os.MkdirTemp(dir, partialPrefix)
	if err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(work); err != nil {
			logger.Warn("Failed to remove working directory %s: %v", work, err)
		}
	}()

	session, err := o.session(ctx, profile)
	if err != nil {
		return nil, err
	}

	bases := domain.FileBases(items, job.CustomFilenames)

	logger.Section("Download")
	logger.Info("Downloading %d invoices to %s (job %s)", len(selected), dir, job.ID)

	for pos, idx := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := o.downloadItem(ctx, session, job, work, dir, idx, items[idx], bases[idx], pos+1, len(selected)); err != nil {
			return nil, &itemError{index: idx, err: err}
		}
	}

	o.events.Publish(domain.EventJobDone, domain.JobDone{Count: len(selected), Job: job.ID, Dir: dir})
	return &domain.DownloadResult{JobID: job.ID, Count: len(selected), Dir: dir}, nil
}

func (o *Orchestrator) downloadItem(
	ctx context.Context,
	session driven.Session,
	job domain.DownloadJob,
	work, dir string,
	index int,
	item domain.InvoiceSummary,
	base string,
	position, total int,
) error {
	name := item.InvoiceNumber
	if name == "" {
		name = item.KSeFNumber
	}
	o.events.Publish(domain.EventItemStarted, domain.ItemStarted{
		Index:    index,
		Name:     name,
		Position: position,
		Total:    total,
	})

	raw, err := withBackoff(ctx, o.sleep, "fetch invoice "+item.KSeFNumber, func() ([]byte, error) {
		return o.invoices.FetchInvoice(ctx, session, item.KSeFNumber)
	})
	if err != nil {
		return fmt.Errorf("fetch invoice %s: %w", item.KSeFNumber, err)
	}

	var staged []stagedFile

	if job.Wants(domain.FormatRaw) {
		staged = append(staged, stagedFile{name: base + "." + domain.FormatRaw.Extension(), data: raw})
	}
	if job.Wants(domain.FormatSummary) {
		data, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		staged = append(staged, stagedFile{name: base + "." + domain.FormatSummary.Extension(), data: data})
	}
	for _, f := range staged {
		if err := os.WriteFile(filepath.Join(work, f.name), f.data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	var pdfName string
	if job.Wants(domain.FormatRendered) {
		if len(staged) > 0 {
			o.events.Publish(domain.EventItemPartiallyDone, domain.ItemFiles{Index: index, File: staged[0].name})
		}
		pdf, err := o.renderer.Render(ctx, raw, item)
		if err != nil {
			return fmt.Errorf("render %s: %w", item.KSeFNumber, err)
		}
		pdfName = base + "." + domain.FormatRendered.Extension()
		if err := os.WriteFile(filepath.Join(work, pdfName), pdf, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", pdfName, err)
		}
		staged = append(staged, stagedFile{name: pdfName, data: pdf})
	}

	for _, f := range staged {
		if err := os.Rename(filepath.Join(work, f.name), filepath.Join(dir, f.name)); err != nil {
			return fmt.Errorf("move %s into place: %w", f.name, err)
		}
	}

	o.mirror(ctx, session.Identity, staged)

	done := domain.ItemFiles{Index: index, File: filepath.Join(dir, staged[0].name)}
	if pdfName != "" {
		done.PDF = filepath.Join(dir, pdfName)
	}
	o.events.Publish(domain.EventItemDone, done)
	return nil
}

// mirror copies finished files to every configured mirror. Failures are
// logged and never fail the item.
func (o *Orchestrator) mirror(ctx context.Context, identity domain.Identity, files []stagedFile) {
	for _, m := range o.mirrors {
		for _, f := range files {
			if err := m.Store(ctx, identity, f.name, f.data); err != nil {
				logger.Warn("Mirror %s failed for %s: %v", m.Name(), f.name, err)
				continue
			}
			logger.Debug("Mirrored %s to %s", f.name, m.Name())
		}
	}
}

// CheckExisting reports, per current item, which output files a download
// with the same options would find already present.
func (o *Orchestrator) CheckExisting(check domain.ExistingCheck) ([]domain.ExistingFiles, error) {
	profile, items := o.snapshot()
	out := make([]domain.ExistingFiles, len(items))
	if len(items) == 0 {
		return out, nil
	}

	dir, err := o.outputDir(check.OutputDir, check.SeparateByNIP, profile.Identity())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return out, nil
		}
		return nil, err
	}

	for i, name := range domain.FileBases(items, check.CustomFilenames) {
		base := filepath.Join(dir, name)
		out[i] = domain.ExistingFiles{
			XML:  fileExists(base + "." + domain.FormatRaw.Extension()),
			PDF:  fileExists(base + "." + domain.FormatRendered.Extension()),
			JSON: fileExists(base + "." + domain.FormatSummary.Extension()),
		}
	}
	return out, nil
}

// outputDir resolves the effective target directory: dir or the configured
// default, with "~" expanded, optionally suffixed with the identity's NIP.
func (o *Orchestrator) outputDir(dir string, perIdentity bool, identity domain.Identity) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = o.defaultDir
	}
	if dir == "" {
		return "", domain.NewValidationError("outputDir", "is required")
	}
	dir, err := ExpandHome(dir)
	if err != nil {
		return "", err
	}
	if perIdentity && identity.NIP != "" {
		dir = filepath.Join(dir, identity.NIP)
	}
	return filepath.Clean(dir), nil
}

// selectIndices returns the positions to download in ascending order.
// An empty selection means every item.
func selectIndices(items []domain.InvoiceSummary, selected []int) ([]int, error) {
	if len(items) == 0 {
		return nil, domain.ErrNoResults
	}
	if len(selected) == 0 {
		all := make([]int, len(items))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	seen := make(map[int]bool, len(selected))
	out := make([]int, 0, len(selected))
	for _, idx := range selected {
		if idx < 0 || idx >= len(items) {
			return nil, fmt.Errorf("%w: %d", domain.ErrIndexOutOfRange, idx)
		}
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// removeStalePartials deletes working directories in dir last modified
// before cutoff.
func removeStalePartials(dir string, cutoff time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("Failed to scan %s for stale working directories: %v", dir, err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), partialPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("Failed to remove stale working directory %s: %v", path, err)
			continue
		}
		logger.Debug("Removed stale working directory %s", path)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
