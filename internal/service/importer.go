package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/statusdigest/internal/document"
	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/extract"
	"github.com/cloo-solutions/statusdigest/internal/telemetry"
	"go.uber.org/zap"
)

// Extractor produces rows from document blocks along the deterministic or
// the model-backed path
type Extractor interface {
	Extract(ctx context.Context, blocks []domain.Block, cwLabel string, category domain.Category, useLLM bool) ([]domain.ExtractedRow, error)
}

// DocumentStore archives uploaded report files
type DocumentStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// KnowledgeReloader refreshes the cached knowledge base
type KnowledgeReloader interface {
	ForceReload(ctx context.Context) (domain.KnowledgeBase, error)
}

// ImportInput is a report file to extract and persist
type ImportInput struct {
	Filename  string
	Data      []byte
	UseLLM    bool
	Force     bool
	CreatedBy string
	// Optional overrides for what the filename says
	CWLabel  string
	Category domain.Category
	Year     int
}

// ImportResult summarizes one import
type ImportResult struct {
	UploadID        string   `json:"upload_id"`
	Filename        string   `json:"filename"`
	CWLabel         string   `json:"cw_label"`
	Category        string   `json:"category"`
	RowsExtracted   int      `json:"rows_extracted"`
	RowsCreated     int      `json:"rows_created"`
	RowsSkipped     int      `json:"rows_skipped"`
	VirtualProjects []string `json:"virtual_projects,omitempty"`
	Skipped         bool     `json:"skipped"`
}

// ImportService stores report uploads, runs extraction and writes project
// history rows
type ImportService struct {
	txRunner  TxRunner
	uploads   UploadRepositoryInterface
	history   HistoryRepositoryInterface
	extractor Extractor
	store     DocumentStore
	reloader  KnowledgeReloader
	uuidGen   UUIDGenerator
	logger    *zap.Logger
	now       func() time.Time
}

// NewImportService creates a new ImportService. store and reloader may be nil.
func NewImportService(
	txRunner TxRunner,
	uploads UploadRepositoryInterface,
	history HistoryRepositoryInterface,
	extractor Extractor,
	store DocumentStore,
	reloader KnowledgeReloader,
	logger *zap.Logger,
) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		txRunner:  txRunner,
		uploads:   uploads,
		history:   history,
		extractor: extractor,
		store:     store,
		reloader:  reloader,
		uuidGen:   &DefaultUUIDGenerator{},
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithUUIDGen replaces the ID generator (for testing)
func (s *ImportService) WithUUIDGen(gen UUIDGenerator) *ImportService {
	s.uuidGen = gen
	return s
}

// StageInput is a report file to register without extracting it yet
type StageInput struct {
	Filename  string
	Data      []byte
	CreatedBy string
}

// Stage registers the upload for data, deduplicated by SHA-256, and archives
// the file when a store is configured. existed reports whether an upload with
// the same content was already known.
func (s *ImportService) Stage(ctx context.Context, input StageInput) (upload *domain.ReportUpload, existed bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ImportService.Stage", telemetry.SpanAttributes{
		Operation: "stage",
	})
	defer span.End()

	meta, err := extract.ParseFilename(input.Filename)
	if err != nil {
		return nil, false, err
	}

	sum := sha256.Sum256(input.Data)
	digest := hex.EncodeToString(sum[:])

	existing, err := s.uploads.GetBySHA256(ctx, digest)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, domain.ErrUploadNotFound) {
		return nil, false, fmt.Errorf("failed to look up upload: %w", err)
	}

	base := filepath.Base(input.Filename)
	key := digest[:2] + "/" + digest + strings.ToLower(filepath.Ext(base))
	contentType := mime.TypeByExtension(filepath.Ext(base))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if s.store != nil {
		location, err := s.store.Put(ctx, key, input.Data, contentType)
		if err != nil {
			span.SetError(err)
			return nil, false, fmt.Errorf("failed to store document: %w", err)
		}
		s.logger.Debug("document stored", zap.String("location", location))
	}

	createdBy := input.CreatedBy
	if createdBy == "" {
		createdBy = "system"
	}
	category := meta.Category
	now := s.now()
	upload = &domain.ReportUpload{
		ID:               s.uuidGen.NewString(),
		OriginalFilename: base,
		StoragePath:      key,
		MimeType:         contentType,
		FileSizeBytes:    int64(len(input.Data)),
		SHA256:           digest,
		Status:           domain.UploadStatusReceived,
		CWLabel:          meta.CWLabel,
		Category:         &category,
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := domain.ValidateReportUpload(upload); err != nil {
		return nil, false, err
	}

	if err := s.uploads.Create(ctx, upload); err != nil {
		if errors.Is(err, domain.ErrUploadAlreadyExists) {
			// Lost a race with a concurrent upload of the same file
			existing, getErr := s.uploads.GetBySHA256(ctx, digest)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, true, nil
		}
		return nil, false, fmt.Errorf("failed to create upload: %w", err)
	}

	span.SetData("upload_id", upload.ID)
	return upload, false, nil
}

// Import stages the file and persists the rows extracted from it
func (s *ImportService) Import(ctx context.Context, input ImportInput) (*ImportResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ImportService.Import", telemetry.SpanAttributes{
		Operation: "import",
	})
	defer span.End()

	meta, err := extract.ResolveMeta(input.Filename, input.CWLabel, string(input.Category))
	if err != nil {
		return nil, err
	}
	if input.Year > 0 {
		meta.Year = input.Year
	}

	upload, _, err := s.Stage(ctx, StageInput{
		Filename:  input.Filename,
		Data:      input.Data,
		CreatedBy: input.CreatedBy,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return s.run(ctx, upload, input.Data, meta, input.UseLLM, input.Force, input.CreatedBy)
}

// ImportUpload extracts a previously staged upload, reading the file back
// from the document store
func (s *ImportService) ImportUpload(ctx context.Context, uploadID string, useLLM, force bool) (*ImportResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ImportService.ImportUpload", telemetry.SpanAttributes{
		UploadID:  uploadID,
		Operation: "import",
	})
	defer span.End()

	if s.store == nil {
		return nil, domain.ErrStorageNotConfigured
	}

	upload, err := s.uploads.GetByID(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	meta, err := extract.ParseFilename(upload.OriginalFilename)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Get(ctx, upload.StoragePath)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to read staged document: %w", err)
	}

	return s.run(ctx, upload, data, meta, useLLM, force, upload.CreatedBy)
}

func (s *ImportService) run(
	ctx context.Context,
	upload *domain.ReportUpload,
	data []byte,
	meta extract.FileMeta,
	useLLM, force bool,
	createdBy string,
) (*ImportResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ImportService.run", telemetry.SpanAttributes{
		UploadID:  upload.ID,
		CWLabel:   meta.CWLabel,
		Category:  string(meta.Category),
		Operation: "extract",
	})
	defer span.End()

	result := &ImportResult{
		UploadID: upload.ID,
		Filename: upload.OriginalFilename,
		CWLabel:  meta.CWLabel,
		Category: string(meta.Category),
	}
	log := s.logger.With(
		zap.String("upload_id", upload.ID),
		zap.String("file", upload.OriginalFilename),
		zap.String("cw", meta.CWLabel),
	)

	if !force {
		existing, err := s.history.CountByUpload(ctx, upload.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count history rows: %w", err)
		}
		if existing > 0 {
			log.Info("upload already imported, skipping", zap.Int("rows", existing))
			result.Skipped = true
			return result, nil
		}
	}

	blocks, err := document.Extract(upload.OriginalFilename, data)
	if err != nil {
		s.markFailed(ctx, upload.ID, err)
		return nil, err
	}

	rows, err := s.extractor.Extract(ctx, blocks, meta.CWLabel, meta.Category, useLLM)
	if err != nil {
		span.SetError(err)
		s.markFailed(ctx, upload.ID, err)
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	result.RowsExtracted = len(rows)

	if createdBy == "" {
		createdBy = "system"
	}
	logDate := meta.LogDate()

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if force {
			deleted, err := repos.History().DeleteByUpload(ctx, upload.ID)
			if err != nil {
				return fmt.Errorf("failed to clear previous rows: %w", err)
			}
			if deleted > 0 {
				log.Info("re-importing upload", zap.Int("replaced_rows", deleted))
			}
		}

		codes := make(map[string]string)
		for _, row := range rows {
			name := strings.TrimSpace(row.ProjectName)
			if name == "" {
				name = domain.UnknownProjectName
			}

			code, ok := codes[strings.ToLower(name)]
			if !ok {
				resolved, virtual, err := s.resolveCode(ctx, repos.Projects(), name, logDate, createdBy)
				if err != nil {
					return err
				}
				code = resolved
				codes[strings.ToLower(name)] = code
				if virtual {
					result.VirtualProjects = append(result.VirtualProjects, code)
				}
			}

			exists, err := repos.History().ExistsFor(ctx, code, logDate, upload.ID)
			if err != nil {
				return fmt.Errorf("failed to check history: %w", err)
			}
			if exists {
				result.RowsSkipped++
				continue
			}

			h := s.historyRow(row, name, code, meta, logDate, upload.ID, createdBy)
			if err := domain.ValidateProjectHistory(h); err != nil {
				return err
			}
			created, err := repos.History().Create(ctx, h)
			if err != nil {
				return fmt.Errorf("failed to create history row: %w", err)
			}
			if created {
				result.RowsCreated++
			} else {
				result.RowsSkipped++
			}
		}

		return repos.Uploads().UpdateStatus(ctx, upload.ID, domain.UploadStatusParsed)
	})
	if err != nil {
		span.SetError(err)
		s.markFailed(ctx, upload.ID, err)
		return nil, err
	}

	if len(result.VirtualProjects) > 0 && s.reloader != nil {
		if _, err := s.reloader.ForceReload(ctx); err != nil {
			log.Warn("failed to reload knowledge base after creating projects", zap.Error(err))
		}
	}

	log.Info("report imported",
		zap.Int("rows_extracted", result.RowsExtracted),
		zap.Int("rows_created", result.RowsCreated),
		zap.Int("rows_skipped", result.RowsSkipped),
		zap.Int("virtual_projects", len(result.VirtualProjects)),
	)
	return result, nil
}

// resolveCode maps a project name to its registry code, creating a virtual
// project when the name is unknown
func (s *ImportService) resolveCode(
	ctx context.Context,
	projects ProjectRepositoryInterface,
	name string,
	logDate time.Time,
	createdBy string,
) (string, bool, error) {
	code, err := projects.FindCodeByName(ctx, name)
	if err == nil {
		return code, false, nil
	}
	if !errors.Is(err, domain.ErrProjectNotFound) {
		return "", false, fmt.Errorf("failed to resolve project %q: %w", name, err)
	}

	code = domain.VirtualProjectCode(name, logDate)
	p := domain.NewProject(code, name, "", s.now())
	p.CreatedBy = createdBy
	created, err := projects.CreateIfMissing(ctx, p)
	if err != nil {
		return "", false, fmt.Errorf("failed to create project %q: %w", name, err)
	}
	if created {
		s.logger.Info("created virtual project", zap.String("code", code), zap.String("name", name))
	}
	return code, created, nil
}

func (s *ImportService) historyRow(
	row domain.ExtractedRow,
	name, code string,
	meta extract.FileMeta,
	logDate time.Time,
	uploadID, createdBy string,
) *domain.ProjectHistory {
	summary := truncateRunes(row.Summary, domain.MaxHistorySummaryChars)

	title := row.Title
	if title == nil || strings.TrimSpace(*title) == "" {
		title = domain.StringPtr(name + " - " + meta.CWLabel)
	}
	source := row.SourceText
	if source == nil || *source == "" {
		source = domain.StringPtr(summary)
	}
	category := row.Category
	if category == nil || !category.IsValid() {
		c := meta.Category
		category = &c
	}

	now := s.now()
	return &domain.ProjectHistory{
		ID:             s.uuidGen.NewString(),
		ProjectCode:    code,
		ProjectName:    name,
		Category:       category,
		EntryType:      domain.EntryTypeReport,
		LogDate:        logDate,
		CWLabel:        meta.CWLabel,
		Title:          title,
		Summary:        summary,
		NextActions:    row.NextActions,
		Owner:          row.Owner,
		SourceText:     source,
		SourceUploadID: uploadID,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// markFailed records the failure on the upload. It runs outside the import
// transaction so the status survives a rollback.
func (s *ImportService) markFailed(ctx context.Context, uploadID string, cause error) {
	telemetry.CaptureError(ctx, cause)
	if err := s.uploads.UpdateStatus(ctx, uploadID, domain.UploadStatusFailed); err != nil {
		s.logger.Error("failed to mark upload failed", zap.String("upload_id", uploadID), zap.Error(err))
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
