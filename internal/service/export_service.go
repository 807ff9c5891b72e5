package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/export"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/storage"
)

type exportUserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type exportCorrectionLister interface {
	List(ctx context.Context, filter models.CorrectionFilter) ([]models.Correction, error)
}

// ExportService renders a member's own data (profile plus every correction
// they submitted) to CSV or PDF and hands out signed download links.
type ExportService struct {
	users       exportUserFinder
	corrections exportCorrectionLister
	storage     *storage.LocalStorage
	signer      *storage.SignedURLSigner
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(users exportUserFinder, corrections exportCorrectionLister, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		users:       users,
		corrections: corrections,
		storage:     store,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

var exportHeaders = []string{"game", "field", "old value", "new value", "status", "reason", "submitted at", "reviewed at"}

// Export renders and stores the file, returning a signed download URL.
// Members export only their own data; admins may export anyone's.
func (s *ExportService) Export(ctx context.Context, userID, format string, actor *models.JWTClaims) (*dto.ExportResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.UserID != userID && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	corrections, err := s.corrections.List(ctx, models.CorrectionFilter{SubmitterID: userID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load corrections")
	}

	dataset := buildExportDataset(corrections)
	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Contribution history for %s", user.DisplayName))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	relPath := fmt.Sprintf("%s/%s.%s", userID, exportID, format)
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &dto.ExportResponse{
		Format:    format,
		URL:       "/api/v1/exports/download?token=" + token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// ResolveDownload validates a signed token and opens the referenced file.
func (s *ExportService) ResolveDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	contentType := "text/csv"
	if strings.HasSuffix(relPath, ".pdf") {
		contentType = "application/pdf"
	}
	return file, contentType, nil
}

// StartCleanup prunes old export files periodically until ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if deleted, err := s.storage.CleanupOlderThan(ttl); err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
				} else if len(deleted) > 0 {
					s.logger.Sugar().Infow("export cleanup", "removed", len(deleted))
				}
			}
		}
	}()
}

func buildExportDataset(corrections []models.Correction) export.Dataset {
	rows := make([]map[string]string, 0, len(corrections))
	for _, c := range corrections {
		row := map[string]string{
			"game":         c.GameTitle,
			"field":        string(c.Field),
			"old value":    derefOrEmpty(c.OldValue),
			"new value":    derefOrEmpty(c.NewValue),
			"status":       string(c.Status),
			"reason":       c.Reason,
			"submitted at": c.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if c.ReviewedAt != nil {
			row["reviewed at"] = c.ReviewedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

func derefOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
