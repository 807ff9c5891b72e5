package service

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/storage"
)

type exportUserStub struct{ user *models.User }

func (s *exportUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.user, nil
}

type exportCorrectionStub struct {
	corrections []models.Correction
	lastFilter  models.CorrectionFilter
}

func (s *exportCorrectionStub) List(ctx context.Context, filter models.CorrectionFilter) ([]models.Correction, error) {
	s.lastFilter = filter
	return s.corrections, nil
}

func newExportService(t *testing.T, corrections []models.Correction) (*ExportService, *exportCorrectionStub) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	users := &exportUserStub{user: &models.User{ID: "user-1", DisplayName: "Alex"}}
	lister := &exportCorrectionStub{corrections: corrections}
	return NewExportService(users, lister, store, signer, nil), lister
}

func memberClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}
}

func TestExportCSVRoundTrip(t *testing.T) {
	reason := "box says 2008"
	newValue := "2008-06-26"
	svc, lister := newExportService(t, []models.Correction{{
		ID:          "corr-1",
		GameTitle:   "Lost Planet",
		Field:       models.FieldReleaseDate,
		NewValue:    &newValue,
		Reason:      reason,
		Status:      models.CorrectionStatusApproved,
		SubmittedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}})

	resp, err := svc.Export(context.Background(), "user-1", "csv", memberClaims())
	require.NoError(t, err)
	require.Equal(t, "csv", resp.Format)
	require.Equal(t, "user-1", lister.lastFilter.SubmitterID)

	parsed, err := url.Parse(resp.URL)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)

	file, contentType, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	defer file.Close()
	require.Equal(t, "text/csv", contentType)

	body, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Contains(t, string(body), "Lost Planet")
	require.Contains(t, string(body), "2008-06-26")
}

func TestExportRejectsOtherUsers(t *testing.T) {
	svc, _ := newExportService(t, nil)
	_, err := svc.Export(context.Background(), "user-1", "csv", &models.JWTClaims{UserID: "user-2", Role: models.RoleReviewer})
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestExportAdminMayExportAnyone(t *testing.T) {
	svc, _ := newExportService(t, nil)
	_, err := svc.Export(context.Background(), "user-1", "csv", &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportService(t, nil)
	_, err := svc.Export(context.Background(), "user-1", "xlsx", memberClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportPDFContentType(t *testing.T) {
	svc, _ := newExportService(t, nil)
	resp, err := svc.Export(context.Background(), "user-1", "pdf", memberClaims())
	require.NoError(t, err)

	parsed, err := url.Parse(resp.URL)
	require.NoError(t, err)
	file, contentType, err := svc.ResolveDownload(parsed.Query().Get("token"))
	require.NoError(t, err)
	defer file.Close()
	require.Equal(t, "application/pdf", contentType)
}

func TestResolveDownloadRejectsTamperedToken(t *testing.T) {
	svc, _ := newExportService(t, nil)
	resp, err := svc.Export(context.Background(), "user-1", "csv", memberClaims())
	require.NoError(t, err)

	parsed, _ := url.Parse(resp.URL)
	token := parsed.Query().Get("token")
	tampered := strings.TrimSuffix(token, token[len(token)-2:]) + "xx"

	_, _, err = svc.ResolveDownload(tampered)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
