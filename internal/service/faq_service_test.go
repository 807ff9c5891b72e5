package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
)

type faqStub struct {
	faqs          []models.FAQ
	created       *models.FAQ
	deletedID     string
	publishedOnly bool
}

func (f *faqStub) FindByID(_ context.Context, id string) (*models.FAQ, error) {
	for i := range f.faqs {
		if f.faqs[i].ID == id {
			return &f.faqs[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *faqStub) List(_ context.Context, publishedOnly bool) ([]models.FAQ, error) {
	f.publishedOnly = publishedOnly
	return f.faqs, nil
}

func (f *faqStub) Create(_ context.Context, faq *models.FAQ) error {
	f.created = faq
	return nil
}

func (f *faqStub) Update(_ context.Context, faq *models.FAQ) error { return nil }

func (f *faqStub) Delete(_ context.Context, id string) error {
	f.deletedID = id
	return nil
}

func TestFAQListHidesDraftsFromNonAdmins(t *testing.T) {
	store := &faqStub{}
	svc := NewFAQService(store, nil)

	_, err := svc.List(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, store.publishedOnly)

	_, err = svc.List(context.Background(), &models.JWTClaims{UserID: "rev-1", Role: models.RoleReviewer})
	require.NoError(t, err)
	assert.True(t, store.publishedOnly)

	_, err = svc.List(context.Background(), &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, store.publishedOnly)
}

func TestFAQCreateRequiresAdmin(t *testing.T) {
	svc := NewFAQService(&faqStub{}, nil)

	req := dto.UpsertFAQRequest{Question: "Does it work offline?", Answer: "Yes."}
	_, err := svc.Create(context.Background(), req, &models.JWTClaims{UserID: "rev-1", Role: models.RoleReviewer})
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), req, nil)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestFAQCreateTrimsAndStores(t *testing.T) {
	store := &faqStub{}
	svc := NewFAQService(store, nil)

	faq, err := svc.Create(context.Background(), dto.UpsertFAQRequest{
		Question:  "  How do I install?  ",
		Answer:    "Run the installer.",
		Category:  "setup",
		Published: true,
	}, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "How do I install?", faq.Question)
	assert.NotNil(t, store.created)
	assert.True(t, store.created.Published)
}

func TestFAQCreateRejectsBlankQuestion(t *testing.T) {
	svc := NewFAQService(&faqStub{}, nil)

	_, err := svc.Create(context.Background(), dto.UpsertFAQRequest{Question: "   ", Answer: "x"},
		&models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFAQDeleteUnknownIDReturnsNotFound(t *testing.T) {
	store := &faqStub{faqs: []models.FAQ{{ID: "faq-1"}}}
	svc := NewFAQService(store, nil)
	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	err := svc.Delete(context.Background(), "faq-missing", admin)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "faq-1", admin))
	assert.Equal(t, "faq-1", store.deletedID)
}
