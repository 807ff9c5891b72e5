package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
)

type gameStoreStub struct {
	bySlug     map[string]*models.Game
	updated    *models.Game
	published  []string
	publishErr error
}

func newGameStoreStub(games ...*models.Game) *gameStoreStub {
	stub := &gameStoreStub{bySlug: map[string]*models.Game{}}
	for _, g := range games {
		stub.bySlug[g.Slug] = g
	}
	return stub
}

func (s *gameStoreStub) FindByID(ctx context.Context, id string) (*models.Game, error) {
	for _, g := range s.bySlug {
		if g.ID == id {
			copied := *g
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *gameStoreStub) FindBySlug(ctx context.Context, slug string) (*models.Game, error) {
	if g, ok := s.bySlug[slug]; ok {
		copied := *g
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *gameStoreStub) Create(ctx context.Context, game *models.Game) error {
	game.ID = "game-new"
	s.bySlug[game.Slug] = game
	return nil
}

func (s *gameStoreStub) Update(ctx context.Context, game *models.Game) error {
	s.updated = game
	s.bySlug[game.Slug] = game
	return nil
}

func (s *gameStoreStub) Publish(ctx context.Context, id, publishedBy string, at time.Time) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	s.published = append(s.published, id)
	return nil
}

func (s *gameStoreStub) List(ctx context.Context, filter models.GameFilter) ([]models.Game, int, error) {
	out := make([]models.Game, 0, len(s.bySlug))
	for _, g := range s.bySlug {
		if filter.Published != nil && g.Published != *filter.Published {
			continue
		}
		out = append(out, *g)
	}
	return out, len(out), nil
}

func (s *gameStoreStub) Counts(ctx context.Context) (int, int, error) { return len(s.bySlug), 0, nil }

func (s *gameStoreStub) Delete(ctx context.Context, id string) error { return nil }

type auditLoggerStub struct{ logs []models.AuditLog }

func (a *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, *log)
	return nil
}

func draftGame() *models.Game {
	return &models.Game{ID: "game-1", Slug: "lost-planet", Title: "Lost Planet"}
}

func admin() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Email: "ops@example.com"}
}

func TestGamePublishRequiresCompleteMetadata(t *testing.T) {
	store := newGameStoreStub(draftGame())
	audit := &auditLoggerStub{}
	svc := NewGameService(store, audit, nil, nil)

	_, err := svc.Publish(context.Background(), "lost-planet", admin(), "", "")
	require.Error(t, err)
	fromErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, fromErr.Code)
	require.Contains(t, fromErr.Message, "releaseDate")
	require.Contains(t, fromErr.Message, "developer")
	require.Contains(t, fromErr.Message, "publisher")
	require.Empty(t, store.published)
	require.Empty(t, audit.logs)
}

func TestGamePublishSucceedsAndAudits(t *testing.T) {
	game := draftGame()
	date, dev, pub := "2008-06-26", "Capcom", "Capcom"
	game.ReleaseDate, game.Developer, game.Publisher = &date, &dev, &pub
	store := newGameStoreStub(game)
	audit := &auditLoggerStub{}
	svc := NewGameService(store, audit, nil, nil)

	published, err := svc.Publish(context.Background(), "lost-planet", admin(), "10.0.0.1", "agent")
	require.NoError(t, err)
	require.True(t, published.Published)
	require.Equal(t, []string{"game-1"}, store.published)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionGamePublish, audit.logs[0].Action)
}

func TestGamePublishTwiceConflicts(t *testing.T) {
	game := draftGame()
	date, dev, pub := "2008-06-26", "Capcom", "Capcom"
	game.ReleaseDate, game.Developer, game.Publisher = &date, &dev, &pub
	store := newGameStoreStub(game)
	store.publishErr = sql.ErrNoRows
	svc := NewGameService(store, nil, nil, nil)

	_, err := svc.Publish(context.Background(), "lost-planet", admin(), "", "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestGamePublishAdminOnly(t *testing.T) {
	svc := NewGameService(newGameStoreStub(draftGame()), nil, nil, nil)
	_, err := svc.Publish(context.Background(), "lost-planet", &models.JWTClaims{UserID: "rev-1", Role: models.RoleReviewer}, "", "")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestGameCreateValidatesSlug(t *testing.T) {
	svc := NewGameService(newGameStoreStub(), nil, nil, nil)
	_, err := svc.Create(context.Background(), dto.CreateGameRequest{Slug: "Lost Planet!", Title: "Lost Planet"}, admin(), "", "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGameCreateRejectsDuplicateSlug(t *testing.T) {
	svc := NewGameService(newGameStoreStub(draftGame()), nil, nil, nil)
	_, err := svc.Create(context.Background(), dto.CreateGameRequest{Slug: "lost-planet", Title: "Lost Planet"}, admin(), "", "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestGameGetHidesDraftsFromPublic(t *testing.T) {
	svc := NewGameService(newGameStoreStub(draftGame()), nil, nil, nil)

	_, err := svc.Get(context.Background(), "lost-planet", nil)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	game, err := svc.Get(context.Background(), "lost-planet", &models.JWTClaims{UserID: "rev-1", Role: models.RoleReviewer})
	require.NoError(t, err)
	require.Equal(t, "game-1", game.ID)
}

func TestGameListForcesPublishedForPublic(t *testing.T) {
	draft := draftGame()
	live := &models.Game{ID: "game-2", Slug: "live-game", Title: "Live Game", Published: true}
	svc := NewGameService(newGameStoreStub(draft, live), nil, nil, nil)

	games, _, err := svc.List(context.Background(), dto.GameQuery{}, nil)
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.Equal(t, "live-game", games[0].Slug)
}

func TestGameUpdateAudited(t *testing.T) {
	store := newGameStoreStub(draftGame())
	audit := &auditLoggerStub{}
	svc := NewGameService(store, audit, nil, nil)

	title := "Lost Planet: Extreme Condition"
	updated, err := svc.Update(context.Background(), "lost-planet", dto.UpdateGameRequest{Title: &title}, admin(), "", "")
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionGameEdit, audit.logs[0].Action)
	require.NotEmpty(t, audit.logs[0].OldValues)
}
