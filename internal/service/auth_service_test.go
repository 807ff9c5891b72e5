package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
)

type fakeProvider struct {
	profile     *models.OAuthProfile
	exchangeErr error
}

func (p *fakeProvider) Name() string                  { return "discord" }
func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}
func (p *fakeProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &oauth2.Token{AccessToken: "provider-token"}, nil
}
func (p *fakeProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*models.OAuthProfile, error) {
	return p.profile, nil
}

type authRepoStub struct {
	byProvider map[string]*models.User
	byEmail    map[string]*models.User
	created    *models.User
	tokens     map[string]*models.RefreshToken
	revoked    []string
	audits     []models.AuditLog
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		byProvider: map[string]*models.User{},
		byEmail:    map[string]*models.User{},
		tokens:     map[string]*models.RefreshToken{},
	}
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range r.byProvider {
		if u.ID == id {
			return u, nil
		}
	}
	if r.created != nil && r.created.ID == id {
		return r.created, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) FindByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	if u, ok := r.byProvider[provider+"/"+providerID]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) Create(ctx context.Context, user *models.User) error {
	user.ID = "new-user"
	r.created = user
	return nil
}

func (r *authRepoStub) UpdateProfile(ctx context.Context, id, displayName, avatarURL string) error {
	return nil
}

func (r *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error { return nil }

func (r *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

func (r *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	r.tokens[token.Token] = token
	return nil
}

func (r *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := r.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range r.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (r *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.audits = append(r.audits, *log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "gfwl-hub",
	}
}

func TestAuthCallbackRegistersNewAccount(t *testing.T) {
	repo := newAuthRepoStub()
	provider := &fakeProvider{profile: &models.OAuthProfile{
		Provider: "discord", ProviderID: "123", Email: "ann@example.com", DisplayName: "Ann",
	}}
	svc := NewAuthService(repo, []OAuthProvider{provider}, nil, nil, testAuthConfig())

	resp, err := svc.HandleCallback(context.Background(), "discord", "code", "10.0.0.1", "agent")
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	require.Equal(t, models.RoleUser, repo.created.Role)
	require.Equal(t, models.StatusActive, repo.created.Status)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Len(t, repo.audits, 1)
	require.Equal(t, models.AuditActionLogin, repo.audits[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "new-user", claims.UserID)
	require.Equal(t, models.RoleUser, claims.Role)
}

func TestAuthCallbackRefusesBlockedAccount(t *testing.T) {
	repo := newAuthRepoStub()
	repo.byProvider["discord/123"] = &models.User{
		ID: "user-1", Email: "ann@example.com", DisplayName: "Ann",
		Provider: "discord", ProviderID: "123", Status: models.StatusBlocked, Role: models.RoleUser,
	}
	provider := &fakeProvider{profile: &models.OAuthProfile{
		Provider: "discord", ProviderID: "123", Email: "ann@example.com", DisplayName: "Ann",
	}}
	svc := NewAuthService(repo, []OAuthProvider{provider}, nil, nil, testAuthConfig())

	_, err := svc.HandleCallback(context.Background(), "discord", "code", "", "")
	require.ErrorIs(t, err, appErrors.ErrAccountSuspended)
}

func TestAuthCallbackUnknownProvider(t *testing.T) {
	svc := NewAuthService(newAuthRepoStub(), nil, nil, nil, testAuthConfig())
	_, err := svc.HandleCallback(context.Background(), "steam", "code", "", "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	repo := newAuthRepoStub()
	repo.byProvider["discord/123"] = &models.User{
		ID: "user-1", Email: "ann@example.com", DisplayName: "Ann",
		Provider: "discord", ProviderID: "123", Status: models.StatusActive, Role: models.RoleUser,
	}
	repo.tokens["old-token"] = &models.RefreshToken{
		ID: "rt-1", UserID: "user-1", Token: "old-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, nil, testAuthConfig())

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	require.NotEqual(t, "old-token", resp.RefreshToken)
	require.True(t, repo.tokens["old-token"].Revoked)
}

func TestAuthRefreshRefusesSuspendedAccount(t *testing.T) {
	repo := newAuthRepoStub()
	repo.byProvider["discord/123"] = &models.User{
		ID: "user-1", Status: models.StatusSuspended, Role: models.RoleUser,
	}
	repo.tokens["old-token"] = &models.RefreshToken{
		ID: "rt-1", UserID: "user-1", Token: "old-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, nil, testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.ErrorIs(t, err, appErrors.ErrAccountSuspended)
}

func TestAuthRefreshRejectsExpiredToken(t *testing.T) {
	repo := newAuthRepoStub()
	repo.tokens["stale"] = &models.RefreshToken{
		ID: "rt-1", UserID: "user-1", Token: "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	svc := NewAuthService(repo, nil, nil, nil, testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthLogoutChecksOwnership(t *testing.T) {
	repo := newAuthRepoStub()
	repo.tokens["tok"] = &models.RefreshToken{
		ID: "rt-1", UserID: "user-1", Token: "tok",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, nil, testAuthConfig())

	err := svc.Logout(context.Background(), "tok", "someone-else", "", "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), "tok", "user-1", "", ""))
	require.True(t, repo.tokens["tok"].Revoked)
}
