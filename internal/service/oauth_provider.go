package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
)

// OAuthProvider abstracts one identity provider in the authorization-code flow.
type OAuthProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*models.OAuthProfile, error)
}

var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// DiscordProvider implements the Discord code flow.
type DiscordProvider struct {
	config *oauth2.Config
}

// NewDiscordProvider builds the provider. redirectURL points at the hub's
// callback endpoint for this provider.
func NewDiscordProvider(clientID, clientSecret, redirectURL string) *DiscordProvider {
	return &DiscordProvider{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"identify", "email"},
		Endpoint:     discordEndpoint,
	}}
}

func (p *DiscordProvider) Name() string { return "discord" }

func (p *DiscordProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *DiscordProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

func (p *DiscordProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*models.OAuthProfile, error) {
	var payload struct {
		ID            string `json:"id"`
		Username      string `json:"username"`
		GlobalName    string `json:"global_name"`
		Email         string `json:"email"`
		Avatar        string `json:"avatar"`
		VerifiedEmail bool   `json:"verified"`
	}
	if err := fetchJSON(ctx, p.config, token, "https://discord.com/api/users/@me", &payload); err != nil {
		return nil, err
	}

	displayName := payload.GlobalName
	if displayName == "" {
		displayName = payload.Username
	}
	avatar := ""
	if payload.Avatar != "" {
		avatar = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", payload.ID, payload.Avatar)
	}
	return &models.OAuthProfile{
		Provider:    p.Name(),
		ProviderID:  payload.ID,
		Email:       payload.Email,
		DisplayName: displayName,
		AvatarURL:   avatar,
	}, nil
}

// GoogleProvider implements the Google code flow.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider builds the provider.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     googleEndpoint,
	}}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*models.OAuthProfile, error) {
	var payload struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := fetchJSON(ctx, p.config, token, "https://openidconnect.googleapis.com/v1/userinfo", &payload); err != nil {
		return nil, err
	}
	return &models.OAuthProfile{
		Provider:    p.Name(),
		ProviderID:  payload.Sub,
		Email:       payload.Email,
		DisplayName: payload.Name,
		AvatarURL:   payload.Picture,
	}, nil
}

func fetchJSON(ctx context.Context, config *oauth2.Config, token *oauth2.Token, url string, dest interface{}) error {
	client := config.Client(ctx, token)
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read profile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile endpoint status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode profile response: %w", err)
	}
	return nil
}
