package calendar

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// ErrNoToken means `ml auth login` has not been run yet.
var ErrNoToken = errors.New("no oauth token stored")

// TokenStore persists the single OAuth token in the workspace database so
// the consent flow is a one-time step.
type TokenStore struct {
	DB *sql.DB
}

func (s TokenStore) Save(ctx context.Context, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal oauth token: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.DB.ExecContext(ctx, `INSERT INTO oauth_tokens(id,token_json,updated_at) VALUES (1,?,?)
ON CONFLICT(id) DO UPDATE SET token_json=excluded.token_json, updated_at=excluded.updated_at`, string(data), now)
	return err
}

func (s TokenStore) Load(ctx context.Context) (*oauth2.Token, error) {
	var data string
	err := s.DB.QueryRowContext(ctx, `SELECT token_json FROM oauth_tokens WHERE id=1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(data), &tok); err != nil {
		return nil, fmt.Errorf("unmarshal oauth token: %w", err)
	}
	return &tok, nil
}

// OAuthConfig builds the installed-app OAuth config for the events scope.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{gcal.CalendarEventsScope},
	}
}

// TokenSource returns a refreshing source seeded from the store; rotated
// tokens are written back so a restart keeps the session.
func (s TokenStore) TokenSource(ctx context.Context, cfg *oauth2.Config) (oauth2.TokenSource, error) {
	tok, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &savingSource{
		store: s,
		ctx:   ctx,
		src:   cfg.TokenSource(ctx, tok),
		last:  tok.AccessToken,
	}, nil
}

type savingSource struct {
	store TokenStore
	ctx   context.Context
	src   oauth2.TokenSource
	mu    sync.Mutex
	last  string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := s.store.Save(s.ctx, tok); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
