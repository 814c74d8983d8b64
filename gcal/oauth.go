// ABOUTME: OAuth broker for Google Calendar access
// ABOUTME: Builds authorization URLs with a user-bearing state token and exchanges codes
package gcal

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/goodmemory/goodmemory-bot/store"
)

const (
	calendarScope  = "https://www.googleapis.com/auth/calendar"
	stateDelimiter = ":"
)

// Broker owns the OAuth configuration and the token store. It is the sole
// writer of token records.
type Broker struct {
	config *oauth2.Config
	tokens *store.TokenStore
}

func NewBroker(clientID, clientSecret, redirectURL string, tokens *store.TokenStore) *Broker {
	return &Broker{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendarScope},
			Endpoint:     google.Endpoint,
		},
		tokens: tokens,
	}
}

// Config exposes the OAuth configuration for building authenticated
// clients from stored tokens.
func (b *Broker) Config() *oauth2.Config {
	return b.config
}

// AuthURL builds the authorization URL for a user. The state token lets
// the callback recover the originating user without server-side sessions.
// Offline access plus forced consent means a refresh token is issued even
// on repeat authorization.
func (b *Broker) AuthURL(userID int64) string {
	return b.config.AuthCodeURL(
		FormatState(userID, time.Now()),
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a token bundle. One round
// trip, no retry; failures surface to the caller.
func (b *Broker) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := b.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

// SaveCredentials overwrites the user's stored token record.
func (b *Broker) SaveCredentials(userID int64, token *oauth2.Token) error {
	return b.tokens.Set(userID, token)
}

// FormatState composes the OAuth state token: user id, timestamp, and a
// random nonce joined by a fixed delimiter.
func FormatState(userID int64, now time.Time) string {
	return strings.Join([]string{
		strconv.FormatInt(userID, 10),
		strconv.FormatInt(now.Unix(), 10),
		uuid.NewString(),
	}, stateDelimiter)
}

// ParseState recovers the user id from a state token. The first segment
// must parse as a positive integer; anything else is an error and the
// user has to restart the connect flow. A value that looks
// percent-encoded gets a best-effort decode, falling back to the raw
// value when decoding fails.
func ParseState(raw string) (int64, error) {
	state := raw
	if strings.Contains(state, "%") {
		if decoded, err := url.QueryUnescape(state); err == nil {
			state = decoded
		}
	}

	first, _, _ := strings.Cut(state, stateDelimiter)
	userID, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid state token: %w", err)
	}
	if userID <= 0 {
		return 0, fmt.Errorf("invalid state token: non-positive user id %d", userID)
	}
	return userID, nil
}
