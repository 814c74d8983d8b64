// ABOUTME: Thin Google Calendar gateway for event creation
// ABOUTME: Builds a per-call authenticated service from explicit credentials
package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// EventInput is the minimal shape of an event this system creates.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Gateway performs the single outbound calendar write. Credentials are
// passed explicitly per call; there is no shared logged-in client, so two
// users' calendar operations cannot clobber each other's credentials.
type Gateway struct {
	config *oauth2.Config
}

func NewGateway(config *oauth2.Config) *Gateway {
	return &Gateway{config: config}
}

// CreateEvent inserts an event into the user's primary calendar and
// returns its link. No retry or backoff; a failed creation is reported
// and the user can press confirm again.
func (g *Gateway) CreateEvent(ctx context.Context, token *oauth2.Token, in EventInput) (string, error) {
	if token == nil {
		return "", fmt.Errorf("token cannot be nil")
	}

	client := g.config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", fmt.Errorf("failed to create calendar service: %w", err)
	}

	// The RFC3339 offset carries the zone; no separate TimeZone needed.
	event := &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Start:       &calendar.EventDateTime{DateTime: in.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: in.End.Format(time.RFC3339)},
	}

	created, err := service.Events.Insert("primary", event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %s", apiErrorMessage(err))
	}

	return created.HtmlLink, nil
}

// apiErrorMessage prefers the provider's own message text when available.
func apiErrorMessage(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return err.Error()
}
