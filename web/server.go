// ABOUTME: HTTP listener for the OAuth redirect and health checks
// ABOUTME: Recovers the user from the state token and persists the exchanged token
package web

import (
	"fmt"
	"log"
	"net/http"

	"github.com/goodmemory/goodmemory-bot/gcal"
)

// Notifier tells a user in chat that something happened outside an
// inbound event, e.g. that their calendar is now connected.
type Notifier interface {
	Notify(userID int64, text string) error
}

type Server struct {
	broker   *gcal.Broker
	notifier Notifier
}

// NewServer wires the OAuth broker behind the callback endpoint. The
// notifier may be nil, in which case the user only sees the browser page.
func NewServer(broker *gcal.Broker, notifier Notifier) *Server {
	return &Server{broker: broker, notifier: notifier}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2callback", s.handleOAuthCallback)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code; restart the connect flow with /connect", http.StatusBadRequest)
		return
	}

	userID, err := gcal.ParseState(r.URL.Query().Get("state"))
	if err != nil {
		http.Error(w, "invalid state; restart the connect flow with /connect", http.StatusBadRequest)
		return
	}

	token, err := s.broker.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("oauth exchange for user %d failed: %v", userID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.broker.SaveCredentials(userID, token); err != nil {
		log.Printf("saving credentials for user %d failed: %v", userID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("calendar connected for user %d", userID)

	if s.notifier != nil {
		if err := s.notifier.Notify(userID, "✅ Google Calendar connected. Forward me a message to get started."); err != nil {
			log.Printf("connect notification for user %d failed: %v", userID, err)
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Google Calendar connected. You can close this tab and return to the chat.")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "ok")
}
