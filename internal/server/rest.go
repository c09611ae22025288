package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/goevery/carwash-notify/internal/auth"
	"github.com/goevery/carwash-notify/internal/handler"
	"github.com/goevery/carwash-notify/internal/ierr"
	"github.com/goevery/carwash-notify/internal/metrics"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type RESTServer struct {
	logger *zap.Logger

	scanHandler             handler.LicensePlateScanHandlerInterface
	testNotificationHandler handler.TestNotificationHandlerInterface
	connectedUsersHandler   *handler.ConnectedUsersHandler
	authenticator           *auth.Authenticator
}

func NewRESTServer(
	logger *zap.Logger,
	scanHandler handler.LicensePlateScanHandlerInterface,
	testNotificationHandler handler.TestNotificationHandlerInterface,
	connectedUsersHandler *handler.ConnectedUsersHandler,
	authenticator *auth.Authenticator,
) *RESTServer {
	return &RESTServer{
		logger,
		scanHandler,
		testNotificationHandler,
		connectedUsersHandler,
		authenticator,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.HandleFunc("/license-plate-scan", s.cors(s.authorized(func(w http.ResponseWriter, r *http.Request) {
		var scanRequest handler.LicensePlateScanRequest
		if !s.decode(w, r, &scanRequest) {
			return
		}

		scanResponse, err := s.scanHandler.Handle(r.Context(), scanRequest)
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusOK, scanResponse)
	}))).Methods("POST", "OPTIONS")

	router.HandleFunc("/websocket/connected-users", s.cors(s.authorized(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.connectedUsersHandler.Handle())
	}))).Methods("GET", "OPTIONS")

	router.HandleFunc("/websocket/test-notification", s.cors(s.authorized(func(w http.ResponseWriter, r *http.Request) {
		var notificationRequest handler.TestNotificationRequest
		if !s.decode(w, r, &notificationRequest) {
			return
		}

		notificationResponse, err := s.testNotificationHandler.Handle(r.Context(), notificationRequest)
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusOK, notificationResponse)
	}))).Methods("POST", "OPTIONS")

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	router.Handle("/metrics", metrics.Handler()).Methods("GET")
}

func (s *RESTServer) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			return
		}

		next(w, r)
	}
}

// authorized requires a configured API key as bearer token. Without any
// configured key the endpoints are open.
func (s *RESTServer) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticator.RequiresAPIKey() {
			next(w, r)
			return
		}

		apiKey, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			s.writeError(w, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("api key required")))
			return
		}

		authentication, err := s.authenticator.AuthenticateAPIKey(apiKey)
		if err != nil {
			s.writeError(w, err)
			return
		}

		next(w, r.WithContext(auth.WithAuthentication(r.Context(), authentication)))
	}
}

func (s *RESTServer) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid request body")))
		return false
	}

	return true
}

func (s *RESTServer) writeError(w http.ResponseWriter, err error) {
	var handlerErr ierr.Error
	if !errors.As(err, &handlerErr) {
		s.logger.Error("failed to handle request", zap.Error(err))

		handlerErr = ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
	}

	s.writeJSON(w, handlerErr.HTTPStatus(), handlerErr)
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}
