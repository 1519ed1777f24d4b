// A mock department service for end-to-end runs against the gateway. It
// verifies the gateway's service credential the way a real department
// would, logs what it receives, and answers with a configurable decision.
//
// Environment:
//
//	PORT                  listen port (default 9101)
//	SERVICE_TOKEN_SECRET  shared HMAC secret for verifying credentials
//	DEPARTMENT_CODE       expected audience, e.g. TRANSPORT
//	DECISION              optional synchronous status (ACCEPTED, REJECTED,
//	                      PROCESSING); empty acknowledges without a status
//	DECISION_REMARKS      remarks attached to the synchronous decision
package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	department "nexus/contracts/department"
)

type serviceClaims struct {
	Service    string   `json:"service"`
	Department string   `json:"department"`
	Scope      []string `json:"scope"`
	jwt.RegisteredClaims
}

type server struct {
	secret   []byte
	code     string
	decision string
	remarks  string
	logger   *slog.Logger
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	secret := os.Getenv("SERVICE_TOKEN_SECRET")
	if secret == "" {
		logger.Error("SERVICE_TOKEN_SECRET is required")
		os.Exit(1)
	}
	code := os.Getenv("DEPARTMENT_CODE")
	if code == "" {
		logger.Error("DEPARTMENT_CODE is required")
		os.Exit(1)
	}

	srv := &server{
		secret:   []byte(secret),
		code:     strings.ToUpper(code),
		decision: strings.ToUpper(os.Getenv("DECISION")),
		remarks:  os.Getenv("DECISION_REMARKS"),
		logger:   logger.With("department", code),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+department.NotifyPath, srv.handleStatusUpdate)
	mux.HandleFunc("POST /", srv.handleSubmit)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9101"
	}
	logger.Info("mock department listening", "port", port, "decision", srv.decision)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// handleSubmit accepts a delegated submission on any path, since the
// service's endpoint path is whatever the catalog says it is.
func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	var payload department.SubmitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	s.logger.Info("submission received",
		"path", r.URL.Path,
		"request_id", payload.RequestID,
		"service", payload.ServiceName,
		"citizen", payload.CitizenID,
		"fields", len(payload.Data),
	)

	w.Header().Set("Content-Type", "application/json")
	if s.decision == "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
		return
	}
	resp := department.SubmitResponse{
		Status:       s.decision,
		Remarks:      s.remarks,
		ResponseData: map[string]any{"handledBy": s.code},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *server) handleStatusUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	var payload department.StatusUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	s.logger.Info("status update received",
		"request_id", payload.RequestID,
		"status", payload.Status,
		"processed_by", payload.ProcessedBy,
	)
	w.WriteHeader(http.StatusNoContent)
}

// authorize enforces the service credential: HMAC signature, issuer,
// audience matching this department, and the forwarding scope.
func (s *server) authorize(w http.ResponseWriter, r *http.Request) bool {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		http.Error(w, "missing service credential", http.StatusUnauthorized)
		return false
	}

	var claims serviceClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithIssuer("NEXUS"),
		jwt.WithAudience(s.code),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		s.logger.Warn("credential rejected", "error", err)
		http.Error(w, "invalid service credential", http.StatusUnauthorized)
		return false
	}
	if claims.Service != "NEXUS_GATEWAY" || claims.Department != s.code {
		s.logger.Warn("credential for wrong service or department",
			"service", claims.Service,
			"department", claims.Department,
		)
		http.Error(w, "invalid service credential", http.StatusUnauthorized)
		return false
	}
	for _, scope := range claims.Scope {
		if scope == "FORWARD_REQUEST" {
			return true
		}
	}
	http.Error(w, "missing scope", http.StatusForbidden)
	return false
}
