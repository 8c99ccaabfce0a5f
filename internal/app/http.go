package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rohis/api/internal/auth"
	"rohis/api/internal/authpw"
	"rohis/api/internal/prayer"
	"rohis/api/internal/slug"
	"rohis/api/internal/store"
)

const maxImageSize = 5 << 20

type prayerTimes interface {
	Today(ctx context.Context, now time.Time) (prayer.Schedule, error)
	Next(ctx context.Context, now time.Time) (prayer.Upcoming, error)
}

type imageUploader interface {
	Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (string, error)
}

type HTTPServer struct {
	service    *Service
	corsOrigin string
	prayer     prayerTimes
	images     imageUploader
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

// UsePrayer attaches the prayer schedule backend.
func (s *HTTPServer) UsePrayer(backend *prayer.Service) {
	if backend != nil {
		s.prayer = backend
	}
}

// UseUploader attaches the image storage backend.
func (s *HTTPServer) UseUploader(backend imageUploader) {
	if backend != nil {
		s.images = backend
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.service.Ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/login" {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		claims, err := s.service.Authenticate(token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "adminId": claims.Sub, "name": claims.Name})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/motivation" {
		view, err := s.service.ActiveMotivation(r.Context())
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/structure" {
		views, err := s.service.Structure(r.Context())
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"structure": views})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		results, err := s.service.SearchActivities(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/prayer-times" {
		s.handlePrayerTimes(w, r)
		return
	}

	if strings.HasPrefix(r.URL.Path, "/api/history/") {
		s.handleHistory(w, r)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "activities":
		s.handleActivities(w, r, parts)
		return
	case "comments":
		s.handleComments(w, r, parts)
		return
	case "motivation":
		if len(parts) == 2 && r.Method == http.MethodPost {
			if _, ok := s.requireAdmin(w, r); !ok {
				return
			}
			var body MotivationInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			key, err := s.service.PostMotivation(r.Context(), body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"key": key})
			return
		}
	case "structure":
		s.handleStructure(w, r, parts)
		return
	case "programs":
		s.handlePrograms(w, r, parts)
		return
	case "images":
		if len(parts) == 2 && r.Method == http.MethodPost {
			s.handleImageUpload(w, r)
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleActivities(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			views, err := s.service.ListActivities(r.Context())
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"activities": views})
		case http.MethodPost:
			if _, ok := s.requireAdmin(w, r); !ok {
				return
			}
			var body ActivityInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			view, err := s.service.CreateActivity(r.Context(), body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, view)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	key := parts[2]

	if len(parts) == 4 && parts[3] == "comments" && r.Method == http.MethodGet {
		views, err := s.service.ListComments(r.Context(), key)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": views})
		return
	}

	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			view, err := s.service.GetActivity(r.Context(), key)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, view)
		case http.MethodPut:
			if _, ok := s.requireAdmin(w, r); !ok {
				return
			}
			var body ActivityInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			view, err := s.service.UpdateActivity(r.Context(), key, body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, view)
		case http.MethodDelete:
			if _, ok := s.requireAdmin(w, r); !ok {
				return
			}
			if err := s.service.DeleteActivity(r.Context(), key); err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleComments(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			views, err := s.service.ListComments(r.Context(), r.URL.Query().Get("activityId"))
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"comments": views})
		case http.MethodPost:
			// Visitors comment without an account.
			var body CommentInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			view, err := s.service.AddComment(r.Context(), body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, view)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	key := parts[2]

	if len(parts) == 4 && parts[3] == "like" && r.Method == http.MethodPost {
		likes, err := s.service.LikeComment(r.Context(), key)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"likes": likes})
		return
	}

	if len(parts) == 3 && r.Method == http.MethodDelete {
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		if err := s.service.DeleteComment(r.Context(), key); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleStructure(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 2 && r.Method == http.MethodPut {
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		var body struct {
			Structure map[string]store.StructureEntry `json:"structure"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.SaveStructure(r.Context(), body.Structure); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 3 && parts[2] == "positions" && r.Method == http.MethodPost {
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		var body struct {
			Label string                          `json:"label"`
			Draft map[string]store.StructureEntry `json:"draft"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		key, draft, err := s.service.AddPosition(body.Draft, body.Label)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"key": key, "draft": draft})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handlePrograms(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 3 && parts[2] == "divisions" && r.Method == http.MethodPost {
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		var body struct {
			Label string            `json:"label"`
			Draft map[string]string `json:"draft"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		key, draft, err := s.service.AddDivision(body.Draft, body.Label)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"key": key, "draft": draft})
		return
	}

	if len(parts) != 3 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year < 2000 || year > 2200 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "year must be a four digit number", nil)
		return
	}

	switch r.Method {
	case http.MethodGet:
		divisions, err := s.service.Program(r.Context(), year)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"year": year, "divisions": divisions})
	case http.MethodPut:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		var body struct {
			Divisions map[string]string `json:"divisions"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.SaveProgram(r.Context(), year, body.Divisions); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handlePrayerTimes(w http.ResponseWriter, r *http.Request) {
	if s.prayer == nil {
		writeError(w, http.StatusServiceUnavailable, "PRAYER_UNAVAILABLE", "Prayer times are not configured", nil)
		return
	}
	now := time.Now()
	schedule, err := s.prayer.Today(r.Context(), now)
	if err != nil {
		s.fail(w, err)
		return
	}
	payload := map[string]any{"schedule": schedule}
	if next, err := s.prayer.Next(r.Context(), now); err == nil {
		payload["next"] = next
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/history/"), "/")
	if !historyPathAllowed(path) {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "history is kept only for the structure, program, and motivation collections", nil)
		return
	}

	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		limit = parsed
	}

	changes, err := s.service.History(path, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "changes": changes})
}

func historyPathAllowed(path string) bool {
	if path == store.StructurePath || path == store.MotivationPath {
		return true
	}
	return strings.HasPrefix(path, store.ProgramPath+"/")
}

func (s *HTTPServer) handleImageUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	if s.images == nil {
		writeError(w, http.StatusServiceUnavailable, "IMAGES_UNAVAILABLE", "Image storage is not configured", nil)
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected a multipart upload", nil)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "image file is required", nil)
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		writeError(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "image exceeds the size limit", nil)
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "only image uploads are accepted", nil)
		return
	}

	url, err := s.images.Upload(r.Context(), header.Filename, contentType, header.Size, file)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"url": url})
}

func (s *HTTPServer) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Claims, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return auth.Claims{}, false
	}
	claims, err := s.service.Authenticate(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return auth.Claims{}, false
	}
	return claims, true
}

func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("app: %v", err)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var partial *PartialCascadeError
	if errors.As(err, &partial) {
		return http.StatusInternalServerError, "CASCADE_INCOMPLETE", partial.Error(), map[string]any{
			"activityKey":       partial.ActivityKey,
			"remainingComments": partial.Remaining,
		}
	}
	if errors.Is(err, authpw.ErrInvalidCredentials) {
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	if errors.Is(err, slug.ErrEmptyLabel) {
		return http.StatusUnprocessableEntity, "EMPTY_LABEL", "Label must not be empty", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
