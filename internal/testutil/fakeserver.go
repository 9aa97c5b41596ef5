package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RecordedRequest is what FakeServer remembers about each request.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type fakeUser struct {
	id           int64
	email        string
	fullName     *string
	passwordHash []byte
}

type fakeTodo struct {
	id          int64
	title       string
	isCompleted bool
	createdAt   time.Time
	ownerID     int64
}

// wireTodo matches the service's JSON, including its naive timestamps.
type wireTodo struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
	CreatedAt   string `json:"created_at"`
	OwnerID     int64  `json:"owner_id"`
}

type wireUser struct {
	ID       int64   `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
}

type injectedFailure struct {
	status int
	detail string
}

// FakeServer is an httptest server implementing the task service endpoints.
// Tokens are HS256 JWTs with the user id as subject, unless a static token
// was registered with SetLoginToken.
type FakeServer struct {
	*httptest.Server

	mu           sync.Mutex
	secret       []byte
	users        map[string]*fakeUser // email -> user
	todos        []*fakeTodo
	nextUserID   int64
	nextTodoID   int64
	staticTokens map[string]int64 // token -> user id
	loginTokens  map[string]string
	failures     map[string]injectedFailure // "METHOD path" -> failure
	requests     []RecordedRequest
	now          func() time.Time
}

// NewFakeServer starts a FakeServer that is closed when the test ends.
func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()

	s := &FakeServer{
		secret:       []byte("fake-server-secret"),
		users:        make(map[string]*fakeUser),
		staticTokens: make(map[string]int64),
		loginTokens:  make(map[string]string),
		failures:     make(map[string]injectedFailure),
		nextUserID:   1,
		nextTodoID:   1,
		now:          time.Now,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *FakeServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.inject)

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Get("/users/me", s.handleMe)
		r.Get("/todos/", s.handleList)
		r.Post("/todos/create", s.handleCreate)
		r.Patch("/todos/{id}/complete", s.handleComplete)
		r.Patch("/todos/{id}/edit", s.handleEdit)
	})
	return r
}

// AddUser registers an account and returns its id.
func (s *FakeServer) AddUser(email, password, fullName string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, fullName)
}

func (s *FakeServer) addUserLocked(email, password, fullName string) int64 {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := &fakeUser{id: s.nextUserID, email: email, passwordHash: hash}
	if fullName != "" {
		u.fullName = &fullName
	}
	s.nextUserID++
	s.users[email] = u
	return u.id
}

// SetLoginToken makes a successful login for email return token verbatim.
func (s *FakeServer) SetLoginToken(email, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginTokens[email] = token
	if u, ok := s.users[email]; ok {
		s.staticTokens[token] = u.id
	}
}

// IssueToken returns a valid token for userID.
func (s *FakeServer) IssueToken(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(userID)
}

func (s *FakeServer) issueTokenLocked(userID int64) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(24 * time.Hour)),
	}).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// AddTask stores a task for ownerID created at createdAt.
func (s *FakeServer) AddTask(ownerID int64, title string, createdAt time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTodo{id: s.nextTodoID, title: title, createdAt: createdAt.UTC(), ownerID: ownerID}
	s.nextTodoID++
	s.todos = append(s.todos, t)
	return t.id
}

// SetNow fixes the server clock used for new tasks and tokens.
func (s *FakeServer) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = func() time.Time { return now }
}

// Fail makes every request matching method and path answer with status.
func (s *FakeServer) Fail(method, path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = injectedFailure{status: status, detail: detail}
}

// Requests returns the requests received so far.
func (s *FakeServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request for path.
func (s *FakeServer) LastRequest(path string) (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == path {
			return s.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

func (s *FakeServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *FakeServer) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userIDKey struct{}

func (s *FakeServer) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		userID, err := s.userForToken(token)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithUser(r, userID)))
	})
}

func (s *FakeServer) userForToken(token string) (int64, error) {
	s.mu.Lock()
	id, ok := s.staticTokens[token]
	now := s.now
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return 0, err
	}
	id, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.id == id {
			return id, nil
		}
	}
	return 0, errors.New("user not found")
}

func (s *FakeServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string  `json:"email"`
		FullName *string `json:"full_name"`
		Password string  `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[in.Email]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	fullName := ""
	if in.FullName != nil {
		fullName = *in.FullName
	}
	id := s.addUserLocked(in.Email, in.Password, fullName)
	u := s.users[in.Email]
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, wireUser{ID: id, Email: u.email, FullName: u.fullName})
}

func (s *FakeServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[in.Email]
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(in.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, ok := s.loginTokens[in.Email]
	if ok {
		s.staticTokens[token] = u.id
	} else {
		token = s.issueTokenLocked(u.id)
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (s *FakeServer) handleMe(w http.ResponseWriter, r *http.Request) {
	id := userFromContext(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.id == id {
			writeJSON(w, http.StatusOK, wireUser{ID: u.id, Email: u.email, FullName: u.fullName})
			return
		}
	}
	writeDetail(w, http.StatusUnauthorized, "User not found")
}

func (s *FakeServer) handleList(w http.ResponseWriter, r *http.Request) {
	id := userFromContext(r)
	s.mu.Lock()
	var owned []*fakeTodo
	for _, t := range s.todos {
		if t.ownerID == id {
			owned = append(owned, t)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		if owned[i].createdAt.Equal(owned[j].createdAt) {
			return owned[i].id > owned[j].id
		}
		return owned[i].createdAt.After(owned[j].createdAt)
	})
	out := make([]wireTodo, 0, len(owned))
	for _, t := range owned {
		out = append(out, toWire(t))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *FakeServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title *string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == nil {
		writeValidation(w, "Field required")
		return
	}

	s.mu.Lock()
	t := &fakeTodo{
		id:        s.nextTodoID,
		title:     *in.Title,
		createdAt: s.now().UTC(),
		ownerID:   userFromContext(r),
	}
	s.nextTodoID++
	s.todos = append(s.todos, t)
	out := toWire(t)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (s *FakeServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.updateTodo(w, r, func(t *fakeTodo) { t.isCompleted = true })
}

func (s *FakeServer) handleEdit(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title *string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "Invalid body")
		return
	}
	s.updateTodo(w, r, func(t *fakeTodo) {
		if in.Title != nil {
			t.title = *in.Title
		}
	})
}

func (s *FakeServer) updateTodo(w http.ResponseWriter, r *http.Request, apply func(*fakeTodo)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeValidation(w, "Input should be a valid integer")
		return
	}
	owner := userFromContext(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.todos {
		if t.id == id && t.ownerID == owner {
			apply(t)
			writeJSON(w, http.StatusOK, toWire(t))
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Todo not found")
}

func toWire(t *fakeTodo) wireTodo {
	return wireTodo{
		ID:          t.id,
		Title:       t.title,
		IsCompleted: t.isCompleted,
		CreatedAt:   t.createdAt.Format("2006-01-02T15:04:05.000000"),
		OwnerID:     t.ownerID,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]string{{"msg": msg}},
	})
}

func contextWithUser(r *http.Request, id int64) context.Context {
	return context.WithValue(r.Context(), userIDKey{}, id)
}

func userFromContext(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey{}).(int64)
	return id
}

// String implements fmt.Stringer for debugging failed tests.
func (r RecordedRequest) String() string {
	return fmt.Sprintf("%s %s auth=%q", r.Method, r.Path, r.Authorization)
}
