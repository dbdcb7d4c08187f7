package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/koinonia/koinonia/internal/config"
	"github.com/koinonia/koinonia/internal/metrics"
	"github.com/koinonia/koinonia/internal/model"
	"github.com/koinonia/koinonia/internal/service"
	"github.com/koinonia/koinonia/internal/testutil"
)

const (
	contractBaseURL = "http://localhost:8080"
	validToken      = "valid-token"
	tokenUserID     = "01HZUSER"
)

var fixedTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func loadContract(t *testing.T) routers.Router {
	t.Helper()

	root, err := testutil.ProjectRoot()
	if err != nil {
		t.Fatalf("ProjectRoot failed: %v", err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(filepath.Join(root, "docs", "api", "openapi.yaml"))
	if err != nil {
		t.Fatalf("load openapi document: %v", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("openapi document invalid: %v", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		t.Fatalf("build openapi router: %v", err)
	}
	return router
}

type fakeVerifier struct{}

func (fakeVerifier) VerifyAccess(token string) (string, error) {
	if token != validToken {
		return "", errors.New("bad token")
	}
	return tokenUserID, nil
}

type fakeBackend struct{}

func (fakeBackend) user() *model.User {
	phone := "555-0100"
	person := "pco-1"
	return &model.User{
		ID:          tokenUserID,
		Email:       "ruth@example.com",
		FirstName:   "Ruth",
		LastName:    "Moab",
		Phone:       &phone,
		PCOPersonID: &person,
		CreatedAt:   fixedTime,
	}
}

func (fakeBackend) tokens() *service.Tokens {
	return &service.Tokens{
		AccessToken:      "access",
		ExpiresAt:        fixedTime.Add(15 * time.Minute),
		RefreshToken:     "refresh",
		RefreshExpiresAt: fixedTime.Add(720 * time.Hour),
	}
}

func (b fakeBackend) Register(ctx context.Context, in service.RegisterInput) (*service.RegisterOutput, error) {
	return &service.RegisterOutput{User: b.user(), Tokens: b.tokens()}, nil
}

func (b fakeBackend) Login(ctx context.Context, email, password string) (*service.LoginOutput, error) {
	if password != "correct-horse" {
		return nil, service.ErrInvalidCredentials
	}
	return &service.LoginOutput{User: b.user(), Tokens: b.tokens()}, nil
}

func (b fakeBackend) Refresh(ctx context.Context, refreshToken string) (*service.Tokens, error) {
	return b.tokens(), nil
}

func (fakeBackend) Logout(ctx context.Context, refreshToken string) error { return nil }

func (b fakeBackend) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id != tokenUserID {
		return nil, service.ErrUserNotFound
	}
	return b.user(), nil
}

func (b fakeBackend) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return b.user(), nil
}

func (b fakeBackend) UpdateProfile(ctx context.Context, actorID, id string, update model.ProfileUpdate) (*model.User, error) {
	if actorID != id {
		return nil, service.ErrForbidden
	}
	u := b.user()
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	return u, nil
}

func (fakeBackend) community() *model.Community {
	return &model.Community{ID: "c1", Name: "Young Adults", PCOGroupID: "g1", CreatedAt: fixedTime}
}

func (b fakeBackend) CreateCommunity(ctx context.Context, in service.CreateCommunityInput) (*model.Community, error) {
	return b.community(), nil
}

func (b fakeBackend) GetCommunity(ctx context.Context, id string) (*model.Community, error) {
	if id != "c1" {
		return nil, service.ErrNotFound
	}
	return b.community(), nil
}

func (b fakeBackend) ListCommunities(ctx context.Context) ([]*model.Community, error) {
	return []*model.Community{b.community()}, nil
}

func (fakeBackend) AddMember(ctx context.Context, communityID, userID string) error { return nil }

func (fakeBackend) ListMembers(ctx context.Context, communityID string) ([]*model.Member, error) {
	return []*model.Member{{ID: tokenUserID, Email: "ruth@example.com", FirstName: "Ruth", LastName: "Moab"}}, nil
}

func (fakeBackend) sermon() *model.Preaching {
	recorded := fixedTime.Add(-24 * time.Hour)
	return &model.Preaching{
		ID:             "p1",
		Title:          "Loving Kindness",
		YouTubeURL:     "https://www.youtube.com/watch?v=abc123",
		YouTubeVideoID: "abc123",
		RecordedAt:     &recorded,
		CreatedAt:      fixedTime,
	}
}

func (b fakeBackend) CreatePreaching(ctx context.Context, in service.CreatePreachingInput) (*model.Preaching, error) {
	return b.sermon(), nil
}

func (b fakeBackend) GetPreaching(ctx context.Context, id string) (*model.Preaching, error) {
	return b.sermon(), nil
}

func (b fakeBackend) ListPreachings(ctx context.Context, search string) ([]*model.Preaching, error) {
	return []*model.Preaching{b.sermon()}, nil
}

func (fakeBackend) AttachTags(ctx context.Context, preachingID string, names []string) ([]*model.Tag, error) {
	tags := make([]*model.Tag, 0, len(names))
	for i, n := range names {
		tags = append(tags, &model.Tag{ID: string(rune('a' + i)), Name: n})
	}
	return tags, nil
}

func (fakeBackend) tagList() []*model.Tag {
	return []*model.Tag{{ID: "t1", Name: "Grace"}}
}

type tagBackend struct{ fakeBackend }

func (tagBackend) UpsertTag(ctx context.Context, name string) (*model.Tag, error) {
	return &model.Tag{ID: "t1", Name: name}, nil
}

func (b tagBackend) ListTags(ctx context.Context) ([]*model.Tag, error) {
	return b.tagList(), nil
}

type sermonBackend struct{ fakeBackend }

func (b sermonBackend) ListTags(ctx context.Context, preachingID string) ([]*model.Tag, error) {
	return b.tagList(), nil
}

func contractRouter() http.Handler {
	backend := fakeBackend{}
	return newRouter(routerDeps{
		cfg:         &config.Config{AppEnv: "test", MaxRequestBodySize: 1 << 20},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder:    metrics.NewNoop(),
		gatherer:    prometheus.NewRegistry(),
		sessions:    fakeVerifier{},
		registrar:   backend,
		auth:        backend,
		users:       backend,
		communities: backend,
		sermons:     sermonBackend{backend},
		tags:        tagBackend{backend},
		version:     "test",
	})
}

func TestContract_ResponsesMatchDocument(t *testing.T) {
	docRouter := loadContract(t)
	app := contractRouter()

	tests := []struct {
		name         string
		method       string
		path         string
		body         string
		token        string
		wantStatus   int
		validRequest bool
	}{
		{"healthz", http.MethodGet, "/healthz", "", "", http.StatusOK, true},
		{"readyz", http.MethodGet, "/readyz", "", "", http.StatusOK, true},
		{"register", http.MethodPost, "/api/v1/users",
			`{"email":"ruth@example.com","password":"correct-horse","first_name":"Ruth","last_name":"Moab"}`,
			"", http.StatusCreated, true},
		{"register missing field", http.MethodPost, "/api/v1/users",
			`{"email":"ruth@example.com","password":"correct-horse","first_name":"Ruth"}`,
			"", http.StatusBadRequest, false},
		{"login", http.MethodPost, "/api/v1/users/login",
			`{"email":"ruth@example.com","password":"correct-horse"}`, "", http.StatusOK, true},
		{"login wrong password", http.MethodPost, "/api/v1/users/login",
			`{"email":"ruth@example.com","password":"nope"}`, "", http.StatusUnauthorized, true},
		{"refresh", http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"r"}`, "", http.StatusOK, true},
		{"logout", http.MethodPost, "/api/v1/auth/logout", `{"refresh_token":"r"}`, "", http.StatusNoContent, true},
		{"me", http.MethodGet, "/api/v1/auth/me", "", validToken, http.StatusOK, true},
		{"me without token", http.MethodGet, "/api/v1/auth/me", "", "", http.StatusUnauthorized, false},
		{"get user", http.MethodGet, "/api/v1/users/" + tokenUserID, "", validToken, http.StatusOK, true},
		{"get missing user", http.MethodGet, "/api/v1/users/other", "", validToken, http.StatusNotFound, true},
		{"find by email", http.MethodGet, "/api/v1/users/by-email/search?email=ruth@example.com", "", validToken, http.StatusOK, true},
		{"update self", http.MethodPatch, "/api/v1/users/" + tokenUserID, `{"first_name":"Naomi"}`, validToken, http.StatusOK, true},
		{"update other", http.MethodPatch, "/api/v1/users/other", `{"first_name":"Naomi"}`, validToken, http.StatusForbidden, true},
		{"list communities", http.MethodGet, "/api/v1/communities", "", "", http.StatusOK, true},
		{"get community", http.MethodGet, "/api/v1/communities/c1", "", "", http.StatusOK, true},
		{"get missing community", http.MethodGet, "/api/v1/communities/zz", "", "", http.StatusNotFound, true},
		{"create community", http.MethodPost, "/api/v1/communities", `{"name":"Young Adults","pco_group_id":"g1"}`, validToken, http.StatusCreated, true},
		{"add member", http.MethodPost, "/api/v1/communities/c1/members", `{"user_id":"u2"}`, validToken, http.StatusNoContent, true},
		{"list members", http.MethodGet, "/api/v1/communities/c1/members", "", validToken, http.StatusOK, true},
		{"list sermons", http.MethodGet, "/api/v1/sermons?q=kind", "", "", http.StatusOK, true},
		{"get sermon", http.MethodGet, "/api/v1/sermons/p1", "", "", http.StatusOK, true},
		{"create sermon", http.MethodPost, "/api/v1/sermons",
			`{"title":"Loving Kindness","youtube_url":"https://www.youtube.com/watch?v=abc123","youtube_video_id":"abc123"}`,
			validToken, http.StatusCreated, true},
		{"sermon tags", http.MethodGet, "/api/v1/sermons/p1/tags", "", "", http.StatusOK, true},
		{"attach tags", http.MethodPost, "/api/v1/sermons/p1/tags", `{"names":["Grace","Hope"]}`, validToken, http.StatusOK, true},
		{"list tags", http.MethodGet, "/api/v1/tags", "", "", http.StatusOK, true},
		{"upsert tag", http.MethodPost, "/api/v1/tags", `{"name":"Grace"}`, validToken, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, contractBaseURL+tt.path, bytes.NewBufferString(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			route, pathParams, err := docRouter.FindRoute(req)
			if err != nil {
				t.Fatalf("route not documented: %v", err)
			}

			opts := &openapi3filter.Options{
				AuthenticationFunc:    openapi3filter.NoopAuthenticationFunc,
				IncludeResponseStatus: true,
			}
			reqInput := &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: pathParams,
				Route:      route,
				Options:    opts,
			}
			if tt.validRequest {
				if err := openapi3filter.ValidateRequest(context.Background(), reqInput); err != nil {
					t.Fatalf("request does not match document: %v", err)
				}
				// ValidateRequest consumes the body.
				req.Body = io.NopCloser(bytes.NewBufferString(tt.body))
			}

			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			respInput := &openapi3filter.ResponseValidationInput{
				RequestValidationInput: reqInput,
				Status:                 rec.Code,
				Header:                 rec.Header(),
				Body:                   io.NopCloser(bytes.NewReader(rec.Body.Bytes())),
				Options:                opts,
			}
			if err := openapi3filter.ValidateResponse(context.Background(), respInput); err != nil {
				t.Errorf("response does not match document: %v", err)
			}
		})
	}
}
