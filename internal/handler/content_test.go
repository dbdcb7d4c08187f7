package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/koinonia/koinonia/internal/model"
	"github.com/koinonia/koinonia/internal/service"
)

type stubCommunities struct {
	created []service.CreateCommunityInput
	members map[string][]string
}

func (s *stubCommunities) CreateCommunity(_ context.Context, in service.CreateCommunityInput) (*model.Community, error) {
	if in.PCOGroupID == "taken" {
		return nil, service.ErrConflict
	}
	s.created = append(s.created, in)
	return &model.Community{ID: "c1", Name: in.Name, PCOGroupID: in.PCOGroupID}, nil
}

func (s *stubCommunities) GetCommunity(_ context.Context, id string) (*model.Community, error) {
	if id != "c1" {
		return nil, service.ErrNotFound
	}
	return &model.Community{ID: "c1", Name: "Choir"}, nil
}

func (s *stubCommunities) ListCommunities(context.Context) ([]*model.Community, error) {
	return nil, nil
}

func (s *stubCommunities) AddMember(_ context.Context, communityID, userID string) error {
	if communityID != "c1" {
		return service.ErrNotFound
	}
	s.members[communityID] = append(s.members[communityID], userID)
	return nil
}

func (s *stubCommunities) ListMembers(_ context.Context, communityID string) ([]*model.Member, error) {
	if communityID != "c1" {
		return nil, service.ErrNotFound
	}
	out := make([]*model.Member, 0, len(s.members[communityID]))
	for _, id := range s.members[communityID] {
		out = append(out, &model.Member{ID: id})
	}
	return out, nil
}

type stubSermons struct {
	attached []string
}

func (s *stubSermons) CreatePreaching(_ context.Context, in service.CreatePreachingInput) (*model.Preaching, error) {
	return &model.Preaching{ID: "p1", Title: in.Title, YouTubeURL: in.YouTubeURL, YouTubeVideoID: in.YouTubeVideoID}, nil
}

func (s *stubSermons) GetPreaching(_ context.Context, id string) (*model.Preaching, error) {
	if id != "p1" {
		return nil, service.ErrNotFound
	}
	return &model.Preaching{ID: "p1"}, nil
}

func (s *stubSermons) ListPreachings(_ context.Context, search string) ([]*model.Preaching, error) {
	if search == "" {
		return []*model.Preaching{{ID: "p1"}, {ID: "p2"}}, nil
	}
	return []*model.Preaching{{ID: "p1", Title: search}}, nil
}

func (s *stubSermons) AttachTags(_ context.Context, preachingID string, names []string) ([]*model.Tag, error) {
	if preachingID != "p1" {
		return nil, service.ErrNotFound
	}
	s.attached = append(s.attached, names...)
	tags := make([]*model.Tag, 0, len(names))
	for _, n := range names {
		tags = append(tags, &model.Tag{ID: "t-" + n, Name: n})
	}
	return tags, nil
}

func (s *stubSermons) ListTags(_ context.Context, preachingID string) ([]*model.Tag, error) {
	if preachingID != "p1" {
		return nil, service.ErrNotFound
	}
	return nil, nil
}

type stubTags struct{}

func (stubTags) UpsertTag(_ context.Context, name string) (*model.Tag, error) {
	return &model.Tag{ID: "t1", Name: name}, nil
}

func (stubTags) ListTags(context.Context) ([]*model.Tag, error) {
	return []*model.Tag{{ID: "t1", Name: "faith"}}, nil
}

func newContentRouter() (http.Handler, *stubCommunities, *stubSermons) {
	communities := &stubCommunities{members: make(map[string][]string)}
	sermons := &stubSermons{}
	ch := NewCommunityHandler(communities, nil)
	sh := NewSermonHandler(sermons, nil)
	th := NewTagHandler(stubTags{}, nil)

	r := chi.NewRouter()
	r.Post("/communities", ch.Create)
	r.Get("/communities", ch.List)
	r.Get("/communities/{id}", ch.Get)
	r.Post("/communities/{id}/members", ch.AddMember)
	r.Get("/communities/{id}/members", ch.ListMembers)
	r.Post("/sermons", sh.Create)
	r.Get("/sermons", sh.List)
	r.Get("/sermons/{id}", sh.Get)
	r.Post("/sermons/{id}/tags", sh.AttachTags)
	r.Get("/sermons/{id}/tags", sh.ListTags)
	r.Post("/tags", th.Upsert)
	r.Get("/tags", th.List)
	return r, communities, sermons
}

func TestContentHandlers_Status(t *testing.T) {
	router, _, _ := newContentRouter()

	tests := []struct {
		name      string
		method    string
		path      string
		body      string
		wantCode  int
		wantField string
	}{
		{"create community", http.MethodPost, "/communities", `{"name":"Choir","pco_group_id":"G1"}`, http.StatusCreated, ""},
		{"create community missing group", http.MethodPost, "/communities", `{"name":"Choir"}`, http.StatusBadRequest, "pco_group_id"},
		{"create community duplicate group", http.MethodPost, "/communities", `{"name":"Choir","pco_group_id":"taken"}`, http.StatusConflict, ""},
		{"get community", http.MethodGet, "/communities/c1", "", http.StatusOK, ""},
		{"get missing community", http.MethodGet, "/communities/c9", "", http.StatusNotFound, ""},
		{"add member", http.MethodPost, "/communities/c1/members", `{"user_id":"u1"}`, http.StatusNoContent, ""},
		{"add member missing community", http.MethodPost, "/communities/c9/members", `{"user_id":"u1"}`, http.StatusNotFound, ""},
		{"add member without user", http.MethodPost, "/communities/c1/members", `{}`, http.StatusBadRequest, "user_id"},
		{"members of missing community", http.MethodGet, "/communities/c9/members", "", http.StatusNotFound, ""},
		{"create sermon", http.MethodPost, "/sermons", `{"title":"Grace","youtube_url":"https://youtu.be/abc","youtube_video_id":"abc","recorded_at":"2024-03-10T10:00:00Z"}`, http.StatusCreated, ""},
		{"create sermon bad url", http.MethodPost, "/sermons", `{"title":"Grace","youtube_url":"not a url","youtube_video_id":"abc"}`, http.StatusBadRequest, "youtube_url"},
		{"create sermon bad date", http.MethodPost, "/sermons", `{"title":"Grace","youtube_url":"https://youtu.be/abc","youtube_video_id":"abc","recorded_at":"yesterday"}`, http.StatusBadRequest, ""},
		{"get missing sermon", http.MethodGet, "/sermons/p9", "", http.StatusNotFound, ""},
		{"attach tags", http.MethodPost, "/sermons/p1/tags", `{"names":["faith","hope"]}`, http.StatusOK, ""},
		{"attach no tags", http.MethodPost, "/sermons/p1/tags", `{"names":[]}`, http.StatusBadRequest, "names"},
		{"attach to missing sermon", http.MethodPost, "/sermons/p9/tags", `{"names":["faith"]}`, http.StatusNotFound, ""},
		{"tags of missing sermon", http.MethodGet, "/sermons/p9/tags", "", http.StatusNotFound, ""},
		{"upsert tag", http.MethodPost, "/tags", `{"name":"faith"}`, http.StatusOK, ""},
		{"upsert tag missing name", http.MethodPost, "/tags", `{}`, http.StatusBadRequest, "name"},
		{"list tags", http.MethodGet, "/tags", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, tt.method, tt.path, tt.body, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantField != "" {
				if got := decodeError(t, rec).Field; got != tt.wantField {
					t.Errorf("field = %q, want %q", got, tt.wantField)
				}
			}
		})
	}
}

func TestContentHandlers_EmptyListsEncodeAsArrays(t *testing.T) {
	router, _, _ := newContentRouter()

	for _, path := range []string{"/communities", "/communities/c1/members", "/sermons/p1/tags"} {
		rec := doJSON(t, router, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, rec.Code)
		}
		var body map[string]json.RawMessage
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if string(body["data"]) != "[]" {
			t.Errorf("%s: data = %s, want []", path, body["data"])
		}
	}
}

func TestSermonHandler_SearchAndAttach(t *testing.T) {
	router, communities, sermons := newContentRouter()

	rec := doJSON(t, router, http.MethodGet, "/sermons?q=grace", "", "")
	var list struct {
		Data []model.Preaching `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].Title != "grace" {
		t.Errorf("search results = %+v", list.Data)
	}

	doJSON(t, router, http.MethodPost, "/sermons/p1/tags", `{"names":["faith","hope"]}`, "")
	if len(sermons.attached) != 2 {
		t.Errorf("attached = %v", sermons.attached)
	}

	doJSON(t, router, http.MethodPost, "/communities/c1/members", `{"user_id":"u7"}`, "")
	rec = doJSON(t, router, http.MethodGet, "/communities/c1/members", "", "")
	var members struct {
		Data []model.Member `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&members); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(members.Data) != 1 || members.Data[0].ID != "u7" || len(communities.members["c1"]) != 1 {
		t.Errorf("members = %+v", members.Data)
	}
}
