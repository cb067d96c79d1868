package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/services"
	"teamstream/internal/infrastructure/middleware"
	memoryrepo "teamstream/internal/infrastructure/repositories/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingGrantStore struct {
	mu      sync.Mutex
	granted map[string]bool
}

func newRecordingGrantStore() *recordingGrantStore {
	return &recordingGrantStore{granted: make(map[string]bool)}
}

func (f *recordingGrantStore) Grant(_ context.Context, p domain.UserID, c domain.Channel, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted[string(p)+"|"+c.String()] = true
	return nil
}

func (f *recordingGrantStore) Revoke(_ context.Context, p domain.UserID, c domain.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.granted, string(p)+"|"+c.String())
	return nil
}

func (f *recordingGrantStore) Has(_ context.Context, p domain.UserID, c domain.Channel) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granted[string(p)+"|"+c.String()], nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	envelopes []*domain.Envelope
}

func (f *recordingPublisher) Publish(_ context.Context, env *domain.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envelopes = append(f.envelopes, env)
	return nil
}

func (f *recordingPublisher) toChannel(channel domain.Channel) []*domain.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Envelope
	for _, env := range f.envelopes {
		if env.Channel == channel.String() {
			out = append(out, env)
		}
	}
	return out
}

type testMetrics struct{}

func (testMetrics) GrantIssued()            {}
func (testMetrics) GrantFailed()            {}
func (testMetrics) RevokeIssued()           {}
func (testMetrics) RevokeFailed()           {}
func (testMetrics) MessagePublished(string) {}
func (testMetrics) PublishFailed(string)    {}
func (testMetrics) QueueSent()              {}
func (testMetrics) QueueFailed()            {}

type apiFixture struct {
	router    *gin.Engine
	token     string
	grants    *recordingGrantStore
	publisher *recordingPublisher
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t).Sugar()

	teams := memoryrepo.NewMemoryTeamRepository()
	streams := memoryrepo.NewMemoryStreamRepository()
	users := memoryrepo.NewMemoryUserRepository()

	require.NoError(t, teams.Save(context.Background(), &domain.Team{
		ID:        "T",
		MemberIDs: []domain.UserID{"u1", "u2"},
	}))
	require.NoError(t, users.Save(context.Background(), &domain.User{
		ID:      "u1",
		TeamIDs: []domain.TeamID{"T"},
	}))
	require.NoError(t, users.Save(context.Background(), &domain.User{
		ID:      "u2",
		TeamIDs: []domain.TeamID{"T"},
	}))

	f := &apiFixture{
		grants:    newRecordingGrantStore(),
		publisher: &recordingPublisher{},
	}

	messager := services.NewMessager(f.publisher, testMetrics{}, time.Second, log)
	teamGranter := services.NewTeamGranter(f.grants, testMetrics{}, time.Hour, time.Second, log)
	streamGranter := services.NewStreamGranter(f.grants, testMetrics{}, time.Hour, time.Second, log)

	authService := services.NewAuthService("test-secret", time.Hour)
	teamService := services.NewTeamService(teams, users, teamGranter, messager, nil, log)
	streamService := services.NewStreamService(streams, teams, streamGranter, messager, log)
	sessionService := services.NewSessionService(users, f.grants, authService, time.Hour, time.Second, log)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())

	NewSessionHandler(sessionService).SetupRoutes(router)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(authService))
	api.Use(middleware.ErrorHandlerMiddleware(log))
	NewTeamHandler(teamService).SetupRoutes(api)
	NewStreamHandler(streamService).SetupRoutes(api)

	f.router = router

	token, err := authService.GenerateToken("u1")
	require.NoError(t, err)
	f.token = token
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestLoginIssuesTokenAndGrants(t *testing.T) {
	f := newAPIFixture(t)

	body, _ := json.Marshal(map[string]string{"user_id": "u1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	granted, err := f.grants.Has(context.Background(), "u1", domain.TeamChannel("T"))
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestGetTeam(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/teams/T", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Team domain.Team `json:"team"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.TeamID("T"), resp.Team.ID)
}

func TestGetTeamNotFound(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/teams/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateTeamMembershipEndToEnd(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPut, "/api/v1/teams/T/membership", map[string][]string{
		"add":    {"u3"},
		"remove": {"u2"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	granted, err := f.grants.Has(context.Background(), "u3", domain.TeamChannel("T"))
	require.NoError(t, err)
	assert.True(t, granted)

	// removed user hears about it on their personal channel
	userEnvs := f.publisher.toChannel(domain.UserChannel("u2"))
	require.Len(t, userEnvs, 1)
	require.NotNil(t, userEnvs[0].Payload.Directive)
	assert.Equal(t, domain.OpPull, userEnvs[0].Payload.Directive.Op)

	// every envelope carries the request ID stamped by the middleware
	for _, env := range f.publisher.toChannel(domain.TeamChannel("T")) {
		assert.NotEmpty(t, env.RequestID)
	}
}

func TestUpdateTeamMembershipEmptyDelta(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPut, "/api/v1/teams/T/membership", map[string][]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAndFetchStream(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/streams", map[string]interface{}{
		"team_id":    "T",
		"type":       "channel",
		"name":       "general",
		"member_ids": []string{"u2"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Stream domain.Stream `json:"stream"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, []domain.UserID{"u1", "u2"}, created.Stream.MemberIDs)

	w = f.do(t, http.MethodGet, "/api/v1/streams/"+string(created.Stream.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/teams/T/streams", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Streams []domain.Stream `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Streams, 1)
}

func TestCreateStreamRejectsBadType(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/streams", map[string]interface{}{
		"team_id": "T",
		"type":    "mystery",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/teams/T", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
