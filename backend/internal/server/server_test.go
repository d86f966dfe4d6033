package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circles/backend/internal/graph"
	"circles/backend/internal/notify"
	"circles/backend/internal/social"
	apperrors "circles/backend/pkg/errors"
)

// stubVerifier maps bearer tokens straight to emails.
type stubVerifier map[string]string

func (s stubVerifier) Verify(_ context.Context, token string) (string, error) {
	email, ok := s[token]
	if !ok {
		return "", apperrors.NewAuth("invalid authorization attempt", nil)
	}
	return email, nil
}

type testEnv struct {
	router *gin.Engine
	engine *social.Engine
	tokens stubVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := social.NewEngine(graph.NewMemoryStore())
	tokens := stubVerifier{}
	srv := New(engine, tokens, notify.NewSender(""))
	return &testEnv{router: srv.Router(), engine: engine, tokens: tokens}
}

// addPerson creates an account and registers a bearer token for it.
func (env *testEnv) addPerson(t *testing.T, name, email string) *social.Person {
	t.Helper()
	p := &social.Person{DisplayName: name, Email: email}
	require.NoError(t, env.engine.CreatePerson(context.Background(), p))
	env.tokens["tok-"+email] = email
	return p
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, basePath+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAuth_MissingToken(t *testing.T) {
	env := newTestEnv(t)
	ann := env.addPerson(t, "Ann", "ann@x.com")

	w := env.do(t, "GET", "/users/"+ann.ID, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, decode(t, w), "error")
}

func TestAuth_UnregisteredEmail(t *testing.T) {
	env := newTestEnv(t)
	env.tokens["tok-ghost"] = "ghost@x.com"

	w := env.do(t, "GET", "/users/whoever", "tok-ghost", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetUser_SelfAndLimited(t *testing.T) {
	env := newTestEnv(t)
	ann := env.addPerson(t, "Ann", "ann@x.com")
	bob := env.addPerson(t, "Bob", "bob@x.com")

	w := env.do(t, "GET", "/users/"+ann.ID, "tok-ann@x.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	full := decode(t, w)
	assert.Equal(t, "ann@x.com", full["email"])

	// Someone else only sees the limited projection.
	w = env.do(t, "GET", "/users/"+bob.ID, "tok-ann@x.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	limited := decode(t, w)
	assert.Equal(t, "Bob", limited["display_name"])
	assert.NotContains(t, limited, "email")

	// Subresources are self-only.
	w = env.do(t, "GET", "/users/"+bob.ID+"/circles", "tok-ann@x.com", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetUser_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.addPerson(t, "Ann", "ann@x.com")

	w := env.do(t, "GET", "/users/missing", "tok-ann@x.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostUser_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/users", "", map[string]any{"display_name": "No Email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "email")
}

func TestPostUser_CreatesAccount(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/users", "", map[string]any{
		"display_name": "Ann",
		"email":        "Ann@X.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	p, err := env.engine.FindPersonByEmail(context.Background(), "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", p.DisplayName)
}

func TestPutUser_OnlySelf(t *testing.T) {
	env := newTestEnv(t)
	ann := env.addPerson(t, "Ann", "ann@x.com")
	env.addPerson(t, "Bob", "bob@x.com")

	w := env.do(t, "PUT", "/users/"+ann.ID, "tok-bob@x.com", map[string]any{
		"display_name": "Hacked",
		"email":        "ann@x.com",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "PUT", "/users/"+ann.ID, "tok-ann@x.com", map[string]any{
		"display_name": "Ann Renamed",
		"email":        "ann@x.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.engine.GetPerson(context.Background(), ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann Renamed", got.DisplayName)
}

func TestCircleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ann := env.addPerson(t, "Ann", "ann@x.com")
	bob := env.addPerson(t, "Bob", "bob@x.com")
	_ = env.addPerson(t, "Dee", "dee@x.com")

	w := env.do(t, "POST", "/circles", "tok-ann@x.com", map[string]any{
		"display_name": "crew",
		"owner_id":     ann.ID,
		"People":       []string{ann.ID, bob.ID},
	})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.engine.GetPerson(context.Background(), ann.ID)
	require.NoError(t, err)
	require.Len(t, got.Circles, 1)
	circleID := got.Circles[0]

	// Members see the circle.
	w = env.do(t, "GET", "/circles/"+circleID, "tok-bob@x.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "crew", decode(t, w)["display_name"])

	// Non-members do not.
	w = env.do(t, "GET", "/circles/"+circleID, "tok-dee@x.com", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Only the owner deletes.
	w = env.do(t, "DELETE", "/circles/"+circleID, "tok-bob@x.com", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "DELETE", "/circles/"+circleID, "tok-ann@x.com", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/circles/"+circleID, "tok-ann@x.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutCircle_MemberPermissions(t *testing.T) {
	env := newTestEnv(t)
	ann := env.addPerson(t, "Ann", "ann@x.com")
	bob := env.addPerson(t, "Bob", "bob@x.com")
	cam := env.addPerson(t, "Cam", "cam@x.com")

	circle := &social.Circle{DisplayName: "crew", OwnerID: ann.ID, Members: []string{ann.ID, bob.ID}}
	require.NoError(t, env.engine.CreateCircle(context.Background(), circle))

	// A member can add people only when the circle stays open to it.
	w := env.do(t, "PUT", "/circles/"+circle.ID, "tok-bob@x.com", map[string]any{
		"display_name": "crew",
		"owner_id":     ann.ID,
		"People":       []string{ann.ID, bob.ID, cam.ID},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "PUT", "/circles/"+circle.ID, "tok-bob@x.com", map[string]any{
		"display_name":    "crew",
		"owner_id":        ann.ID,
		"members_can_add": true,
		"People":          []string{ann.ID, bob.ID, cam.ID},
	})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.engine.GetCircle(context.Background(), circle.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ann.ID, bob.ID, cam.ID}, got.Members)
}

func TestPostEvent_PermissionsAndFanOut(t *testing.T) {
	env := newTestEnv(t)
	ann := env.addPerson(t, "Ann", "ann@x.com")
	bob := env.addPerson(t, "Bob", "bob@x.com")

	circle := &social.Circle{DisplayName: "crew", OwnerID: ann.ID, Members: []string{ann.ID, bob.ID}}
	require.NoError(t, env.engine.CreateCircle(context.Background(), circle))

	payload := map[string]any{
		"display_name":   "picnic",
		"location":       "park",
		"start_datetime": "2026-09-12T18:00:00Z",
		"end_datetime":   "2026-09-12T20:00:00Z",
		"Circle":         circle.ID,
	}

	// Members cannot ping unless the circle allows it.
	w := env.do(t, "POST", "/events", "tok-bob@x.com", payload)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "POST", "/events", "tok-ann@x.com", payload)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.engine.GetPerson(context.Background(), bob.ID)
	require.NoError(t, err)
	require.Len(t, got.Invites, 1)
	assert.False(t, got.Invites[0].Attending)

	// Invitees see the event; the People map carries attendance.
	w = env.do(t, "GET", "/events/"+got.Invites[0].ID+"/people", "tok-bob@x.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var people map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &people))
	assert.Equal(t, map[string]bool{ann.ID: false, bob.ID: false}, people)
}

func TestGetID_RegistersMessagingToken(t *testing.T) {
	env := newTestEnv(t)
	ann := env.addPerson(t, "Ann", "ann@x.com")

	req, err := http.NewRequest("GET", basePath+"/getid", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "tok-ann@x.com")
	req.Header.Set("Messaging", "fcm-token-1")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ann.ID, w.Body.String())

	got, err := env.engine.GetPerson(context.Background(), ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "fcm-token-1", got.MessagingToken)
}

func TestPostSyncKnows_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ann := env.addPerson(t, "Ann", "ann@x.com")
	bob := env.addPerson(t, "Bob", "bob@x.com")

	circle := &social.Circle{DisplayName: "crew", OwnerID: ann.ID, Members: []string{ann.ID, bob.ID}}
	require.NoError(t, env.engine.CreateCircle(context.Background(), circle))

	w := env.do(t, "POST", "/circles/"+circle.ID+"/sync-knows", "tok-bob@x.com", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "POST", "/circles/"+circle.ID+"/sync-knows", "tok-ann@x.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["edges_created"])
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}
