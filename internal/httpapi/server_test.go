package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/blob"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/catalog"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

type harness struct {
	t      *testing.T
	router *gin.Engine
	auth   *Authenticator
	admin  string
	member string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := core.NewInMemoryService(nil)
	store, err := blob.Open(context.Background(), blob.Config{Driver: blob.DriverMemory})
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	auth := NewAuthenticator(testSecret, "ffetrack")
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ffe_operations_total 0\n"))
	})
	router := NewRouter(Config{
		Workflow:    svc,
		Archive:     catalog.New(svc, store),
		Auth:        auth,
		Metrics:     metrics,
		CORSOrigins: []string{"https://studio.example"},
	})
	h := &harness{t: t, router: router, auth: auth}
	h.admin = h.token(domain.Actor{ID: "admin-1", Role: domain.RoleAdmin})
	h.member = h.token(domain.Actor{ID: "member-1", Role: domain.RoleMember, Rooms: []string{"bath-1"}})
	return h
}

func (h *harness) token(actor domain.Actor) string {
	h.t.Helper()
	tok, err := h.auth.Issue(actor, time.Hour)
	if err != nil {
		h.t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// data decodes the envelope's data field into dst after checking the status.
func (h *harness) data(rec *httptest.ResponseRecorder, want int, dst any) {
	h.t.Helper()
	if rec.Code != want {
		h.t.Fatalf("status = %d, want %d: %s", rec.Code, want, rec.Body.String())
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		h.t.Fatalf("decode envelope: %v", err)
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			h.t.Fatalf("decode data: %v", err)
		}
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, rec.Body.String())
	}
	return env.Error.Code
}

// seed authors a bathroom template with a Vanity item carrying a double
// vanity option and instantiates it into bath-1.
func (h *harness) seed() (domain.Template, map[string]domain.RoomItem) {
	h.t.Helper()
	var tpl domain.Template
	h.data(h.do("POST", "/api/v1/templates", h.admin, gin.H{"name": "Bathroom"}), http.StatusCreated, &tpl)
	var sec domain.Section
	h.data(h.do("POST", "/api/v1/templates/"+tpl.ID+"/sections", h.admin, gin.H{"name": "Plumbing"}), http.StatusCreated, &sec)
	h.data(h.do("POST", "/api/v1/sections/"+sec.ID+"/items", h.admin, gin.H{
		"name":     "Vanity",
		"category": "Cabinetry",
		"logic_options": []gin.H{{
			"id": "double", "name": "Double Vanity", "items_to_create": 2,
			"sub_items": []gin.H{{"name": "Left Vanity"}, {"name": "Right Vanity"}},
		}},
	}), http.StatusCreated, nil)
	h.data(h.do("POST", "/api/v1/sections/"+sec.ID+"/items", h.admin, gin.H{"name": "Mirror"}), http.StatusCreated, nil)
	var state domain.RoomState
	h.data(h.do("POST", "/api/v1/rooms/bath-1/instantiate", h.admin, gin.H{"template_id": tpl.ID}), http.StatusCreated, &state)
	items := map[string]domain.RoomItem{}
	for _, it := range state.Items {
		items[it.Name] = it
	}
	return tpl, items
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	h := newHarness(t)
	if rec := h.do("GET", "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	rec := h.do("GET", "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ffe_operations_total") {
		t.Fatalf("metrics = %d %s", rec.Code, rec.Body.String())
	}
}

func TestAPIRequiresValidToken(t *testing.T) {
	h := newHarness(t)
	if rec := h.do("GET", "/api/v1/templates", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token = %d", rec.Code)
	}
	if rec := h.do("GET", "/api/v1/templates", "not-a-jwt", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token = %d", rec.Code)
	}
	other := NewAuthenticator("other-secret", "ffetrack")
	forged, err := other.Issue(domain.Actor{ID: "x", Role: domain.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if rec := h.do("GET", "/api/v1/templates", forged, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token = %d", rec.Code)
	}
	expired, err := h.auth.Issue(domain.Actor{ID: "x", Role: domain.RoleAdmin}, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if rec := h.do("GET", "/api/v1/templates", expired, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token = %d", rec.Code)
	}
}

func TestParseRejectsBadClaims(t *testing.T) {
	auth := NewAuthenticator(testSecret, "ffetrack")
	sign := func(claims Claims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	cases := map[string]Claims{
		"no subject":   {Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Issuer: "ffetrack", ExpiresAt: future}},
		"bad role":     {Role: "owner", RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: "ffetrack", ExpiresAt: future}},
		"wrong issuer": {Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: "elsewhere", ExpiresAt: future}},
	}
	for name, claims := range cases {
		if _, err := auth.Parse(sign(claims)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
	actor, err := auth.Parse(sign(Claims{Role: "Member", Rooms: []string{"r1"}, RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: "ffetrack", ExpiresAt: future}}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if actor.Role != domain.RoleMember || !actor.CanEditRoom("r1") || actor.CanEditRoom("r2") {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestRoomWorkflowOverHTTP(t *testing.T) {
	h := newHarness(t)
	_, items := h.seed()
	vanity := items["Vanity"]

	var children []domain.RoomItem
	h.data(h.do("PUT", "/api/v1/room-items/"+vanity.ID+"/logic-option", h.member, gin.H{"option_id": "double"}), http.StatusOK, &children)
	if len(children) != 2 || children[0].Name != "Left Vanity" {
		t.Fatalf("unexpected children %+v", children)
	}

	var updated domain.RoomItem
	h.data(h.do("PUT", "/api/v1/room-items/"+children[0].ID+"/status", h.member, gin.H{"status": "completed"}), http.StatusOK, &updated)
	if updated.Status != domain.StatusCompleted {
		t.Fatalf("status = %s", updated.Status)
	}
	h.data(h.do("PUT", "/api/v1/room-items/"+children[1].ID+"/notes", h.member, gin.H{"notes": "matte black"}), http.StatusOK, &updated)
	if updated.Notes != "matte black" {
		t.Fatalf("notes = %q", updated.Notes)
	}

	var progress domain.Progress
	h.data(h.do("GET", "/api/v1/rooms/bath-1/progress", h.member, nil), http.StatusOK, &progress)
	if progress.Total != 4 || progress.Completed != 1 || progress.Percent != 25 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	var expansions []domain.Expansion
	h.data(h.do("GET", "/api/v1/room-items/"+vanity.ID+"/expansions", h.member, nil), http.StatusOK, &expansions)
	if len(expansions) != 1 || !expansions[0].Active {
		t.Fatalf("unexpected expansions %+v", expansions)
	}

	h.data(h.do("PUT", "/api/v1/room-items/"+items["Mirror"].ID+"/visibility", h.member, gin.H{"visible": false}), http.StatusOK, nil)
	var state domain.RoomState
	h.data(h.do("GET", "/api/v1/rooms/bath-1", h.member, nil), http.StatusOK, &state)
	if len(state.Items) != 3 {
		t.Fatalf("expected 3 visible items, got %d", len(state.Items))
	}
	h.data(h.do("GET", "/api/v1/rooms/bath-1?include_hidden=true", h.member, nil), http.StatusOK, &state)
	if len(state.Items) != 4 {
		t.Fatalf("expected 4 items with hidden, got %d", len(state.Items))
	}

	var cleared domain.RoomItem
	h.data(h.do("DELETE", "/api/v1/room-items/"+vanity.ID+"/logic-option", h.member, nil), http.StatusOK, &cleared)
	if cleared.ActiveLogicOptionID != nil {
		t.Fatalf("expected cleared option, got %v", *cleared.ActiveLogicOptionID)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	h := newHarness(t)
	tpl, items := h.seed()
	mirror := items["Mirror"]

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"bad status", "PUT", "/api/v1/room-items/" + mirror.ID + "/status", h.member, gin.H{"status": "SHIPPED"}, http.StatusBadRequest, "validation"},
		{"missing body field", "PUT", "/api/v1/room-items/" + mirror.ID + "/visibility", h.member, gin.H{}, http.StatusBadRequest, "validation"},
		{"bad query", "GET", "/api/v1/rooms/bath-1?include_hidden=maybe", h.member, nil, http.StatusBadRequest, "validation"},
		{"duplicate room", "POST", "/api/v1/rooms/bath-1/instantiate", h.admin, gin.H{"template_id": tpl.ID}, http.StatusConflict, "conflict"},
		{"unknown item", "PUT", "/api/v1/room-items/nope/status", h.member, gin.H{"status": "UNDECIDED"}, http.StatusNotFound, "not_found"},
		{"unknown room", "GET", "/api/v1/rooms/nowhere/progress", h.admin, nil, http.StatusNotFound, "not_found"},
		{"unassigned room read", "GET", "/api/v1/rooms/nowhere", h.member, nil, http.StatusForbidden, "permission"},
		{"member authoring", "POST", "/api/v1/templates", h.member, gin.H{"name": "X"}, http.StatusForbidden, "permission"},
		{"unknown option", "PUT", "/api/v1/room-items/" + items["Vanity"].ID + "/logic-option", h.member, gin.H{"option_id": "triple"}, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		rec := h.do(tc.method, tc.path, tc.token, tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s: status = %d, want %d: %s", tc.name, rec.Code, tc.status, rec.Body.String())
		}
		if got := errorCode(t, rec); got != tc.code {
			t.Fatalf("%s: code = %q, want %q", tc.name, got, tc.code)
		}
	}

	h.data(h.do("PUT", "/api/v1/room-items/"+mirror.ID+"/visibility", h.member, gin.H{"visible": false}), http.StatusOK, nil)
	rec := h.do("PUT", "/api/v1/room-items/"+mirror.ID+"/status", h.member, gin.H{"status": "UNDECIDED"})
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "parent_not_visible" {
		t.Fatalf("hidden item status = %d %s", rec.Code, rec.Body.String())
	}

	outsider := h.token(domain.Actor{ID: "member-2", Role: domain.RoleMember, Rooms: []string{"kitchen-1"}})
	rec = h.do("PUT", "/api/v1/room-items/"+items["Vanity"].ID+"/notes", outsider, gin.H{"notes": "x"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unassigned member = %d", rec.Code)
	}
}

func TestTemplateArchiveRoutes(t *testing.T) {
	h := newHarness(t)
	tpl, _ := h.seed()

	var exported struct {
		Key string `json:"key"`
	}
	h.data(h.do("POST", "/api/v1/templates/"+tpl.ID+"/archives", h.admin, nil), http.StatusCreated, &exported)
	if !strings.HasPrefix(exported.Key, "templates/"+tpl.ID+"/") {
		t.Fatalf("unexpected key %q", exported.Key)
	}
	var entries []catalog.Entry
	h.data(h.do("GET", "/api/v1/templates/"+tpl.ID+"/archives", h.admin, nil), http.StatusOK, &entries)
	if len(entries) != 1 || entries[0].Key != exported.Key {
		t.Fatalf("unexpected entries %+v", entries)
	}
	var restored domain.TemplateDetail
	h.data(h.do("POST", "/api/v1/archives/import", h.admin, gin.H{"key": exported.Key}), http.StatusCreated, &restored)
	if restored.Template.ID == tpl.ID || restored.Template.Name != "Bathroom" {
		t.Fatalf("unexpected restored template %+v", restored.Template)
	}
	var list []domain.Template
	h.data(h.do("GET", "/api/v1/templates", h.admin, nil), http.StatusOK, &list)
	if len(list) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(list))
	}
	var detail domain.TemplateDetail
	h.data(h.do("GET", "/api/v1/templates/"+restored.Template.ID, h.admin, nil), http.StatusOK, &detail)
	if len(detail.Sections) != 1 || len(detail.Sections[0].Items) != 2 {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestUpdateItemRoute(t *testing.T) {
	h := newHarness(t)
	tpl, _ := h.seed()
	var detail domain.TemplateDetail
	h.data(h.do("GET", "/api/v1/templates/"+tpl.ID, h.admin, nil), http.StatusOK, &detail)
	mirror := detail.Sections[0].Items[1]
	var updated domain.TemplateItem
	h.data(h.do("PUT", "/api/v1/template-items/"+mirror.ID, h.admin, gin.H{"name": "Mirror", "category": "Glass"}), http.StatusOK, &updated)
	if updated.Category != "Glass" {
		t.Fatalf("category = %q", updated.Category)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/templates", nil)
	req.Header.Set("Origin", "https://studio.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://studio.example" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[domain.ErrorKind]int{
		domain.KindValidation:       http.StatusBadRequest,
		domain.KindConflict:         http.StatusConflict,
		domain.KindNotFound:         http.StatusNotFound,
		domain.KindPermission:       http.StatusForbidden,
		domain.KindParentNotVisible: http.StatusUnprocessableEntity,
		domain.KindInternal:         http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := statusFor(kind); got != want {
			t.Fatalf("statusFor(%s) = %d, want %d", kind, got, want)
		}
	}
}
