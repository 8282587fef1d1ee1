package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"learning-gamification/middleware"
	"learning-gamification/services"

	"github.com/gofiber/fiber/v2"
)

const (
	testToken        = "gateway-secret"
	testServiceToken = "service-secret"
)

type stubFetcher map[string]string

func (f stubFetcher) Fetch(_ context.Context, key string) ([]byte, error) {
	doc, ok := f[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return []byte(doc), nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	catalog := services.NewCatalogService(services.NewMemoryCatalogStore())
	if err := catalog.EnsureSeeded(context.Background()); err != nil {
		t.Fatalf("EnsureSeeded failed: %v", err)
	}
	svc := services.NewGamificationService(services.NewMemoryProgressRepository(), catalog)

	app := fiber.New()
	SetupOpsRoutes(app, catalog)
	app.Use(middleware.GatewayAuthMiddleware(testToken))
	SetupGamificationRoutes(app, svc, stubFetcher{
		"seeds/spring.yaml": "badges:\n  - name: Spring Sprint\n    category: special\n    requirement: {metric: lessonsCompleted, value: 3}\n",
	}, testServiceToken)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body, userID, roles string) (int, map[string]any) {
	t.Helper()
	headers := map[string]string{}
	if userID != "" {
		headers["X-User-ID"] = userID
	}
	if roles != "" {
		headers["X-User-Roles"] = roles
	}
	return doWith(t, app, method, path, body, headers)
}

// doInternal calls a collaborator route the way the course and quiz services do.
func doInternal(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	return doWith(t, app, http.MethodPost, path, body, map[string]string{
		middleware.ServiceTokenHeader: testServiceToken,
	})
}

func doWith(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s returned non-JSON body %q", method, path, raw)
		}
	}
	return resp.StatusCode, out
}

func TestGatewayTokenRequired(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/badges", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/badges", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected 401 with a wrong token, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected healthz to skip gateway auth, got %d", resp.StatusCode)
	}
}

func TestProgressFlow(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, http.MethodGet, "/progress", "", "", "")
	if status != fiber.StatusUnauthorized {
		t.Errorf("Expected 401 without a user, got %d", status)
	}

	status, body := do(t, app, http.MethodGet, "/progress", "", "learner", "")
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	progress := body["progress"].(map[string]any)
	if progress["total_xp"].(float64) != 10 || progress["current_streak"].(float64) != 1 {
		t.Errorf("Expected first login reward, got %v", progress)
	}

	status, body = doInternal(t, app, "/internal/activity",
		`{"user_id":"learner","counter":"coursesCompleted","xp":500}`)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["leveled_up"] != true {
		t.Errorf("Expected a level-up, got %v", body["leveled_up"])
	}
	newBadges := body["new_badges"].([]any)
	if len(newBadges) != 1 || newBadges[0].(map[string]any)["id"] != "first-steps" {
		t.Errorf("Expected first-steps from the follow-up sweep, got %v", newBadges)
	}

	status, body = do(t, app, http.MethodGet, "/stats", "", "learner", "")
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["progress"].(map[string]any)["total_xp"].(float64) != 560 {
		t.Errorf("Expected 560 XP, got %v", body["progress"])
	}
	if body["percentile"].(float64) != 100 {
		t.Errorf("Expected the only user at the 100th percentile, got %v", body["percentile"])
	}
}

func TestStatsUnknownUserIs404(t *testing.T) {
	app := newTestApp(t)
	status, body := do(t, app, http.MethodGet, "/stats", "", "nobody", "")
	if status != fiber.StatusNotFound {
		t.Errorf("Expected 404, got %d: %v", status, body)
	}
}

func TestLeaderboardRoute(t *testing.T) {
	app := newTestApp(t)
	for _, u := range []string{"a", "b"} {
		if status, body := do(t, app, http.MethodGet, "/progress", "", u, ""); status != fiber.StatusOK {
			t.Fatalf("Expected 200, got %d: %v", status, body)
		}
	}

	status, body := do(t, app, http.MethodGet, "/leaderboard?type=xp&page=1&limit=5", "", "b", "")
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if len(body["entries"].([]any)) != 2 || body["my_rank"].(float64) != 1 {
		t.Errorf("Expected 2 entries with b sharing rank 1, got %v", body)
	}

	status, body = do(t, app, http.MethodGet, "/leaderboard", "", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200 for anonymous callers, got %d", status)
	}
	if _, ok := body["my_rank"]; ok {
		t.Errorf("Expected no my_rank for anonymous callers")
	}

	status, _ = do(t, app, http.MethodGet, "/leaderboard?type=karma", "", "", "")
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown board, got %d", status)
	}
}

func TestBadgeListingOverlay(t *testing.T) {
	app := newTestApp(t)

	_, body := do(t, app, http.MethodGet, "/badges", "", "", "")
	for _, raw := range body["badges"].([]any) {
		if _, ok := raw.(map[string]any)["earned"]; ok {
			t.Fatalf("Expected no personal status for anonymous callers")
		}
	}

	_, body = do(t, app, http.MethodGet, "/badges", "", "someone", "")
	for _, raw := range body["badges"].([]any) {
		if raw.(map[string]any)["earned"] != false {
			t.Fatalf("Expected earned=false for a fresh user, got %v", raw)
		}
	}
}

func TestAdminAwardXP(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, http.MethodPost, "/admin/award-xp", `{"xp":300,"userId":"target"}`, "boss", "user")
	if status != fiber.StatusForbidden {
		t.Errorf("Expected 403 without admin role, got %d", status)
	}

	status, body := do(t, app, http.MethodPost, "/admin/award-xp", `{"xp":300,"source":"courseCompletion","userId":"target"}`, "boss", "user, admin")
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["leveled_up"] != true || body["user_id"] != "target" {
		t.Errorf("Expected target to level up, got %v", body)
	}

	status, _ = do(t, app, http.MethodPost, "/admin/award-xp", `{"xp":-1,"userId":"target"}`, "boss", "admin")
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for negative XP, got %d", status)
	}
}

func TestAdminCatalogSeedFromObjectStore(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/admin/catalog/seed", `{"key":"seeds/spring.yaml"}`, "boss", "admin")
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["badges"].(float64) != 1 {
		t.Errorf("Expected 1 badge after seeding, got %v", body["badges"])
	}

	_, body = do(t, app, http.MethodGet, "/badges", "", "", "")
	badges := body["badges"].([]any)
	if len(badges) != 1 || badges[0].(map[string]any)["id"] != "spring-sprint" {
		t.Errorf("Expected spring-sprint only, got %v", badges)
	}

	status, _ = do(t, app, http.MethodPost, "/admin/catalog/seed", `{"key":""}`, "boss", "admin")
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for a missing key, got %d", status)
	}
}

func TestAdminCatalogSeedFromBody(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/catalog/seed",
		strings.NewReader("badges:\n  - name: Broken\n    category: nope\n    requirement: {metric: level, value: 1}\n"))
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/yaml")
	req.Header.Set("X-User-ID", "boss")
	req.Header.Set("X-User-Roles", "admin")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for an invalid catalog, got %d", resp.StatusCode)
	}
}

func TestInternalRoutesRequireServiceToken(t *testing.T) {
	app := newTestApp(t)
	grant := `{"user_id":"learner","counter":"coursesCompleted","xp":1000000}`

	status, _ := do(t, app, http.MethodPost, "/internal/activity", grant, "learner", "")
	if status != fiber.StatusForbidden {
		t.Errorf("Expected 403 for a learner without a service token, got %d", status)
	}
	status, _ = do(t, app, http.MethodPost, "/internal/activity", grant, "learner", "admin, service")
	if status != fiber.StatusForbidden {
		t.Errorf("Expected 403 regardless of forwarded roles, got %d", status)
	}
	status, _ = doWith(t, app, http.MethodPost, "/internal/activity", grant, map[string]string{
		middleware.ServiceTokenHeader: testToken,
	})
	if status != fiber.StatusForbidden {
		t.Errorf("Expected 403 when the gateway token is replayed as a service token, got %d", status)
	}

	_, body := do(t, app, http.MethodGet, "/progress", "", "learner", "")
	if xp := body["progress"].(map[string]any)["total_xp"].(float64); xp != 10 {
		t.Errorf("Expected only the login reward, got %v XP", xp)
	}
}

func TestInternalRoutesDisabledWithoutServiceToken(t *testing.T) {
	catalog := services.NewCatalogService(services.NewMemoryCatalogStore())
	svc := services.NewGamificationService(services.NewMemoryProgressRepository(), catalog)
	app := fiber.New()
	app.Use(middleware.GatewayAuthMiddleware(testToken))
	SetupGamificationRoutes(app, svc, nil, "")

	req := httptest.NewRequest(http.MethodPost, "/internal/activity", strings.NewReader(`{"user_id":"u","xp":5}`))
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ServiceTokenHeader, "anything")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected 404 with internal routes unmounted, got %d", resp.StatusCode)
	}
}

func TestInternalRoutesRejectOversizedGrant(t *testing.T) {
	app := newTestApp(t)
	status, _ := doInternal(t, app, "/internal/activity", `{"user_id":"u","counter":"coursesCompleted","xp":1000001}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 above the per-grant limit, got %d", status)
	}
}

func TestInternalRoutesValidateInput(t *testing.T) {
	app := newTestApp(t)

	status, _ := doInternal(t, app, "/internal/study-time", `{"user_id":"u","minutes":-5}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for negative minutes, got %d", status)
	}
	status, _ = doInternal(t, app, "/internal/quiz-result", `{"user_id":"u","score":101}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for an out-of-range score, got %d", status)
	}
	status, _ = doInternal(t, app, "/internal/helpful-votes", `{"user_id":"","votes":3}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for a missing user, got %d", status)
	}
	status, body := doInternal(t, app, "/internal/helpful-votes", `{"user_id":"u","votes":12}`)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	newBadges := body["new_badges"].([]any)
	if len(newBadges) != 1 || newBadges[0].(map[string]any)["id"] != "helpful-hand" {
		t.Errorf("Expected helpful-hand, got %v", newBadges)
	}
}
