package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/recarga/backend/internal/config"
	"github.com/recarga/backend/internal/core/services"
	"github.com/recarga/backend/internal/domain"
	"github.com/recarga/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPortal struct {
	err error
}

func (p *stubPortal) Execute(_ context.Context, req domain.RechargeRequest) (domain.RechargeResult, error) {
	if p.err != nil {
		return domain.RechargeResult{}, p.err
	}
	return domain.RechargeResult{PayerName: req.PayerName}, nil
}

type testServer struct {
	app       *fiber.App
	recharges *services.RechargeService
	tasks     *services.TaskService
}

func newTestServer(t *testing.T, csrf bool, portal *stubPortal) *testServer {
	t.Helper()
	log := logger.NewNop()
	cfg := &config.Config{}
	cfg.Security.SecretKey = "test-secret"
	cfg.Security.CSRFEnabled = csrf

	tasks := services.NewTaskService(services.TaskServiceConfig{MaxEntries: 10, TTL: time.Hour})
	recharges := services.NewRechargeService(services.RechargeServiceConfig{
		Tasks:  tasks,
		Portal: portal,
		Logger: log,
	})

	app := fiber.New()
	require.NoError(t, SetupRoutes(app, RouterConfig{
		Logger:    log,
		Config:    cfg,
		Recharges: recharges,
	}))
	return &testServer{app: app, recharges: recharges, tasks: tasks}
}

func (s *testServer) do(t *testing.T, req *nethttp.Request) (*nethttp.Response, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(body, &out))
	}
	return resp, out
}

func postJSON(path, body string) *nethttp.Request {
	req := httptest.NewRequest(nethttp.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRechargeAcceptedAndCompleted(t *testing.T) {
	s := newTestServer(t, false, &stubPortal{})

	resp, body := s.do(t, postJSON("/recharge", `{"forma_pagamento":"DINHEIRO","numero_cartao":"1234","valor":"10"}`))
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	taskID, _ := body["task_id"].(string)
	require.NotEmpty(t, taskID)

	s.recharges.Wait()

	resp, body = s.do(t, httptest.NewRequest(nethttp.MethodGet, "/status/"+taskID, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "Recarga de R$10.00 para o cartão 1234 concluída com sucesso!", body["message"])
}

func TestRechargeLegacyPathAndFailure(t *testing.T) {
	s := newTestServer(t, false, &stubPortal{err: errors.New("element not found")})

	resp, body := s.do(t, postJSON("/recarregar", `{"forma_pagamento":"PIX","numero_cartao":"4321","valor":5}`))
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	taskID := body["task_id"].(string)

	s.recharges.Wait()

	_, body = s.do(t, httptest.NewRequest(nethttp.MethodGet, "/status/"+taskID, nil))
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, services.FailureMessage, body["message"])
}

func TestRechargeMissingFieldCreatesNoTask(t *testing.T) {
	s := newTestServer(t, false, &stubPortal{})

	for _, payload := range []string{
		`{"numero_cartao":"1234","valor":"10"}`,
		`{"forma_pagamento":"PIX","valor":"10"}`,
		`{"forma_pagamento":"PIX","numero_cartao":"1234"}`,
		`not json`,
	} {
		resp, body := s.do(t, postJSON("/recharge", payload))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, payload)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Dados do formulário inválidos.", body["message"])
	}
	assert.Zero(t, s.tasks.Len())
}

func TestStatusUnknownTask(t *testing.T) {
	s := newTestServer(t, false, &stubPortal{})

	resp, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/status/does-not-exist", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "Tarefa não encontrada.", body["message"])
}

func TestHealthAndStatic(t *testing.T) {
	s := newTestServer(t, false, &stubPortal{})

	resp, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, _ = s.do(t, httptest.NewRequest(nethttp.MethodGet, "/static/js/app.js", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, httptest.NewRequest(nethttp.MethodGet, "/ws/status/abc", nil))
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func TestCSRFRequiredWhenEnabled(t *testing.T) {
	s := newTestServer(t, true, &stubPortal{})

	resp, body := s.do(t, postJSON("/recharge", `{"forma_pagamento":"PIX","numero_cartao":"1234","valor":"10"}`))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Zero(t, s.tasks.Len())
}

func TestCSRFTokenFromForm(t *testing.T) {
	s := newTestServer(t, true, &stubPortal{})

	resp, err := s.app.Test(httptest.NewRequest(nethttp.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	match := csrfInput.FindSubmatch(page)
	require.Len(t, match, 2, "form must embed the csrf token")
	token := string(match[1])

	req := postJSON("/recharge", `{"forma_pagamento":"DINHEIRO","numero_cartao":"1234","valor":"3,50"}`)
	req.Header.Set("X-CSRFToken", token)
	for _, c := range resp.Cookies() {
		req.AddCookie(c)
	}
	resp, body := s.do(t, req)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	s.recharges.Wait()
}
