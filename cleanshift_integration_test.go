package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cleanshift/config"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/router"
	"github.com/yeremiapane/cleanshift/services"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:?_foreign_keys=on"},
		Monitor: config.MonitorConfig{
			Interval:     time.Minute,
			GracePeriod:  5 * time.Minute,
			QueryTimeout: time.Second,
			AlertTimeout: time.Second,
			Timezone:     "UTC",
		},
		Notify: config.NotifyConfig{
			NATSSubject:    "cleanshift.alerts",
			WebhookTimeout: time.Second,
		},
	}
}

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *client) call(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp
}

func (c *client) mustCall(method, path string, body interface{}, want int) map[string]interface{} {
	c.t.Helper()
	code, resp := c.call(method, path, body)
	require.Equal(c.t, want, code, "%s %s: %v", method, path, resp)
	data, _ := resp["data"].(map[string]interface{})
	return data
}

func login(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	c := &client{t: t, router: r}
	data := c.mustCall(http.MethodPost, "/login", gin.H{"email": email, "password": password}, http.StatusOK)
	return data["token"].(string)
}

// TestEndToEndEscalation walks the main flow:
// register an admin and a worker, schedule a morning task, let the grace period
// lapse, sweep, and check every alert channel.
func TestEndToEndEscalation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var (
		mu       sync.Mutex
		webhooks []map[string]interface{}
	)
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		webhooks = append(webhooks, body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer relay.Close()

	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second))
	defer ns.Shutdown()

	cfg := testConfig()
	cfg.Notify.WebhookURL = relay.URL
	cfg.Notify.NATSURL = ns.ClientURL()

	a, err := newApp(cfg)
	require.NoError(t, err)
	defer a.Close()

	r := router.SetupRouter(router.Deps{
		DB:           a.db,
		Tasks:        a.tasks,
		Availability: a.availability,
		Monitor:      a.monitor,
		Hub:          a.hub,
		Gatherer:     a.registry,
	})
	public := &client{t: t, router: r}

	public.mustCall(http.MethodPost, "/register", gin.H{
		"name": "Dispatch", "email": "dispatch@example.com", "password": "password123", "role": "admin",
	}, http.StatusCreated)
	workerUser := public.mustCall(http.MethodPost, "/register", gin.H{
		"name": "Ana", "email": "ana@example.com", "password": "password123", "role": "worker",
	}, http.StatusCreated)

	admin := &client{t: t, router: r, token: login(t, r, "dispatch@example.com", "password123")}
	worker := &client{t: t, router: r, token: login(t, r, "ana@example.com", "password123")}

	var adminProfile models.Admin
	require.NoError(t, a.db.Where("email = ?", "dispatch@example.com").First(&adminProfile).Error)

	w := admin.mustCall(http.MethodPost, "/admin/workers", gin.H{
		"admin_id": adminProfile.ID,
		"user_id":  workerUser["user_id"],
		"name":     "Ana",
		"deployed": true,
	}, http.StatusCreated)
	workerID := w["id"]

	cl := admin.mustCall(http.MethodPost, "/admin/clients", gin.H{"name": "Harbour Flats"}, http.StatusCreated)
	prop := admin.mustCall(http.MethodPost, "/admin/properties", gin.H{
		"client_id": cl["id"],
		"address":   "12 Quay Street",
	}, http.StatusCreated)

	morning := admin.mustCall(http.MethodPost, "/admin/tasks", gin.H{
		"property_id": prop["id"],
		"worker_id":   workerID,
		"date":        "2026-10-16",
		"shift":       "morning",
	}, http.StatusCreated)
	evening := admin.mustCall(http.MethodPost, "/admin/tasks", gin.H{
		"property_id": prop["id"],
		"worker_id":   workerID,
		"date":        "2026-10-16",
		"shift":       "evening",
	}, http.StatusCreated)

	// the worker is already booked for the morning
	code, _ := admin.call(http.MethodPost, "/admin/tasks", gin.H{
		"property_id": prop["id"],
		"worker_id":   workerID,
		"date":        "2026-10-16",
		"shift":       "morning",
	})
	assert.Equal(t, http.StatusConflict, code)

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	sub, err := nc.SubscribeSync(fmt.Sprintf("cleanshift.alerts.%d", adminProfile.ID))
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	a.monitor.Now = func() time.Time { return time.Date(2026, 10, 16, 8, 6, 0, 0, time.UTC) }
	result := a.monitor.Sweep(context.Background())
	assert.Equal(t, 2, result.Examined)
	assert.Equal(t, 1, result.Breached)
	assert.Equal(t, 1, result.Alerted)

	mu.Lock()
	require.Len(t, webhooks, 1)
	assert.Equal(t, "dispatch@example.com", webhooks[0]["to"])
	mu.Unlock()

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	var alert services.Alert
	require.NoError(t, json.Unmarshal(msg.Data, &alert))
	assert.EqualValues(t, morning["id"], alert.TaskID)

	code, resp := admin.call(http.MethodGet, "/admin/notifications", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["data"], 1)

	// the worker confirms the evening shift in time; a later sweep leaves it alone
	worker.mustCall(http.MethodPost, fmt.Sprintf("/worker/tasks/%v/acknowledge", evening["id"]), nil, http.StatusOK)
	a.monitor.Now = func() time.Time { return time.Date(2026, 10, 16, 19, 0, 0, 0, time.UTC) }
	result = a.monitor.Sweep(context.Background())
	assert.Zero(t, result.Examined)

	code, _ = public.call(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestNewAppRejectsUnreachableNATS(t *testing.T) {
	cfg := testConfig()
	cfg.Notify.NATSURL = "nats://127.0.0.1:1"

	_, err := newApp(cfg)
	assert.Error(t, err)
}

func TestBuildGatewayPrimary(t *testing.T) {
	a, err := newApp(testConfig())
	require.NoError(t, err)
	defer a.Close()

	gw, err := a.buildGateway()
	require.NoError(t, err)
	fanout, ok := gw.(*services.FanoutGateway)
	require.True(t, ok)
	assert.IsType(t, &services.StoreGateway{}, fanout.Primary)
	assert.Len(t, fanout.Secondary, 2)

	a.cfg.Notify.WebhookURL = "http://relay.invalid/alerts"
	gw, err = a.buildGateway()
	require.NoError(t, err)
	fanout = gw.(*services.FanoutGateway)
	assert.IsType(t, &services.WebhookGateway{}, fanout.Primary)
	assert.Len(t, fanout.Secondary, 3)
}

func TestCountString(t *testing.T) {
	assert.Equal(t, "0", countString(0, func(f string, a ...interface{}) string { return "painted" }))
	assert.Equal(t, "painted", countString(3, func(f string, a ...interface{}) string { return "painted" }))
}
