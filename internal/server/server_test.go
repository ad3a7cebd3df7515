package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"meetline/internal/bot"
	"meetline/internal/calendar"
	"meetline/internal/config"
	"meetline/internal/db"
	"meetline/internal/migrate"
	"meetline/internal/notify"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testWebhookSecret = "hook-secret"
)

type fakeInserter struct {
	result calendar.InsertResult
	err    error
}

func (f *fakeInserter) InsertEvent(_ context.Context, _ calendar.Request) (calendar.InsertResult, error) {
	return f.result, f.err
}

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func newTestServer(t *testing.T, ins calendar.Inserter) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	cfg.Bot.AllowedChats = "42"
	b := bot.New(conn, cfg, ins)
	handler, err := New(Config{
		Bot:      b,
		Notifier: notify.Sender{},
		Auth:     AuthConfig{JWTSecret: testJWTSecret, WebhookSecret: testWebhookSecret},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func signTestToken(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestHealthIsOpen(t *testing.T) {
	ts := newTestServer(t, &fakeInserter{})
	res, _ := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", res.StatusCode)
	}
}

func TestMessagesRequireWebhookSecret(t *testing.T) {
	ts := newTestServer(t, &fakeInserter{})
	body := MessageRequest{ChatID: 42, Text: "Party | 12:00"}
	res, _ := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/messages", body, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.StatusCode)
	}
}

func TestMessageFlow(t *testing.T) {
	ins := &fakeInserter{result: calendar.InsertResult{
		HTTPStatus: 200,
		EventID:    "evt-1",
		MeetLink:   "https://meet.google.com/abc-defg-hij",
	}}
	ts := newTestServer(t, ins)
	headers := map[string]string{"X-Meetline-Secret": testWebhookSecret}

	body := MessageRequest{ChatID: 42, Text: "Planning | 12:00 01/06/2024 | 1h"}
	res, data := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/messages", body, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.StatusCode, data)
	}
	var reply MessageResponse
	if err := json.Unmarshal(data, &reply); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if reply.Reply == "" || !bytes.Contains([]byte(reply.Reply), []byte("meet.google.com")) {
		t.Fatalf("reply = %q", reply.Reply)
	}

	// Unauthorized chat still gets a rejection reply over the same route.
	body = MessageRequest{ChatID: 7, Text: "Party | 12:00"}
	res, data = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/messages", body, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if !bytes.Contains([]byte(reply.Reply), []byte("not allowed")) {
		t.Fatalf("reply = %q", reply.Reply)
	}
}

func TestSchedulesNeedBearerToken(t *testing.T) {
	ins := &fakeInserter{result: calendar.InsertResult{
		HTTPStatus: 200,
		EventID:    "evt-1",
		MeetLink:   "https://meet.google.com/abc-defg-hij",
	}}
	ts := newTestServer(t, ins)

	res, _ := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/schedules", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", res.StatusCode)
	}

	hook := map[string]string{"X-Meetline-Secret": testWebhookSecret}
	doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/messages", MessageRequest{ChatID: 42, Text: "Sync | 12:00 01/06/2024"}, hook)

	auth := map[string]string{"Authorization": "Bearer " + signTestToken(t)}
	res, data := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/schedules", nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status with token = %d, body %s", res.StatusCode, data)
	}
	var out struct {
		Items []struct {
			Summary string `json:"summary"`
			Status  string `json:"status"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Summary != "Sync" || out.Items[0].Status != "created" {
		t.Fatalf("items = %+v", out.Items)
	}
}
