package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/arctic-chat/internal/ai"
	"example.com/arctic-chat/internal/chat"
	"example.com/arctic-chat/internal/config"
	"example.com/arctic-chat/internal/models"
)

func testConfig() config.Config {
	return config.Config{
		Session: config.SessionConfig{
			Secret:     "secret",
			Issuer:     "arctic-chat",
			TTL:        time.Hour,
			CookieName: "arctic_session",
		},
		AI: config.AIConfig{
			Provider:           "mock",
			TextModel:          "mock-model",
			ImagesEnabled:      true,
			RateLimitPerMinute: 600,
			RateLimitBurst:     10,
		},
		Chat: config.ChatConfig{MaxPromptTokens: 1500},
	}
}

func newTestServer(t *testing.T, client *ai.MockClient) (*httptest.Server, *http.Client) {
	t.Helper()

	store := chat.NewStore(chat.StoreConfig{})
	t.Cleanup(store.Close)

	e, err := New(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)), Dependencies{
		Text:     client,
		Images:   client,
		Tokens:   ai.TokenCounterFunc(func(text string) (int, error) { return len(strings.Fields(text)), nil }),
		Sessions: store,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return srv, &http.Client{Jar: jar}
}

func getSnapshot(t *testing.T, client *http.Client, baseURL string) models.Snapshot {
	t.Helper()

	resp, err := client.Get(baseURL + "/api/v1/chat")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	defer resp.Body.Close()

	var snapshot models.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snapshot
}

// TestChatFlow проверяет полный цикл: страница, сообщение, снимок и сброс по cookie сессии.
func TestChatFlow(t *testing.T) {
	mock := ai.NewMockClient("Hi ", "there")
	mock.ImageURL = "https://example.com/a.png"
	srv, client := newTestServer(t, mock)

	resp, err := client.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(page), "Snowflake AI Research") {
		t.Fatalf("expected page with greeting, got %d", resp.StatusCode)
	}

	resp, err = client.Post(srv.URL+"/api/v1/chat/messages", "application/json", strings.NewReader(`{"content":"Hello"}`))
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}
	resp.Body.Close()

	if got := strings.Join(events, ","); got != "turn,turn,chunk,chunk,image,done" {
		t.Fatalf("unexpected events %s", got)
	}

	snapshot := getSnapshot(t, client, srv.URL)
	if len(snapshot.Turns) != 3 || snapshot.Turns[2].Content != "Hi there" {
		t.Fatalf("unexpected history %+v", snapshot.Turns)
	}

	calls := mock.TextCalls()
	if len(calls) != 1 || calls[0].Temperature != chat.DefaultTemperature || calls[0].TopP != chat.DefaultTopP {
		t.Fatalf("unexpected text calls %+v", calls)
	}
	if images := mock.ImageCalls(); len(images) != 1 || images[0] != "Hello" {
		t.Fatalf("expected one image call seeded by the user turn, got %v", images)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/chat/messages", nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("clear history: %v", err)
	}
	resp.Body.Close()

	snapshot = getSnapshot(t, client, srv.URL)
	if len(snapshot.Turns) != 1 || snapshot.Turns[0].Content != chat.DefaultGreeting {
		t.Fatalf("expected greeting-only history, got %+v", snapshot.Turns)
	}
}

// TestSessionsAreIsolated проверяет, что разные браузеры не видят чужую историю.
func TestSessionsAreIsolated(t *testing.T) {
	srv, first := newTestServer(t, ai.NewMockClient("ok"))

	resp, err := first.Post(srv.URL+"/api/v1/chat/messages", "application/json", strings.NewReader(`{"content":"Hello"}`))
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	jar, _ := cookiejar.New(nil)
	second := &http.Client{Jar: jar}

	if got := len(getSnapshot(t, first, srv.URL).Turns); got != 3 {
		t.Fatalf("expected 3 turns for the first browser, got %d", got)
	}
	if got := len(getSnapshot(t, second, srv.URL).Turns); got != 1 {
		t.Fatalf("expected a fresh session for the second browser, got %d turns", got)
	}
}

// TestEventsMirrorChat проверяет дублирование событий чата в SSE-канал сессии.
func TestEventsMirrorChat(t *testing.T) {
	srv, client := newTestServer(t, ai.NewMockClient("ok"))
	getSnapshot(t, client, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/chat/events", nil)
	stream, err := client.Do(req)
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer stream.Body.Close()

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stream.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	waitFor := func(event string) {
		t.Helper()
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed before %s", event)
				}
				if line == "event: "+event {
					return
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %s", event)
			}
		}
	}
	waitFor("connected")

	resp, err := client.Post(srv.URL+"/api/v1/chat/messages", "application/json", strings.NewReader(`{"content":"Hello"}`))
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	waitFor("chunk")
	waitFor("done")
}

// TestHealth проверяет эндпоинт здоровья без cookie.
func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, ai.NewMockClient())

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || len(resp.Cookies()) != 0 {
		t.Fatalf("expected 200 without session cookie, got %d", resp.StatusCode)
	}
}

// TestNewAIClientUnknownProvider проверяет ошибку для неизвестного провайдера.
func TestNewAIClientUnknownProvider(t *testing.T) {
	if _, err := NewAIClient(context.Background(), config.AIConfig{Provider: "groq", APIKey: "k"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
