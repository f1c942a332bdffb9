package interactions

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ziadkadry99/opbot/internal/accounts"
)

const testTimestamp = "1700000000"

// testKeys returns a fresh key pair and the hex public key.
func testKeys(t *testing.T) (ed25519.PrivateKey, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return priv, hex.EncodeToString(pub)
}

// signedRequest builds a POST /interactions request signed with priv.
func signedRequest(priv ed25519.PrivateKey, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewBufferString(body))
	req.Header.Set(HeaderTimestamp, testTimestamp)
	req.Header.Set(HeaderSignature, Sign(priv, testTimestamp, []byte(body)))
	return req
}

// platformCall is one request received by the fake platform API.
type platformCall struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// data returns the "data" object of a callback body, or the body itself
// for webhook edits and follow-ups.
func (c platformCall) data() map[string]any {
	if d, ok := c.Body["data"].(map[string]any); ok {
		return d
	}
	return c.Body
}

// fakePlatform records API calls and answers with a fixed status.
type fakePlatform struct {
	mu     sync.Mutex
	calls  []platformCall
	status int
	srv    *httptest.Server
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	f := &fakePlatform{status: http.StatusNoContent}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		call := platformCall{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if len(raw) > 0 {
			json.Unmarshal(raw, &call.Body)
		}

		f.mu.Lock()
		f.calls = append(f.calls, call)
		status := f.status
		f.mu.Unlock()

		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"u9","username":"zoro","global_name":"Roronoa Zoro"}`))
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePlatform) setStatus(status int) {
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()
}

func (f *fakePlatform) Calls() []platformCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platformCall(nil), f.calls...)
}

func (f *fakePlatform) client() *Client {
	return NewClient(ClientConfig{BaseURL: f.srv.URL, ApplicationID: "app1", BotToken: "bot-token"}, nil)
}

// mapFinder is an AccountFinder backed by a set of user ids.
type mapFinder struct {
	mu    sync.Mutex
	users map[string]bool
	err   error
	calls int
}

func (m *mapFinder) FindAccount(_ context.Context, userID string) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.users[userID] {
		return &accounts.Account{UserID: userID}, nil
	}
	return nil, nil
}

// recordingObserver collects dispatched events.
type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) Observe(_ context.Context, ev Event) {
	o.mu.Lock()
	o.events = append(o.events, ev)
	o.mu.Unlock()
}

func (o *recordingObserver) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}

// fakeResponder records live-connection responses.
type fakeResponder struct {
	mu        sync.Mutex
	responses []Response
	edits     []*Message
	followups []*Message
	deletes   int
	err       error
}

func (f *fakeResponder) Respond(_ context.Context, resp Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeResponder) EditResponse(_ context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, msg)
	return nil
}

func (f *fakeResponder) FollowUp(_ context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, msg)
	return nil
}

func (f *fakeResponder) DeleteResponse(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}
