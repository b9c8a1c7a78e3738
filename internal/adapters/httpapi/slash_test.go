package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	memclock "github.com/eastbay-carpool/tokenbot/internal/adapters/memory/clock"
	memidempotency "github.com/eastbay-carpool/tokenbot/internal/adapters/memory/idempotency"
	"github.com/eastbay-carpool/tokenbot/internal/app/commands"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/notifier"
)

type fakeDispatcher struct {
	calls []commands.Request
	reply commands.Reply
	err   error
}

func (f *fakeDispatcher) Execute(_ context.Context, req commands.Request) (commands.Reply, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

func newSlashHarness(t *testing.T, secret string) (*fakeDispatcher, http.Handler) {
	t.Helper()
	d := &fakeDispatcher{reply: commands.Reply{Text: "done"}}
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	h := NewSlashHandler(d, memidempotency.NewStore(), clk, secret, time.Second)
	return d, NewRouter(h)
}

func slashForm(text, triggerID string) url.Values {
	return url.Values{
		"command":      {"/carpool"},
		"text":         {text},
		"team_id":      {"T0001"},
		"user_name":    {"alice"},
		"channel_name": {"general"},
		"trigger_id":   {triggerID},
	}
}

func postForm(t *testing.T, handler http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/command", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestSlashHandler_Dispatch(t *testing.T) {
	t.Parallel()

	d, handler := newSlashHarness(t, "")
	rr := postForm(t, handler, slashForm("give bob 5", "trig-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	var resp struct {
		ResponseType string `json:"response_type"`
		Text         string `json:"text"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ResponseType != "ephemeral" || resp.Text != "done" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if len(d.calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(d.calls))
	}
	call := d.calls[0]
	if call.Command != "/carpool" || call.Text != "give bob 5" || string(call.Org) != "T0001" || string(call.Caller) != "alice" {
		t.Fatalf("unexpected request: %+v", call)
	}
}

func TestSlashHandler_EmptyTextMeansHelp(t *testing.T) {
	t.Parallel()

	d, handler := newSlashHarness(t, "")
	postForm(t, handler, slashForm("", "trig-1"))
	if len(d.calls) != 1 || d.calls[0].Text != "help" {
		t.Fatalf("unexpected calls: %+v", d.calls)
	}
}

func TestSlashHandler_SSLCheck(t *testing.T) {
	t.Parallel()

	d, handler := newSlashHarness(t, "")
	rr := postForm(t, handler, url.Values{"ssl_check": {"1"}, "token": {"tok"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("body = %q, want empty", rr.Body.String())
	}
	if len(d.calls) != 0 {
		t.Fatalf("probe reached dispatcher: %+v", d.calls)
	}
}

func TestSlashHandler_ReplaysDuplicateDelivery(t *testing.T) {
	t.Parallel()

	d, handler := newSlashHarness(t, "")
	form := slashForm("introduce me", "trig-dup")

	first := postForm(t, handler, form)
	second := postForm(t, handler, form)
	if len(d.calls) != 1 {
		t.Fatalf("got %d dispatches, want 1", len(d.calls))
	}
	if second.Code != http.StatusOK || second.Body.String() != first.Body.String() {
		t.Fatalf("replay mismatch: %d %q vs %q", second.Code, second.Body.String(), first.Body.String())
	}

	// A different body under the same trigger id is a fresh command.
	postForm(t, handler, slashForm("status", "trig-dup"))
	if len(d.calls) != 2 {
		t.Fatalf("got %d dispatches, want 2", len(d.calls))
	}
}

func TestSlashHandler_NoTriggerIDSkipsReplay(t *testing.T) {
	t.Parallel()

	d, handler := newSlashHarness(t, "")
	form := slashForm("status", "")
	postForm(t, handler, form)
	postForm(t, handler, form)
	if len(d.calls) != 2 {
		t.Fatalf("got %d dispatches, want 2", len(d.calls))
	}
}

func TestSlashHandler_SignatureVerification(t *testing.T) {
	t.Parallel()

	secret := "8f742231b10e8888abcd99yyyzzz85a5"
	_, handler := newSlashHarness(t, secret)
	body := slashForm("status", "trig-1").Encode()

	// Unsigned requests are rejected.
	rr := postForm(t, handler, slashForm("status", "trig-1"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unsigned status = %d", rr.Code)
	}

	sign := func(ts, body, secret string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		fmt.Fprintf(mac, "v0:%s:%s", ts, body)
		return "v0=" + hex.EncodeToString(mac.Sum(nil))
	}

	ts := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest(http.MethodPost, "/slack/command", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", sign(ts, body, secret))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("signed status = %d, body = %s", rr.Code, rr.Body.String())
	}

	// A signature minted with the wrong secret fails.
	req = httptest.NewRequest(http.MethodPost, "/slack/command", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", sign(ts, body, "wrong-secret"))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("forged status = %d", rr.Code)
	}
}

func TestSlashHandler_DispatcherErrors(t *testing.T) {
	t.Parallel()

	d, handler := newSlashHarness(t, "")
	d.err = context.DeadlineExceeded
	rr := postForm(t, handler, slashForm("status", "trig-1"))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("timeout status = %d", rr.Code)
	}

	d.err = errors.New("pool exhausted")
	rr = postForm(t, handler, slashForm("status", "trig-2"))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("storage status = %d", rr.Code)
	}

	// Failed commands are not recorded for replay.
	d.err = nil
	postForm(t, handler, slashForm("status", "trig-2"))
	if got := d.calls[len(d.calls)-1].Text; got != "status" {
		t.Fatalf("retry was replayed instead of dispatched: %q", got)
	}
	if len(d.calls) != 3 {
		t.Fatalf("got %d dispatches, want 3", len(d.calls))
	}
}

func TestSlashHandler_AttachmentsPassThrough(t *testing.T) {
	t.Parallel()

	d, handler := newSlashHarness(t, "")
	d.reply = commands.Reply{Message: marshalFixture()}

	rr := postForm(t, handler, slashForm("status", "trig-1"))
	var resp commandResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Text != "Current carpooler tokens" {
		t.Fatalf("text = %q", resp.Text)
	}
	if len(resp.Attachments) != 1 || len(resp.Attachments[0].Fields) != 2 {
		t.Fatalf("unexpected attachments: %+v", resp.Attachments)
	}
	if resp.Attachments[0].Fields[0].Title != "alice" || resp.Attachments[0].Fields[0].Value != "24 tokens" {
		t.Fatalf("unexpected field: %+v", resp.Attachments[0].Fields[0])
	}
}

func marshalFixture() *notifier.Message {
	return &notifier.Message{
		Text: "Current carpooler tokens",
		Attachments: []notifier.Attachment{{
			Fields: []notifier.Field{
				{Title: "alice", Value: "24 tokens", Short: true},
				{Title: "bob", Value: "20 tokens", Short: true},
			},
		}},
	}
}

func TestRouter_Healthz(t *testing.T) {
	t.Parallel()

	_, handler := newSlashHarness(t, "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("status = %d body = %q", rr.Code, rr.Body.String())
	}
}
