package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"github.com/eastbay-carpool/tokenbot/internal/app/commands"
	"github.com/eastbay-carpool/tokenbot/internal/domain"
	clockport "github.com/eastbay-carpool/tokenbot/internal/ports/out/clock"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/idempotency"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/notifier"
)

// Dispatcher runs one parsed command.
type Dispatcher interface {
	Execute(ctx context.Context, req commands.Request) (commands.Reply, error)
}

// SlashHandler is the slash-command webhook endpoint. It verifies the
// request signature, replays duplicate deliveries from the idempotency
// store, and translates dispatcher output to the chat platform's response
// payload.
type SlashHandler struct {
	dispatcher Dispatcher
	idem       idempotency.Store
	clk        clockport.Clock

	// signingSecret verifies inbound requests; empty disables
	// verification (local development only).
	signingSecret string

	// timeout bounds one command's execution. The platform retries the
	// delivery if we miss its 3 second response deadline.
	timeout time.Duration
}

func NewSlashHandler(d Dispatcher, idem idempotency.Store, clk clockport.Clock, signingSecret string, timeout time.Duration) *SlashHandler {
	if timeout <= 0 {
		timeout = 2500 * time.Millisecond
	}
	return &SlashHandler{
		dispatcher:    d,
		idem:          idem,
		clk:           clk,
		signingSecret: signingSecret,
		timeout:       timeout,
	}
}

func (h *SlashHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "cannot read request body")
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if h.signingSecret != "" {
		sv, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_SIGNATURE", "missing signature headers")
			return
		}
		if _, err := sv.Write(body); err != nil {
			writeError(w, r, http.StatusInternalServerError, "INTERNAL", "signature check failed")
			return
		}
		if err := sv.Ensure(); err != nil {
			writeError(w, r, http.StatusUnauthorized, "BAD_SIGNATURE", "invalid request signature")
			return
		}
	}

	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "cannot parse slash command")
		return
	}

	// Certificate probe; reply empty 200.
	if r.PostFormValue("ssl_check") == "1" {
		w.WriteHeader(http.StatusOK)
		return
	}

	fp := idempotency.Fingerprint{
		Org:       domain.OrgID(cmd.TeamID),
		User:      domain.MemberName(cmd.UserName),
		TriggerID: cmd.TriggerID,
		BodyHash:  hashBody(body),
	}
	// Deliveries without a trigger id cannot be fingerprinted safely.
	replayable := cmd.TriggerID != ""
	if replayable {
		if rec, ok, err := h.idem.Get(r.Context(), fp); err != nil {
			// Degrade to non-idempotent rather than refusing the command.
			log.Printf("idempotency get: %v", err)
		} else if ok {
			writeRecord(w, rec)
			return
		}
	}

	text := cmd.Text
	if text == "" {
		text = "help"
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reply, err := h.dispatcher.Execute(ctx, commands.Request{
		Command: cmd.Command,
		Text:    text,
		Org:     domain.OrgID(cmd.TeamID),
		Caller:  domain.MemberName(cmd.UserName),
		Channel: cmd.ChannelName,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, r, http.StatusServiceUnavailable, "RETRYABLE", "command timed out, please retry")
			return
		}
		log.Printf("command %q failed: %v", cmd.Text, err)
		writeError(w, r, http.StatusBadGateway, "STORAGE_UNAVAILABLE", "something went wrong, please retry")
		return
	}

	rec := idempotency.Record{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Body:        marshalReply(reply),
		CreatedAt:   h.clk.Now(),
	}
	if replayable {
		if err := h.idem.Put(r.Context(), fp, rec); err != nil {
			log.Printf("idempotency put: %v", err)
		}
	}
	writeRecord(w, rec)
}

type fieldJSON struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type attachmentJSON struct {
	Title  string      `json:"title,omitempty"`
	Text   string      `json:"text"`
	Fields []fieldJSON `json:"fields,omitempty"`
}

type commandResponse struct {
	ResponseType string           `json:"response_type"`
	Text         string           `json:"text"`
	Attachments  []attachmentJSON `json:"attachments,omitempty"`
}

func marshalReply(reply commands.Reply) []byte {
	resp := commandResponse{ResponseType: "ephemeral", Text: reply.Text}
	if reply.Message != nil {
		if resp.Text == "" {
			resp.Text = reply.Message.Text
		}
		resp.Attachments = toJSONAttachments(reply.Message.Attachments)
	}
	b, err := json.Marshal(resp)
	if err != nil {
		// The response type contains nothing unmarshalable.
		return []byte(`{"response_type":"ephemeral","text":"ok"}`)
	}
	return b
}

func toJSONAttachments(in []notifier.Attachment) []attachmentJSON {
	out := make([]attachmentJSON, 0, len(in))
	for _, a := range in {
		fields := make([]fieldJSON, 0, len(a.Fields))
		for _, f := range a.Fields {
			fields = append(fields, fieldJSON{Title: f.Title, Value: f.Value, Short: f.Short})
		}
		out = append(out, attachmentJSON{Title: a.Title, Text: a.Text, Fields: fields})
	}
	return out
}

func writeRecord(w http.ResponseWriter, rec idempotency.Record) {
	w.Header().Set("Content-Type", rec.ContentType)
	w.WriteHeader(rec.StatusCode)
	_, _ = w.Write(rec.Body)
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
