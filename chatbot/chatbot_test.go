package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"snap2sell/gateway"
	"snap2sell/logging"
)

type noTokens struct{}

func (noTokens) AccessToken(context.Context) string { return "" }
func (noTokens) RefreshToken(context.Context) string { return "" }
func (noTokens) SetAccessToken(context.Context, string) error { return nil }
func (noTokens) ClearTokens(context.Context) error { return nil }

func newServer(t *testing.T) *Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chatbot/ask":
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			switch in["question"] {
			case "boom":
				w.WriteHeader(http.StatusInternalServerError)
			case "silent":
				_, _ = w.Write([]byte(`{"status":"success","data":{"question":"silent","answer":""}}`))
			default:
				_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": map[string]any{
					"question": in["question"], "answer": "Rotate crops yearly.", "sources": []string{"soil-guide.pdf"},
				}})
			}
		case "/chatbot/suggestions":
			_, _ = w.Write([]byte(`{"status":"success","data":{"suggestions":["Best crop for clay soil?","When to sow wheat?"]}}`))
		case "/chatbot/kb-stats":
			_, _ = w.Write([]byte(`{"status":"success","data":{"documents":12}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return NewService(gateway.New(gateway.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}, noTokens{}))
}

func TestValidateQuestion(t *testing.T) {
	if _, err := ValidateQuestion("   "); !errors.Is(err, ErrInvalidQuestion) {
		t.Fatalf("blank: %v", err)
	}
	if _, err := ValidateQuestion(strings.Repeat("क", MaxQuestionLength+1)); !errors.Is(err, ErrInvalidQuestion) {
		t.Fatalf("too long: %v", err)
	}
	q, err := ValidateQuestion(" " + strings.Repeat("क", MaxQuestionLength) + " ")
	if err != nil || len([]rune(q)) != MaxQuestionLength {
		t.Fatalf("limit: %v", err)
	}
}

func TestService(t *testing.T) {
	svc := newServer(t)
	ctx := context.Background()

	ans, err := svc.Ask(ctx, "How do I improve soil?")
	if err != nil || ans.Answer != "Rotate crops yearly." || len(ans.Sources) != 1 {
		t.Fatalf("Ask = %+v, %v", ans, err)
	}
	sug, err := svc.Suggestions(ctx)
	if err != nil || len(sug) != 2 {
		t.Fatalf("Suggestions = %v, %v", sug, err)
	}
	stats, err := svc.KBStats(ctx)
	if err != nil || stats["documents"] != float64(12) {
		t.Fatalf("KBStats = %v, %v", stats, err)
	}
}

func TestConversation(t *testing.T) {
	conv := NewConversation(newServer(t), logging.Discard())
	ctx := context.Background()

	if _, ok := conv.Send(ctx, "  "); ok {
		t.Fatal("blank question was sent")
	}
	if reply, _ := conv.Send(ctx, "soil?"); reply.Text != "Rotate crops yearly." {
		t.Fatalf("reply = %+v", reply)
	}
	if reply, _ := conv.Send(ctx, "silent"); reply.Text != NoAnswer {
		t.Fatalf("reply = %+v", reply)
	}
	if reply, _ := conv.Send(ctx, "boom"); reply.Text != ErrorAnswer {
		t.Fatalf("reply = %+v", reply)
	}

	msgs := conv.Messages()
	if len(msgs) != 7 || msgs[0].Text != Greeting || msgs[1].From != "user" {
		t.Fatalf("transcript = %+v", msgs)
	}
}
