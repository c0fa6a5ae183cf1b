package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metromate/metromate-linebot-go/internal/config"
	"github.com/metromate/metromate-linebot-go/internal/lineutil"
	"github.com/metromate/metromate-linebot-go/internal/logger"
	"github.com/metromate/metromate-linebot-go/internal/metrics"
)

const testSecret = "test_channel_secret"

type reply struct {
	token    string
	messages []messaging_api.MessageInterface
}

type stubMessenger struct {
	mu       sync.Mutex
	replies  []reply
	loadings []string
	replyErr error
}

func (s *stubMessenger) Reply(_ context.Context, token string, msgs []messaging_api.MessageInterface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply{token: token, messages: msgs})
	return s.replyErr
}

func (s *stubMessenger) ShowLoading(_ context.Context, chatID string, _ int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadings = append(s.loadings, chatID)
	return nil
}

type stubProcessor struct {
	mu     sync.Mutex
	events []string
	msgs   []messaging_api.MessageInterface
	err    error
	panic  bool
}

func (p *stubProcessor) record(kind string) ([]messaging_api.MessageInterface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panic {
		panic("processor exploded")
	}
	p.events = append(p.events, kind)
	return p.msgs, p.err
}

func (p *stubProcessor) ProcessMessage(_ context.Context, e webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	if text, ok := e.Message.(webhook.TextMessageContent); ok {
		return p.record("message:" + text.Text)
	}
	return p.record("message")
}

func (p *stubProcessor) ProcessFollow(context.Context, webhook.FollowEvent) ([]messaging_api.MessageInterface, error) {
	return p.record("follow")
}

func (p *stubProcessor) ProcessJoin(context.Context, webhook.JoinEvent) ([]messaging_api.MessageInterface, error) {
	return p.record("join")
}

func (p *stubProcessor) ProcessUnfollow(context.Context, webhook.UnfollowEvent) {
	_, _ = p.record("unfollow")
}

func setupTestHandler(t *testing.T, proc *stubProcessor) (*Handler, *stubMessenger, *metrics.Metrics) {
	t.Helper()
	messenger := &stubMessenger{}
	m := metrics.New(prometheus.NewRegistry())
	h, err := NewHandler(HandlerConfig{
		ChannelSecret: testSecret,
		Messenger:     messenger,
		BotConfig:     config.DefaultBotConfig(),
		Metrics:       m,
		Logger:        logger.NewTestLogger(),
		Processor:     proc,
	})
	require.NoError(t, err)
	return h, messenger, m
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func post(t *testing.T, h *Handler, body, signature string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhook", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Line-Signature", signature)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))
	return w.Code
}

func textEvent(source, text, token string) string {
	return `{"type":"message","mode":"active","timestamp":1700000000000,` +
		`"source":` + source + `,"webhookEventId":"01HEVENT","deliveryContext":{"isRedelivery":false},` +
		`"replyToken":"` + token + `",` +
		`"message":{"type":"text","id":"1","quoteToken":"q","text":"` + text + `"}}`
}

const (
	userSource  = `{"type":"user","userId":"U123"}`
	groupSource = `{"type":"group","groupId":"G456","userId":"U123"}`
	validToken  = "0123456789abcdef"
)

func callback(events ...string) string {
	return `{"destination":"Ubot","events":[` + strings.Join(events, ",") + `]}`
}

func TestNewHandlerRequiresDependencies(t *testing.T) {
	t.Parallel()
	_, err := NewHandler(HandlerConfig{Processor: &stubProcessor{}})
	require.Error(t, err)
	_, err = NewHandler(HandlerConfig{Messenger: &stubMessenger{}})
	require.Error(t, err)
}

func TestHandleInvalidSignature(t *testing.T) {
	t.Parallel()
	proc := &stubProcessor{}
	h, messenger, m := setupTestHandler(t, proc)

	code := post(t, h, callback(textEvent(userSource, "/help", validToken)), "invalid_signature")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, proc.events)
	assert.Empty(t, messenger.replies)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPErrorsTotal.WithLabelValues("invalid_signature", "webhook")), 0)
}

func TestHandleRepliesInOrder(t *testing.T) {
	t.Parallel()
	proc := &stubProcessor{msgs: lineutil.NewTextReply("ok", nil)}
	h, messenger, m := setupTestHandler(t, proc)

	body := callback(
		textEvent(userSource, "/help", validToken),
		textEvent(userSource, "hello", validToken+"2"),
		`{"type":"follow","mode":"active","timestamp":1,"source":`+userSource+`,"webhookEventId":"01HFOLLOW","deliveryContext":{"isRedelivery":false},"replyToken":"`+validToken+`3","follow":{"isUnblocked":false}}`,
	)
	require.Equal(t, http.StatusOK, post(t, h, body, sign([]byte(body))))

	assert.Equal(t, []string{"message:/help", "message:hello", "follow"}, proc.events)
	require.Len(t, messenger.replies, 3)
	assert.Equal(t, validToken, messenger.replies[0].token)
	assert.Equal(t, validToken+"3", messenger.replies[2].token)
	assert.Equal(t, []string{"U123", "U123", "U123"}, messenger.loadings)
	assert.InDelta(t, 2, testutil.ToFloat64(m.WebhookRequestsTotal.WithLabelValues("message", "success")), 0)
}

func TestHandleUnfollowSendsNothing(t *testing.T) {
	t.Parallel()
	proc := &stubProcessor{msgs: lineutil.NewTextReply("ok", nil)}
	h, messenger, m := setupTestHandler(t, proc)

	body := callback(`{"type":"unfollow","mode":"active","timestamp":1,"source":` + userSource +
		`,"webhookEventId":"01HUNFOLLOW","deliveryContext":{"isRedelivery":false}}`)
	require.Equal(t, http.StatusOK, post(t, h, body, sign([]byte(body))))

	assert.Equal(t, []string{"unfollow"}, proc.events)
	assert.Empty(t, messenger.replies)
	assert.Empty(t, messenger.loadings)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WebhookRequestsTotal.WithLabelValues("unfollow", "success")), 0)
}

func TestHandleGroupLoadingOnlyWhenAddressed(t *testing.T) {
	t.Parallel()
	proc := &stubProcessor{}
	h, messenger, _ := setupTestHandler(t, proc)

	body := callback(
		textEvent(groupSource, "just chatting", validToken),
		textEvent(groupSource, "/bus", validToken),
	)
	require.Equal(t, http.StatusOK, post(t, h, body, sign([]byte(body))))

	assert.Len(t, proc.events, 2)
	assert.Equal(t, []string{"G456"}, messenger.loadings)
	assert.Empty(t, messenger.replies, "nil messages are never sent")
}

func TestHandleTruncatesReplies(t *testing.T) {
	t.Parallel()
	var msgs []messaging_api.MessageInterface
	for range 8 {
		msgs = append(msgs, lineutil.NewTextMessage("part"))
	}
	h, messenger, _ := setupTestHandler(t, &stubProcessor{msgs: msgs})

	body := callback(textEvent(userSource, "/weekly_routine", validToken))
	require.Equal(t, http.StatusOK, post(t, h, body, sign([]byte(body))))

	require.Len(t, messenger.replies, 1)
	assert.Len(t, messenger.replies[0].messages, lineutil.MaxMessagesPerReply)
}

func TestHandleProcessorError(t *testing.T) {
	t.Parallel()
	h, messenger, m := setupTestHandler(t, &stubProcessor{err: errors.New("boom")})

	body := callback(textEvent(userSource, "hi", validToken))
	require.Equal(t, http.StatusOK, post(t, h, body, sign([]byte(body))))

	require.Len(t, messenger.replies, 1)
	text := messenger.replies[0].messages[0].(*messaging_api.TextMessage).Text
	assert.Contains(t, text, "সমস্যা হয়েছে")
	assert.InDelta(t, 1, testutil.ToFloat64(m.WebhookRequestsTotal.WithLabelValues("message", "error")), 0)
}

func TestHandleSkipsInvalidReplyToken(t *testing.T) {
	t.Parallel()
	h, messenger, _ := setupTestHandler(t, &stubProcessor{msgs: lineutil.NewTextReply("ok", nil)})

	body := callback(textEvent(userSource, "/help", "short"))
	require.Equal(t, http.StatusOK, post(t, h, body, sign([]byte(body))))
	assert.Empty(t, messenger.replies)
}

func TestHandleRecoversFromPanic(t *testing.T) {
	t.Parallel()
	h, messenger, m := setupTestHandler(t, &stubProcessor{panic: true})

	body := callback(textEvent(userSource, "/help", validToken))
	require.Equal(t, http.StatusOK, post(t, h, body, sign([]byte(body))))
	assert.Empty(t, messenger.replies)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPErrorsTotal.WithLabelValues("panic", "webhook")), 0)
}

func TestShouldShowLoading(t *testing.T) {
	t.Parallel()

	user := webhook.UserSource{UserId: "U1"}
	group := webhook.GroupSource{GroupId: "G1", UserId: "U1"}
	tests := []struct {
		name  string
		event webhook.EventInterface
		want  bool
	}{
		{"personal text", webhook.MessageEvent{Source: user, Message: webhook.TextMessageContent{Text: "hi"}}, true},
		{"personal sticker", webhook.MessageEvent{Source: user, Message: webhook.StickerMessageContent{}}, false},
		{"group plain text", webhook.MessageEvent{Source: group, Message: webhook.TextMessageContent{Text: "hi"}}, false},
		{"group slash command", webhook.MessageEvent{Source: group, Message: webhook.TextMessageContent{Text: " /bus"}}, true},
		{"follow", webhook.FollowEvent{Source: user}, true},
		{"join", webhook.JoinEvent{Source: group}, true},
		{"unfollow", webhook.UnfollowEvent{Source: user}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, shouldShowLoading(tt.event))
		})
	}
}

func TestHandlerShutdown(t *testing.T) {
	t.Parallel()
	h, _, _ := setupTestHandler(t, &stubProcessor{})

	ctx := context.Background()
	require.NoError(t, h.Shutdown(ctx))
	// Should be safe to call multiple times
	require.NoError(t, h.Shutdown(ctx))
}
