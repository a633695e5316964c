package telegram

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/nanobot-go/nanobot/pkg/models"
)

type fakeBus struct {
	published []models.InboundMessage
}

func (f *fakeBus) PublishInbound(ctx context.Context, msg models.InboundMessage) error {
	f.published = append(f.published, msg)
	return nil
}

type fakeBotClient struct {
	sent []*bot.SendMessageParams
}

func (f *fakeBotClient) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	f.sent = append(f.sent, params)
	return &tgmodels.Message{}, nil
}
func (f *fakeBotClient) SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*tgmodels.Message, error) {
	return &tgmodels.Message{}, nil
}
func (f *fakeBotClient) SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*tgmodels.Message, error) {
	return &tgmodels.Message{}, nil
}
func (f *fakeBotClient) SendAudio(ctx context.Context, params *bot.SendAudioParams) (*tgmodels.Message, error) {
	return &tgmodels.Message{}, nil
}
func (f *fakeBotClient) GetFile(ctx context.Context, params *bot.GetFileParams) (*tgmodels.File, error) {
	return &tgmodels.File{}, nil
}
func (f *fakeBotClient) GetMe(ctx context.Context) (*tgmodels.User, error) { return &tgmodels.User{}, nil }
func (f *fakeBotClient) SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error) {
	return true, nil
}
func (f *fakeBotClient) RegisterHandler(handlerType bot.HandlerType, pattern string, matchType bot.MatchType, handler bot.HandlerFunc) {
}
func (f *fakeBotClient) Start(ctx context.Context)        {}
func (f *fakeBotClient) StartWebhook(ctx context.Context) {}

func TestSendRequiresStartedClient(t *testing.T) {
	a := NewAdapter(Config{Token: "t"}, &fakeBus{})
	err := a.Send(context.Background(), models.OutboundMessage{ChatID: "1", Content: "hi"})
	if err == nil {
		t.Fatalf("Send before start: want error, got nil")
	}
}

func TestSendDelegatesToClient(t *testing.T) {
	client := &fakeBotClient{}
	a := NewAdapter(Config{Token: "t"}, &fakeBus{})
	a.client = client

	if err := a.Send(context.Background(), models.OutboundMessage{ChatID: "42", Content: "hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(client.sent) != 1 || client.sent[0].Text != "hello" {
		t.Fatalf("sent = %+v", client.sent)
	}
}

func TestSendRejectsNonNumericChatID(t *testing.T) {
	a := NewAdapter(Config{Token: "t"}, &fakeBus{})
	a.client = &fakeBotClient{}
	if err := a.Send(context.Background(), models.OutboundMessage{ChatID: "not-a-number"}); err == nil {
		t.Fatalf("Send with bad chat id: want error, got nil")
	}
}

func TestHandleUpdateDeniedSenderNotPublished(t *testing.T) {
	bus := &fakeBus{}
	a := NewAdapter(Config{Token: "t", AllowFrom: []string{"999"}}, bus)
	update := &tgmodels.Update{Message: &tgmodels.Message{
		Chat: tgmodels.Chat{ID: 1},
		From: &tgmodels.User{ID: 111},
		Text: "hi",
	}}
	a.handleUpdate(context.Background(), nil, update)
	if len(bus.published) != 0 {
		t.Fatalf("published = %d, want 0 (sender denied)", len(bus.published))
	}
}

func TestHandleUpdateAllowedSenderPublished(t *testing.T) {
	bus := &fakeBus{}
	a := NewAdapter(Config{Token: "t"}, bus)
	update := &tgmodels.Update{Message: &tgmodels.Message{
		Chat: tgmodels.Chat{ID: 7},
		From: &tgmodels.User{ID: 111},
		Text: "hello there",
	}}
	a.handleUpdate(context.Background(), nil, update)
	if len(bus.published) != 1 {
		t.Fatalf("published = %d, want 1", len(bus.published))
	}
	if bus.published[0].ChatID != "7" || bus.published[0].Content != "hello there" {
		t.Fatalf("published[0] = %+v", bus.published[0])
	}
}
