package discord

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/nanobot-go/nanobot/pkg/models"
)

type fakeBus struct {
	published []models.InboundMessage
}

func (f *fakeBus) PublishInbound(ctx context.Context, msg models.InboundMessage) error {
	f.published = append(f.published, msg)
	return nil
}

type fakeSession struct {
	sent   []string
	opened bool
	closed bool
}

func (f *fakeSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent = append(f.sent, content)
	return &discordgo.Message{}, nil
}
func (f *fakeSession) Open() error              { f.opened = true; return nil }
func (f *fakeSession) Close() error             { f.closed = true; return nil }
func (f *fakeSession) AddHandler(interface{}) func() { return func() {} }

func TestSendRequiresStartedSession(t *testing.T) {
	a := NewAdapter(Config{Token: "t"}, &fakeBus{})
	err := a.Send(context.Background(), models.OutboundMessage{ChatID: "1", Content: "hi"})
	if err == nil {
		t.Fatalf("Send before start: want error, got nil")
	}
}

func TestSendDelegatesToSession(t *testing.T) {
	sess := &fakeSession{}
	a := NewAdapter(Config{Token: "t"}, &fakeBus{})
	a.session = sess

	if err := a.Send(context.Background(), models.OutboundMessage{ChatID: "42", Content: "hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sess.sent) != 1 || sess.sent[0] != "hello" {
		t.Fatalf("sent = %+v", sess.sent)
	}
}

func TestHandleMessageCreateIgnoresBots(t *testing.T) {
	bus := &fakeBus{}
	a := NewAdapter(Config{Token: "t"}, bus)
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "c1",
		Content:   "hi",
		Author:    &discordgo.User{ID: "bot1", Bot: true},
	}}
	a.handleMessageCreate(nil, m)
	if len(bus.published) != 0 {
		t.Fatalf("published = %d, want 0 (bot author)", len(bus.published))
	}
}

func TestHandleMessageCreateDeniedSender(t *testing.T) {
	bus := &fakeBus{}
	a := NewAdapter(Config{Token: "t", AllowFrom: []string{"999"}}, bus)
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "c1",
		Content:   "hi",
		Author:    &discordgo.User{ID: "111"},
	}}
	a.handleMessageCreate(nil, m)
	if len(bus.published) != 0 {
		t.Fatalf("published = %d, want 0 (sender denied)", len(bus.published))
	}
}

func TestHandleMessageCreatePublishes(t *testing.T) {
	bus := &fakeBus{}
	a := NewAdapter(Config{Token: "t"}, bus)
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "c1",
		Content:   "hello there",
		Author:    &discordgo.User{ID: "111"},
	}}
	a.handleMessageCreate(nil, m)
	if len(bus.published) != 1 {
		t.Fatalf("published = %d, want 1", len(bus.published))
	}
	if bus.published[0].ChatID != "c1" || bus.published[0].Content != "hello there" {
		t.Fatalf("published[0] = %+v", bus.published[0])
	}
}
