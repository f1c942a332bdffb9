package interactions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type richEmbed struct{ title string }

func (e richEmbed) Serialize() any { return map[string]any{"title": e.title} }

func livePayload() *Payload {
	return &Payload{
		ID:    "i1",
		Type:  TypeApplicationCommand,
		Token: "tok",
		Data: &CommandData{Name: "redeem", Options: []Option{
			{Name: "code", Type: 3, Value: json.RawMessage(`"GOMU"`)},
			{Name: "amount", Type: 4, Value: json.RawMessage(`42`)},
		}},
		User: &User{ID: "u1", Username: "luffy"},
	}
}

func TestLiveInteractionReplyStates(t *testing.T) {
	ctx := context.Background()
	r := &fakeResponder{}
	it := NewLiveInteraction(livePayload(), r, nil)

	if it.Transport() != TransportLive || it.Token() != "" {
		t.Fatalf("unexpected transport %v token %q", it.Transport(), it.Token())
	}
	if it.Acknowledged() {
		t.Fatal("new interaction should be pending")
	}

	if err := it.Reply(ctx, &Message{Content: "hi"}); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if len(r.responses) != 1 || r.responses[0].Type != ResponseChannelMessage {
		t.Fatalf("responses = %+v, want one channel message", r.responses)
	}
	if !it.Acknowledged() {
		t.Error("expected acknowledged after reply")
	}

	if err := it.Reply(ctx, &Message{Content: "more"}); err != nil {
		t.Fatalf("second Reply: %v", err)
	}
	if len(r.followups) != 1 || r.followups[0].Content != "more" {
		t.Errorf("followups = %+v", r.followups)
	}

	if err := it.DeferReply(ctx, false); !errors.Is(err, ErrAlreadyAcknowledged) {
		t.Errorf("DeferReply after reply err = %v, want ErrAlreadyAcknowledged", err)
	}

	if err := it.EditReply(ctx, &Message{Content: "edited"}); err != nil {
		t.Fatalf("EditReply: %v", err)
	}
	if len(r.edits) != 1 || r.edits[0].Content != "edited" {
		t.Errorf("edits = %+v", r.edits)
	}
}

func TestLiveInteractionDeferThenReply(t *testing.T) {
	ctx := context.Background()
	r := &fakeResponder{}
	it := NewLiveInteraction(livePayload(), r, nil)

	if err := it.DeferReply(ctx, true); err != nil {
		t.Fatalf("DeferReply: %v", err)
	}
	if len(r.responses) != 1 || r.responses[0].Type != ResponseDeferredChannelMessage {
		t.Fatalf("responses = %+v, want one deferral", r.responses)
	}
	if r.responses[0].Data == nil || r.responses[0].Data.Flags != FlagEphemeral {
		t.Error("ephemeral deferral should carry the ephemeral flag")
	}
	if err := it.DeferReply(ctx, false); !errors.Is(err, ErrAlreadyAcknowledged) {
		t.Errorf("second DeferReply err = %v", err)
	}

	if err := it.Reply(ctx, &Message{Content: "done"}); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if len(r.edits) != 1 || r.edits[0].Content != "done" {
		t.Fatalf("expected reply after defer to edit the original, edits = %+v", r.edits)
	}
	if len(r.responses) != 1 {
		t.Errorf("reply after defer must not send a second initial response")
	}
}

func TestDeferReplyAfterAutoDefer(t *testing.T) {
	ctx := context.Background()
	r := &fakeResponder{}
	it := NewLiveInteraction(livePayload(), r, nil)

	if deferred, err := it.autoDefer(ctx); !deferred || err != nil {
		t.Fatalf("autoDefer = %v, %v", deferred, err)
	}
	if err := it.DeferReply(ctx, false); err != nil {
		t.Fatalf("DeferReply after auto-defer: %v", err)
	}
	if len(r.responses) != 1 {
		t.Errorf("responses = %d, want the single auto deferral", len(r.responses))
	}
	if err := it.DeferReply(ctx, false); !errors.Is(err, ErrAlreadyAcknowledged) {
		t.Errorf("second DeferReply err = %v, want ErrAlreadyAcknowledged", err)
	}

	if err := it.Reply(ctx, &Message{Content: "done"}); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if len(r.edits) != 1 || r.edits[0].Content != "done" {
		t.Errorf("edits = %+v", r.edits)
	}
}

func TestEphemeralReplyAfterPublicDeferral(t *testing.T) {
	ctx := context.Background()
	r := &fakeResponder{}
	it := NewLiveInteraction(livePayload(), r, nil)

	if err := it.DeferReply(ctx, false); err != nil {
		t.Fatalf("DeferReply: %v", err)
	}
	if err := it.Reply(ctx, Ephemeral("only you")); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if len(r.edits) != 0 {
		t.Errorf("ephemeral reply must not edit a public deferral, edits = %+v", r.edits)
	}
	if len(r.followups) != 1 || r.followups[0].Flags != FlagEphemeral {
		t.Fatalf("followups = %+v, want one ephemeral", r.followups)
	}
	if r.deletes != 1 {
		t.Errorf("deletes = %d, want the placeholder removed", r.deletes)
	}
}

func TestEphemeralReplyAfterEphemeralDeferral(t *testing.T) {
	ctx := context.Background()
	r := &fakeResponder{}
	it := NewLiveInteraction(livePayload(), r, nil)

	if err := it.DeferReply(ctx, true); err != nil {
		t.Fatalf("DeferReply: %v", err)
	}
	if err := it.Reply(ctx, Ephemeral("only you")); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if len(r.edits) != 1 || len(r.followups) != 0 || r.deletes != 0 {
		t.Errorf("edits=%d followups=%d deletes=%d, want a single edit", len(r.edits), len(r.followups), r.deletes)
	}
}

func TestInteractionClosed(t *testing.T) {
	ctx := context.Background()
	r := &fakeResponder{}
	it := NewLiveInteraction(livePayload(), r, nil)

	if err := it.conclude(ctx, Ephemeral("bye")); err != nil {
		t.Fatalf("conclude: %v", err)
	}
	if err := it.Reply(ctx, &Message{Content: "late"}); !errors.Is(err, ErrInteractionClosed) {
		t.Errorf("Reply err = %v, want ErrInteractionClosed", err)
	}
	if err := it.DeferReply(ctx, false); !errors.Is(err, ErrInteractionClosed) {
		t.Errorf("DeferReply err = %v, want ErrInteractionClosed", err)
	}
	if err := it.EditReply(ctx, &Message{}); !errors.Is(err, ErrInteractionClosed) {
		t.Errorf("EditReply err = %v, want ErrInteractionClosed", err)
	}
	if len(r.responses) != 1 {
		t.Errorf("responses = %d, want 1", len(r.responses))
	}
}

func TestInteractionFailedSendStaysPending(t *testing.T) {
	r := &fakeResponder{err: errors.New("connection lost")}
	it := NewLiveInteraction(livePayload(), r, nil)

	if err := it.Reply(context.Background(), &Message{Content: "x"}); err == nil {
		t.Fatal("expected send error")
	}
	if it.Acknowledged() {
		t.Error("failed send must not mark the interaction acknowledged")
	}
}

func TestInteractionNormalizesSerializers(t *testing.T) {
	r := &fakeResponder{}
	it := NewLiveInteraction(livePayload(), r, nil)

	msg := &Message{Embeds: []any{richEmbed{title: "Balance"}, map[string]any{"title": "plain"}}}
	if err := it.Reply(context.Background(), msg); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	sent := r.responses[0].Data
	first, ok := sent.Embeds[0].(map[string]any)
	if !ok || first["title"] != "Balance" {
		t.Errorf("embed not flattened: %#v", sent.Embeds[0])
	}
	if _, still := msg.Embeds[0].(richEmbed); !still {
		t.Error("normalisation must not mutate the caller's message")
	}
}

func TestInteractionIdentityAndOptions(t *testing.T) {
	it := NewLiveInteraction(livePayload(), &fakeResponder{}, nil)

	if it.ID() != "i1" || it.CommandName() != "redeem" || it.User().ID != "u1" {
		t.Errorf("identity = %s %s %+v", it.ID(), it.CommandName(), it.User())
	}
	code, ok := it.Option("code")
	if !ok || code.String() != "GOMU" {
		t.Errorf("code option = %+v, %v", code, ok)
	}
	amount, _ := it.Option("amount")
	if n, ok := amount.Int(); !ok || n != 42 {
		t.Errorf("amount = %d, %v", n, ok)
	}
	if _, ok := it.Option("missing"); ok {
		t.Error("missing option reported present")
	}
	if len(it.Options()) != 2 {
		t.Errorf("Options = %d, want 2", len(it.Options()))
	}
}

func TestPlaceholderIdentity(t *testing.T) {
	p := &Payload{ID: "i1", Type: TypeApplicationCommand, Data: &CommandData{Name: "balance"}}
	inv := p.Invocation()
	if inv.User.ID != UnknownUser || inv.User.Username != UnknownUser {
		t.Errorf("expected placeholder identity, got %+v", inv.User)
	}

	p.Member = &Member{User: &User{ID: "m1", Username: "nami"}}
	p.User = &User{ID: "u1", Username: "other"}
	if got := p.Invocation().User.ID; got != "m1" {
		t.Errorf("member user should win, got %s", got)
	}

	p.Member = nil
	p.Data = nil
	inv = p.Invocation()
	if inv.User.ID != "u1" || inv.Command != "" {
		t.Errorf("unexpected invocation %+v", inv)
	}
}

func TestUserDisplayNameAndAvatar(t *testing.T) {
	u := User{ID: "1", Username: "luffy"}
	if u.DisplayName() != "luffy" || u.AvatarURL() != "" {
		t.Errorf("got %q %q", u.DisplayName(), u.AvatarURL())
	}
	u.GlobalName = "Monkey D. Luffy"
	u.Avatar = "abc"
	if u.DisplayName() != "Monkey D. Luffy" {
		t.Errorf("DisplayName = %q", u.DisplayName())
	}
	if u.AvatarURL() != "https://cdn.discordapp.com/avatars/1/abc.png" {
		t.Errorf("AvatarURL = %q", u.AvatarURL())
	}
}

func TestTransportString(t *testing.T) {
	if TransportWebhook.String() != "webhook" || TransportLive.String() != "live" || Transport(0).String() != "unknown" {
		t.Error("unexpected transport names")
	}
}
