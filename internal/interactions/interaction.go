package interactions

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/logging"
)

var (
	// ErrInteractionClosed is returned once the dispatcher has concluded
	// the interaction, e.g. after a handler timeout.
	ErrInteractionClosed = errors.New("interaction closed")
	// ErrAlreadyAcknowledged is returned by DeferReply after any response.
	ErrAlreadyAcknowledged = errors.New("interaction already acknowledged")
)

// Transport identifies how an interaction reached the bot.
type Transport int

const (
	TransportWebhook Transport = iota + 1
	TransportLive
)

func (t Transport) String() string {
	switch t {
	case TransportWebhook:
		return "webhook"
	case TransportLive:
		return "live"
	default:
		return "unknown"
	}
}

// Interaction is the uniform view of one command invocation handed to
// command handlers.
type Interaction interface {
	ID() string
	// Token is the webhook reply token. Empty for live interactions.
	Token() string
	CommandName() string
	User() User
	Options() []Option
	Option(name string) (Option, bool)
	Transport() Transport

	// Reply sends msg. Before any acknowledgement it is the initial
	// response; after DeferReply it finalises the deferred response; after
	// a reply it is posted as a follow-up.
	Reply(ctx context.Context, msg *Message) error
	// DeferReply acknowledges the interaction with final content to follow.
	// If the dispatcher already deferred on the handler's behalf it returns
	// nil and the existing deferral stands.
	DeferReply(ctx context.Context, ephemeral bool) error
	// EditReply replaces the current response, or replies if none was sent.
	EditReply(ctx context.Context, msg *Message) error
	Acknowledged() bool
}

// Responder is what a live connection provides to answer an interaction.
type Responder interface {
	Respond(ctx context.Context, resp Response) error
	EditResponse(ctx context.Context, msg *Message) error
	FollowUp(ctx context.Context, msg *Message) error
	DeleteResponse(ctx context.Context) error
}

// sender is the transport-specific half of an interaction.
type sender interface {
	initial(ctx context.Context, resp Response) error
	edit(ctx context.Context, msg *Message) error
	followup(ctx context.Context, msg *Message) error
	deleteOriginal(ctx context.Context) error
}

type ackState int

const (
	statePending ackState = iota
	stateDeferred
	stateReplied
)

// base carries the state shared by both variants. All sends happen under mu
// so acknowledgement transitions are serialised.
type base struct {
	inv    Invocation
	send   sender
	logger *zap.Logger

	mu     sync.Mutex
	state  ackState
	closed bool
	// deferral details, meaningful in stateDeferred
	deferEphemeral bool
	autoDeferred   bool
}

func (b *base) ID() string          { return b.inv.InteractionID }
func (b *base) CommandName() string { return b.inv.Command }
func (b *base) User() User          { return b.inv.User }
func (b *base) Options() []Option   { return b.inv.Options }

func (b *base) Option(name string) (Option, bool) {
	for _, o := range b.inv.Options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

func (b *base) Acknowledged() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state != statePending
}

func (b *base) Reply(ctx context.Context, msg *Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrInteractionClosed
	}
	return b.sendLocked(ctx, msg)
}

func (b *base) DeferReply(ctx context.Context, ephemeral bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrInteractionClosed
	}
	if b.state == stateDeferred && b.autoDeferred {
		b.autoDeferred = false
		return nil
	}
	if b.state != statePending {
		return ErrAlreadyAcknowledged
	}
	return b.deferLocked(ctx, ephemeral)
}

func (b *base) EditReply(ctx context.Context, msg *Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrInteractionClosed
	}
	if b.state == stateReplied {
		return b.send.edit(ctx, msg)
	}
	return b.sendLocked(ctx, msg)
}

func (b *base) sendLocked(ctx context.Context, msg *Message) error {
	var (
		err error
		leg string
	)
	switch b.state {
	case statePending:
		leg = KindCallback
		err = b.send.initial(ctx, Response{Type: ResponseChannelMessage, Data: msg})
	case stateDeferred:
		if msg.ephemeral() && !b.deferEphemeral {
			leg = KindFollowup
			err = b.replacePublicDeferral(ctx, msg)
			break
		}
		leg = KindEdit
		err = b.send.edit(ctx, msg)
	default:
		leg = KindFollowup
		err = b.send.followup(ctx, msg)
	}
	if err != nil {
		return err
	}
	b.state = stateReplied
	b.logger.Debug("interaction reply sent", zap.String("interaction_id", b.inv.InteractionID), zap.String("leg", leg))
	return nil
}

func (b *base) deferLocked(ctx context.Context, ephemeral bool) error {
	resp := Response{Type: ResponseDeferredChannelMessage}
	if ephemeral {
		resp.Data = &Message{Flags: FlagEphemeral}
	}
	if err := b.send.initial(ctx, resp); err != nil {
		return err
	}
	b.state = stateDeferred
	b.deferEphemeral = ephemeral
	return nil
}

// replacePublicDeferral delivers an ephemeral msg after a public deferral.
// Editing the original cannot make it ephemeral, so msg goes out as an
// ephemeral follow-up and the public placeholder is removed.
func (b *base) replacePublicDeferral(ctx context.Context, msg *Message) error {
	if err := b.send.followup(ctx, msg); err != nil {
		return err
	}
	if err := b.send.deleteOriginal(ctx); err != nil {
		b.logger.Warn("failed to remove deferred placeholder",
			zap.String("interaction_id", b.inv.InteractionID), zap.Error(err))
	}
	return nil
}

// autoDefer defers the interaction if nothing has been sent yet. It reports
// whether a deferral was sent.
func (b *base) autoDefer(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.state != statePending {
		return false, nil
	}
	if err := b.deferLocked(ctx, false); err != nil {
		return true, err
	}
	b.autoDeferred = true
	return true, nil
}

// conclude sends msg through whichever leg is still open and closes the
// interaction.
func (b *base) conclude(ctx context.Context, msg *Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.sendLocked(ctx, msg)
}

// settle closes the interaction, sending msg first unless final content
// was already delivered. It reports whether msg was sent.
func (b *base) settle(ctx context.Context, msg *Message) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false, nil
	}
	b.closed = true
	if b.state == stateReplied {
		return false, nil
	}
	return true, b.sendLocked(ctx, msg)
}

// finishDeferred closes the interaction, sending msg only if it was
// deferred and never finalised. It reports whether msg was sent.
func (b *base) finishDeferred(ctx context.Context, msg *Message) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false, nil
	}
	b.closed = true
	if b.state != stateDeferred {
		return false, nil
	}
	return true, b.sendLocked(ctx, msg)
}

// WebhookInteraction answers through the callback API.
type WebhookInteraction struct {
	base
}

// NewWebhookInteraction builds the interaction for a webhook payload.
func NewWebhookInteraction(p *Payload, client *Client, logger *zap.Logger) *WebhookInteraction {
	appID := p.ApplicationID
	if appID == "" {
		appID = client.ApplicationID()
	}
	return &WebhookInteraction{base: base{
		inv:    p.Invocation(),
		send:   &webhookSender{client: client, appID: appID, id: p.ID, token: p.Token},
		logger: logging.OrNop(logger),
	}}
}

func (w *WebhookInteraction) Token() string        { return w.inv.Token }
func (w *WebhookInteraction) Transport() Transport { return TransportWebhook }

type webhookSender struct {
	client *Client
	appID  string
	id     string
	token  string
}

func (s *webhookSender) initial(ctx context.Context, resp Response) error {
	return s.client.Callback(ctx, s.id, s.token, resp)
}

func (s *webhookSender) edit(ctx context.Context, msg *Message) error {
	return s.client.editOriginal(ctx, s.appID, s.token, msg)
}

func (s *webhookSender) followup(ctx context.Context, msg *Message) error {
	return s.client.followup(ctx, s.appID, s.token, msg)
}

func (s *webhookSender) deleteOriginal(ctx context.Context) error {
	return s.client.deleteOriginal(ctx, s.appID, s.token)
}

// LiveInteraction answers through a persistent connection.
type LiveInteraction struct {
	base
}

// NewLiveInteraction builds the interaction for a payload received over a
// live connection.
func NewLiveInteraction(p *Payload, r Responder, logger *zap.Logger) *LiveInteraction {
	inv := p.Invocation()
	inv.Token = ""
	return &LiveInteraction{base: base{
		inv:    inv,
		send:   &liveSender{r: r},
		logger: logging.OrNop(logger),
	}}
}

func (l *LiveInteraction) Token() string        { return "" }
func (l *LiveInteraction) Transport() Transport { return TransportLive }

type liveSender struct {
	r Responder
}

func (s *liveSender) initial(ctx context.Context, resp Response) error {
	resp.Data = resp.Data.normalize()
	return s.r.Respond(ctx, resp)
}

func (s *liveSender) edit(ctx context.Context, msg *Message) error {
	return s.r.EditResponse(ctx, msg.normalize())
}

func (s *liveSender) followup(ctx context.Context, msg *Message) error {
	return s.r.FollowUp(ctx, msg.normalize())
}

func (s *liveSender) deleteOriginal(ctx context.Context) error {
	return s.r.DeleteResponse(ctx)
}
