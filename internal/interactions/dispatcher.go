package interactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/logging"
)

// Fixed replies sent by the dispatcher. All are ephemeral.
const (
	MsgCommandNotFound = "Command not found: %s"
	MsgInternalError   = "Internal error running command"
	MsgTookTooLong     = "This command took too long to respond. Please try again."
)

const defaultMaxBodyBytes = 1 << 20

// DispatcherConfig wires the dispatcher's collaborators.
type DispatcherConfig struct {
	Verifier *Verifier
	Registry *Registry
	Gate     *Gate
	Client   *Client
	Observer Observer
	Logger   *zap.Logger

	// AckDeadline is how long a handler may run before the interaction is
	// deferred on its behalf. Zero disables auto-defer.
	AckDeadline time.Duration
	// HandlerTimeout bounds handler execution. Zero means no bound.
	HandlerTimeout time.Duration
	MaxBodyBytes   int64
}

// Dispatcher is the POST /interactions handler. It authenticates the
// request, classifies the payload, gates and routes commands, and runs the
// handler in isolation. The inbound request always gets a terminal status.
type Dispatcher struct {
	verifier       *Verifier
	registry       *Registry
	gate           *Gate
	client         *Client
	observer       Observer
	logger         *zap.Logger
	ackDeadline    time.Duration
	handlerTimeout time.Duration
	maxBody        int64
}

// NewDispatcher creates a Dispatcher. A nil Verifier rejects every request.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		verifier:       cfg.Verifier,
		registry:       cfg.Registry,
		gate:           cfg.Gate,
		client:         cfg.Client,
		observer:       cfg.Observer,
		logger:         logging.OrNop(cfg.Logger),
		ackDeadline:    cfg.AckDeadline,
		handlerTimeout: cfg.HandlerTimeout,
		maxBody:        cfg.MaxBodyBytes,
	}
	if d.verifier == nil {
		d.verifier = NewVerifier("", 0)
	}
	if d.registry == nil {
		d.registry = NewRegistry(d.logger)
	}
	if d.client == nil {
		d.client = NewClient(ClientConfig{}, d.logger)
	}
	if d.maxBody <= 0 {
		d.maxBody = defaultMaxBodyBytes
	}
	if !d.verifier.Configured() {
		d.logger.Warn("no public key configured, all interactions will be rejected")
	}
	if d.gate.active() {
		if _, ok := d.registry.Lookup(d.gate.exempt); !ok {
			d.logger.Warn("account command is not registered, users without an account cannot create one",
				zap.String("command", d.gate.exempt))
		}
	}
	return d
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.maxBody))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		d.observe(r.Context(), Event{Outcome: OutcomeInvalid, Detail: err.Error()}, start)
		http.Error(w, "failed to read body", status)
		return
	}

	if err := d.verifier.VerifyRequest(r, body); err != nil {
		d.logger.Debug("rejected interaction", zap.Error(err), zap.String("remote", r.RemoteAddr))
		d.observe(r.Context(), Event{Outcome: OutcomeRejected, Detail: err.Error()}, start)
		http.Error(w, "invalid request signature", http.StatusUnauthorized)
		return
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		d.observe(r.Context(), Event{Outcome: OutcomeInvalid, Detail: err.Error()}, start)
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	switch p.Type {
	case TypePing:
		d.observe(r.Context(), Event{InteractionID: p.ID, Outcome: OutcomePong}, start)
		writeJSON(w, http.StatusOK, Response{Type: ResponsePong})

	case TypeApplicationCommand:
		d.dispatch(context.WithoutCancel(r.Context()), &p, start)
		w.WriteHeader(http.StatusOK)

	default:
		d.logger.Info("unsupported interaction type", zap.Int("type", int(p.Type)))
		d.observe(r.Context(), Event{
			InteractionID: p.ID,
			Outcome:       OutcomeUnsupported,
			Detail:        fmt.Sprintf("type %d", p.Type),
		}, start)
		http.Error(w, "unsupported interaction type", http.StatusBadRequest)
	}
}

// dispatch runs a command invocation to a terminal state. ctx is detached
// from the inbound request so replies survive a dropped connection.
func (d *Dispatcher) dispatch(ctx context.Context, p *Payload, start time.Time) {
	it := NewWebhookInteraction(p, d.client, d.logger)
	inv := p.Invocation()
	ev := Event{
		InteractionID: inv.InteractionID,
		UserID:        inv.User.ID,
		Username:      inv.User.Username,
		Command:       inv.Command,
	}
	log := d.logger.With(
		zap.String("interaction_id", inv.InteractionID),
		zap.String("command", inv.Command),
		zap.String("user_id", inv.User.ID),
	)

	if dec := d.gate.Allow(ctx, inv); !dec.Allowed {
		d.conclude(ctx, log, it, Ephemeral(dec.Reason))
		ev.Outcome = OutcomeDenied
		d.observe(ctx, ev, start)
		return
	}

	cmd, ok := d.registry.Lookup(inv.Command)
	if !ok {
		d.conclude(ctx, log, it, Ephemeral(fmt.Sprintf(MsgCommandNotFound, inv.Command)))
		ev.Outcome = OutcomeNotFound
		d.observe(ctx, ev, start)
		return
	}

	ev.Outcome, ev.Detail = d.execute(ctx, log, cmd, it)
	d.observe(ctx, ev, start)
}

// execute runs cmd in its own goroutine and enforces the acknowledgement
// and completion deadlines.
func (d *Dispatcher) execute(ctx context.Context, log *zap.Logger, cmd Command, it *WebhookInteraction) (Outcome, string) {
	hctx, cancel := ctx, context.CancelFunc(func() {})
	if d.handlerTimeout > 0 {
		hctx, cancel = context.WithTimeout(ctx, d.handlerTimeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("command panicked", zap.Any("panic", rec), zap.Stack("stack"))
				done <- fmt.Errorf("panic: %v", rec)
			}
		}()
		done <- cmd.Execute(hctx, it, d.client)
	}()

	var ackC <-chan time.Time
	if d.ackDeadline > 0 {
		ackTimer := time.NewTimer(d.ackDeadline)
		defer ackTimer.Stop()
		ackC = ackTimer.C
	}

	for {
		select {
		case err := <-done:
			if err != nil {
				log.Error("command failed", zap.Error(err))
				d.conclude(ctx, log, it, Ephemeral(MsgInternalError))
				return OutcomeErrored, err.Error()
			}
			sent, serr := it.finishDeferred(ctx, Ephemeral(MsgTookTooLong))
			if serr != nil {
				log.Warn("failed to finalise deferred reply", zap.Error(serr))
			}
			if sent {
				log.Warn("command returned without finalising deferred reply")
				return OutcomeTimedOut, "deferred reply never finalised"
			}
			if !it.Acknowledged() {
				log.Warn("command returned without replying")
				return OutcomeReplied, "no reply sent"
			}
			return OutcomeReplied, ""

		case <-ackC:
			ackC = nil
			deferred, err := it.autoDefer(ctx)
			if err != nil {
				log.Warn("auto-defer failed", zap.Error(err))
			} else if deferred {
				log.Debug("command exceeded ack deadline, deferred reply")
			}

		case <-hctx.Done():
			log.Warn("command timed out", zap.Duration("timeout", d.handlerTimeout))
			if _, err := it.settle(ctx, Ephemeral(MsgTookTooLong)); err != nil {
				log.Warn("failed to send timeout reply", zap.Error(err))
			}
			return OutcomeTimedOut, hctx.Err().Error()
		}
	}
}

// conclude sends a dispatcher-authored reply and closes the interaction.
// Delivery failures are logged only.
func (d *Dispatcher) conclude(ctx context.Context, log *zap.Logger, it *WebhookInteraction, msg *Message) {
	if err := it.conclude(ctx, msg); err != nil {
		log.Warn("failed to deliver reply", zap.Error(err))
	}
}

func (d *Dispatcher) observe(ctx context.Context, ev Event, start time.Time) {
	ev.ID = uuid.New().String()
	ev.Timestamp = start.UTC()
	ev.Duration = time.Since(start)
	if ev.Outcome != OutcomePong {
		d.logger.Info("interaction handled",
			zap.String("outcome", string(ev.Outcome)),
			zap.String("command", ev.Command),
			zap.Duration("duration", ev.Duration))
	}
	if d.observer != nil {
		d.observer.Observe(ctx, ev)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
