package commands

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ziadkadry99/opbot/internal/accounts"
	"github.com/ziadkadry99/opbot/internal/db"
	"github.com/ziadkadry99/opbot/internal/embed"
	"github.com/ziadkadry99/opbot/internal/interactions"
)

// recordingResponder captures replies sent through a live interaction.
type recordingResponder struct {
	responses []interactions.Response
	edits     []*interactions.Message
}

func (r *recordingResponder) Respond(_ context.Context, resp interactions.Response) error {
	r.responses = append(r.responses, resp)
	return nil
}

func (r *recordingResponder) EditResponse(_ context.Context, msg *interactions.Message) error {
	r.edits = append(r.edits, msg)
	return nil
}

func (r *recordingResponder) FollowUp(context.Context, *interactions.Message) error { return nil }

func (r *recordingResponder) DeleteResponse(context.Context) error { return nil }

// reply returns the single message sent.
func (r *recordingResponder) reply(t *testing.T) *interactions.Message {
	t.Helper()
	if len(r.responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(r.responses))
	}
	return r.responses[0].Data
}

func firstEmbed(t *testing.T, msg *interactions.Message) embed.Data {
	t.Helper()
	if msg == nil || len(msg.Embeds) == 0 {
		t.Fatal("expected an embed")
	}
	d, ok := msg.Embeds[0].(embed.Data)
	if !ok {
		t.Fatalf("embed not serialised: %T", msg.Embeds[0])
	}
	return d
}

func setupDeps(t *testing.T) (Deps, *accounts.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	store := accounts.NewStore(database)
	return Deps{Store: store}, store
}

func interaction(name, userID, username string, opts ...interactions.Option) (*interactions.LiveInteraction, *recordingResponder) {
	r := &recordingResponder{}
	p := &interactions.Payload{
		ID:   "i1",
		Type: interactions.TypeApplicationCommand,
		Data: &interactions.CommandData{Name: name, Options: opts},
		User: &interactions.User{ID: userID, Username: username},
	}
	return interactions.NewLiveInteraction(p, r, nil), r
}

func run(t *testing.T, cmd interactions.Command, it interactions.Interaction, client *interactions.Client) error {
	t.Helper()
	return cmd.Execute(context.Background(), it, client)
}

func stringOpt(name, value string) interactions.Option {
	raw, _ := json.Marshal(value)
	return interactions.Option{Name: name, Type: 3, Value: raw}
}

func TestAllRegistersEveryCommand(t *testing.T) {
	deps, _ := setupDeps(t)
	reg := interactions.NewRegistry(nil, All(deps)...)

	want := []string{"balance", "help", "redeem", "start"}
	got := reg.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestStartUsesConfiguredName(t *testing.T) {
	deps, _ := setupDeps(t)
	deps.AccountCommand = "register"
	reg := interactions.NewRegistry(nil, All(deps)...)

	if _, ok := reg.Lookup("register"); !ok {
		t.Error("account command not registered under configured name")
	}
	if _, ok := reg.Lookup("start"); ok {
		t.Error("default name still registered")
	}
}

func TestStartCreatesAccount(t *testing.T) {
	deps, store := setupDeps(t)
	it, r := interaction("start", "u1", "luffy")

	if err := run(t, Start(deps), it, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	d := firstEmbed(t, r.reply(t))
	if d.Title != "It all starts here!" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Footer == nil || d.Footer.Text != "Welcome, luffy" {
		t.Errorf("footer = %+v", d.Footer)
	}
	if d.Image == nil || d.Image.URL != starterImage {
		t.Errorf("image = %+v", d.Image)
	}

	acct, err := store.FindAccount(context.Background(), "u1")
	if err != nil || acct == nil {
		t.Fatalf("account not created: %v", err)
	}
}

func TestStartAlreadyRegistered(t *testing.T) {
	deps, store := setupDeps(t)
	if _, err := store.CreateAccount(context.Background(), "u1"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	it, r := interaction("start", "u1", "luffy")

	if err := run(t, Start(deps), it, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	msg := r.reply(t)
	if msg.Content != msgAlreadyRegistered || msg.Flags != interactions.FlagEphemeral {
		t.Errorf("reply = %+v", msg)
	}
}

type failingStore struct{ AccountStore }

func (failingStore) CreateAccount(context.Context, string) (*accounts.Account, error) {
	return nil, errors.New("disk full")
}

func TestStartStoreError(t *testing.T) {
	it, r := interaction("start", "u1", "luffy")

	if err := run(t, Start(Deps{Store: failingStore{}}), it, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	msg := r.reply(t)
	if msg.Content != msgCreateFailed || msg.Flags != interactions.FlagEphemeral {
		t.Errorf("reply = %+v", msg)
	}
}

func TestBalanceEmbed(t *testing.T) {
	deps, _ := setupDeps(t)
	it, r := interaction("balance", "u1", "luffy")

	if err := run(t, Balance(deps), it, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	d := firstEmbed(t, r.reply(t))
	if d.Title != "luffy's Balance" || d.Color != ColorWhite {
		t.Errorf("embed = %+v", d)
	}
	if len(d.Fields) != 2 {
		t.Fatalf("fields = %+v", d.Fields)
	}
	if d.Fields[0].Name != "Balance" || d.Fields[0].Value != "¥ 500" {
		t.Errorf("balance field = %+v", d.Fields[0])
	}
	if d.Fields[1].Name != "Reset Tokens" || d.Fields[1].Value != "0" {
		t.Errorf("reset tokens field = %+v", d.Fields[1])
	}
	if d.Footer == nil || d.Footer.Text != balanceFooter {
		t.Errorf("footer = %+v", d.Footer)
	}
}

func TestBalanceOtherUserFetchesName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/u2" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"u2","username":"zoro","avatar":"abc"}`))
	}))
	defer srv.Close()
	client := interactions.NewClient(interactions.ClientConfig{BaseURL: srv.URL, BotToken: "t"}, nil)

	deps, _ := setupDeps(t)
	it, r := interaction("balance", "u1", "luffy", stringOpt("user", "u2"))

	if err := run(t, Balance(deps), it, client); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	d := firstEmbed(t, r.reply(t))
	if d.Title != "zoro's Balance" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Thumbnail == nil || d.Thumbnail.URL != "https://cdn.discordapp.com/avatars/u2/abc.png" {
		t.Errorf("thumbnail = %+v", d.Thumbnail)
	}
}

func TestBalanceFallbackName(t *testing.T) {
	deps, _ := setupDeps(t)
	it, r := interaction("balance", "u1", "luffy", stringOpt("user", "u3"))

	if err := run(t, Balance(deps), it, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if d := firstEmbed(t, r.reply(t)); d.Title != "User u3's Balance" {
		t.Errorf("title = %q", d.Title)
	}
}

func TestBalanceWithoutStore(t *testing.T) {
	it, _ := interaction("balance", "u1", "luffy")
	if err := run(t, Balance(Deps{}), it, nil); !errors.Is(err, errStorageDisabled) {
		t.Errorf("err = %v, want errStorageDisabled", err)
	}
}

func TestRedeem(t *testing.T) {
	deps, store := setupDeps(t)
	ctx := context.Background()
	if err := store.CreateCode(ctx, accounts.Code{Code: "GOMU", Reward: 250}); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}

	it, r := interaction("redeem", "u1", "luffy", stringOpt("code", "GOMU"))
	if err := run(t, Redeem(deps), it, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	msg := r.reply(t)
	if msg.Flags != interactions.FlagEphemeral {
		t.Error("redeem result should be ephemeral")
	}
	d := firstEmbed(t, msg)
	if d.Description != "You received ¥ 250." {
		t.Errorf("description = %q", d.Description)
	}
	if d.Fields[0].Value != "¥ 750" {
		t.Errorf("new balance = %q", d.Fields[0].Value)
	}
}

func TestRedeemErrors(t *testing.T) {
	deps, store := setupDeps(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	store.CreateCode(ctx, accounts.Code{Code: "OLD", Reward: 1, ExpiresAt: &past})
	store.CreateCode(ctx, accounts.Code{Code: "USED", Reward: 1})
	if _, _, err := store.RedeemCode(ctx, "USED", "someone", time.Now()); err != nil {
		t.Fatalf("RedeemCode: %v", err)
	}

	tests := []struct {
		code string
		want string
	}{
		{"", msgCodeMissing},
		{"NOPE", msgCodeNotFound},
		{"USED", msgCodeClaimed},
		{"OLD", msgCodeExpired},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			it, r := interaction("redeem", "u1", "luffy", stringOpt("code", tt.code))
			if err := run(t, Redeem(deps), it, nil); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			msg := r.reply(t)
			if msg.Content != tt.want || msg.Flags != interactions.FlagEphemeral {
				t.Errorf("reply = %+v, want %q", msg, tt.want)
			}
		})
	}
}

func TestHelpListsCommands(t *testing.T) {
	deps, _ := setupDeps(t)
	cmds := All(deps)
	help := cmds[len(cmds)-1]

	it, r := interaction("help", "u1", "luffy")
	if err := run(t, help, it, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	d := firstEmbed(t, r.reply(t))
	var names []string
	for _, f := range d.Fields {
		names = append(names, f.Name)
	}
	if strings.Join(names, " ") != "/balance /help /redeem /start" {
		t.Errorf("help fields = %v", names)
	}
}
