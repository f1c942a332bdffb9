package interactions

import (
	"encoding/json"
	"strconv"
	"strings"
)

// InteractionType is the platform's integer payload tag.
type InteractionType int

const (
	TypePing               InteractionType = 1
	TypeApplicationCommand InteractionType = 2
)

// ResponseType tags a callback response.
type ResponseType int

const (
	ResponsePong                   ResponseType = 1
	ResponseChannelMessage         ResponseType = 4
	ResponseDeferredChannelMessage ResponseType = 5
)

// FlagEphemeral marks a message as visible only to the invoking user.
const FlagEphemeral = 1 << 6

// UnknownUser is substituted for missing invoker identity fields.
const UnknownUser = "unknown"

// Payload is the inbound interaction body.
type Payload struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Type          InteractionType `json:"type"`
	Token         string          `json:"token"`
	GuildID       string          `json:"guild_id,omitempty"`
	ChannelID     string          `json:"channel_id,omitempty"`
	Data          *CommandData    `json:"data,omitempty"`
	Member        *Member         `json:"member,omitempty"`
	User          *User           `json:"user,omitempty"`
}

// CommandData carries the invoked command.
type CommandData struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Options []Option `json:"options,omitempty"`
}

// Member wraps the user when the command ran inside a guild.
type Member struct {
	User *User  `json:"user,omitempty"`
	Nick string `json:"nick,omitempty"`
}

// User is a platform user.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// DisplayName prefers the global name over the username.
func (u User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// AvatarURL returns the CDN URL of the user's avatar, or "" when unset.
func (u User) AvatarURL() string {
	if u.Avatar == "" || u.ID == "" || u.ID == UnknownUser {
		return ""
	}
	return "https://cdn.discordapp.com/avatars/" + u.ID + "/" + u.Avatar + ".png"
}

// Option is one command option value. Value stays raw until asked for.
type Option struct {
	Name    string          `json:"name"`
	Type    int             `json:"type"`
	Value   json.RawMessage `json:"value,omitempty"`
	Options []Option        `json:"options,omitempty"`
}

// String returns the option value as text. JSON strings are unquoted and
// other scalars are returned verbatim.
func (o Option) String() string {
	if len(o.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(o.Value, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(o.Value))
}

// Int returns the option value as an integer.
func (o Option) Int() (int64, bool) {
	n, err := strconv.ParseInt(o.String(), 10, 64)
	return n, err == nil
}

// Invocation is the classified form of a command payload.
type Invocation struct {
	InteractionID string
	Token         string
	Command       string
	User          User
	Options       []Option
}

// invoker resolves the user from member.user or user and fills the
// placeholder identity for anything missing.
func (p *Payload) invoker() User {
	var u User
	switch {
	case p.Member != nil && p.Member.User != nil:
		u = *p.Member.User
	case p.User != nil:
		u = *p.User
	}
	if u.ID == "" {
		u.ID = UnknownUser
	}
	if u.Username == "" {
		u.Username = UnknownUser
	}
	return u
}

// Invocation extracts the command invocation from an application command
// payload. It never fails: absent fields become empty or placeholder values.
func (p *Payload) Invocation() Invocation {
	inv := Invocation{
		InteractionID: p.ID,
		Token:         p.Token,
		User:          p.invoker(),
	}
	if p.Data != nil {
		inv.Command = p.Data.Name
		inv.Options = p.Data.Options
	}
	return inv
}

// Message is a reply body. Embeds and Components may hold plain values or
// Serializer implementations; the latter are flattened before sending.
type Message struct {
	Content         string           `json:"content,omitempty"`
	Embeds          []any            `json:"embeds,omitempty"`
	Components      []any            `json:"components,omitempty"`
	Flags           int              `json:"flags,omitempty"`
	TTS             bool             `json:"tts,omitempty"`
	AllowedMentions *AllowedMentions `json:"allowed_mentions,omitempty"`
}

// AllowedMentions restricts which mentions in a message ping.
type AllowedMentions struct {
	Parse []string `json:"parse"`
}

func (m *Message) ephemeral() bool {
	return m != nil && m.Flags&FlagEphemeral != 0
}

// Ephemeral returns a text message visible only to the invoker.
func Ephemeral(content string) *Message {
	return &Message{Content: content, Flags: FlagEphemeral}
}

// Serializer is implemented by rich content builders. Serialize returns the
// plain JSON-encodable form and is invoked once at the transport boundary.
type Serializer interface {
	Serialize() any
}

// normalize returns a copy of m with every Serializer flattened.
func (m *Message) normalize() *Message {
	if m == nil {
		return nil
	}
	out := *m
	out.Embeds = flatten(m.Embeds)
	out.Components = flatten(m.Components)
	return &out
}

func flatten(items []any) []any {
	if items == nil {
		return nil
	}
	out := make([]any, len(items))
	for i, item := range items {
		if s, ok := item.(Serializer); ok {
			out[i] = s.Serialize()
			continue
		}
		out[i] = item
	}
	return out
}

// Response is the callback body.
type Response struct {
	Type ResponseType `json:"type"`
	Data *Message     `json:"data,omitempty"`
}
