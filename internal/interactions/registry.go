package interactions

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/logging"
)

// Command is a slash command handler.
type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, it Interaction, client *Client) error
}

// CommandFunc is the function form of Command.Execute.
type CommandFunc func(ctx context.Context, it Interaction, client *Client) error

type funcCommand struct {
	name        string
	description string
	fn          CommandFunc
}

func (c *funcCommand) Name() string        { return c.name }
func (c *funcCommand) Description() string { return c.description }

func (c *funcCommand) Execute(ctx context.Context, it Interaction, client *Client) error {
	return c.fn(ctx, it, client)
}

// NewCommand adapts fn into a Command. A nil fn yields nil so the registry
// rejects it at startup.
func NewCommand(name, description string, fn CommandFunc) Command {
	if fn == nil {
		return nil
	}
	return &funcCommand{name: name, description: description, fn: fn}
}

// Registry maps command names to handlers. It is immutable once built and
// safe for concurrent lookups.
type Registry struct {
	commands map[string]Command
}

// NewRegistry validates cmds and indexes the usable ones by name. Nil
// commands, blank names and duplicates are skipped with a warning.
func NewRegistry(logger *zap.Logger, cmds ...Command) *Registry {
	logger = logging.OrNop(logger)
	reg := &Registry{commands: make(map[string]Command, len(cmds))}

	for i, cmd := range cmds {
		if cmd == nil {
			logger.Warn("skipping nil command", zap.Int("index", i))
			continue
		}
		name := cmd.Name()
		if strings.TrimSpace(name) == "" || name != strings.TrimSpace(name) {
			logger.Warn("skipping command with invalid name", zap.Int("index", i), zap.String("name", name))
			continue
		}
		if _, dup := reg.commands[name]; dup {
			logger.Warn("skipping duplicate command", zap.String("name", name))
			continue
		}
		reg.commands[name] = cmd
	}

	logger.Info("command registry loaded", zap.Int("commands", len(reg.commands)), zap.Strings("names", reg.Names()))
	return reg
}

// Lookup returns the command registered under the exact, case-sensitive name.
func (r *Registry) Lookup(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered commands.
func (r *Registry) Len() int { return len(r.commands) }
