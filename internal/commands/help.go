package commands

import (
	"context"
	"sort"

	"github.com/ziadkadry99/opbot/internal/embed"
	"github.com/ziadkadry99/opbot/internal/interactions"
)

// Help lists cmds and itself.
func Help(cmds []interactions.Command) interactions.Command {
	listed := make([]interactions.Command, 0, len(cmds))
	for _, c := range cmds {
		if c != nil {
			listed = append(listed, c)
		}
	}

	var self interactions.Command
	self = interactions.NewCommand("help", "List available commands",
		func(ctx context.Context, it interactions.Interaction, _ *interactions.Client) error {
			all := append(append([]interactions.Command(nil), listed...), self)
			sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })

			e := embed.New().SetTitle("Commands").SetColor(ColorWhite)
			for _, c := range all {
				e.AddFields(embed.Field{Name: "/" + c.Name(), Value: c.Description()})
			}
			return it.Reply(ctx, &interactions.Message{Embeds: []any{e}, Flags: interactions.FlagEphemeral})
		})
	return self
}
