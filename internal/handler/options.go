package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// stringOption reads a required string option by name.
func stringOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (string, error) {
	for _, option := range options {
		if option.Name != name {
			continue
		}
		if option.Type != discordgo.ApplicationCommandOptionString {
			return "", fmt.Errorf("invalid type for %s option", name)
		}
		return option.StringValue(), nil
	}
	return "", fmt.Errorf("%s option is required", name)
}

// optionalStringOption reads a string option that may be absent. The
// second return reports whether the option was present.
func optionalStringOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool, error) {
	for _, option := range options {
		if option.Name != name {
			continue
		}
		if option.Type != discordgo.ApplicationCommandOptionString {
			return "", false, fmt.Errorf("invalid type for %s option", name)
		}
		return option.StringValue(), true, nil
	}
	return "", false, nil
}

// intOption reads an optional integer option by name. The second return
// reports whether the option was present.
func intOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (int64, bool, error) {
	for _, option := range options {
		if option.Name != name {
			continue
		}
		if option.Type != discordgo.ApplicationCommandOptionInteger {
			return 0, false, fmt.Errorf("invalid type for %s option", name)
		}
		return option.IntValue(), true, nil
	}
	return 0, false, nil
}

// subcommand returns the invoked subcommand and its options, or an
// error when the interaction carries none.
func subcommand(data discordgo.ApplicationCommandInteractionData) (string, []*discordgo.ApplicationCommandInteractionDataOption, error) {
	if len(data.Options) == 0 {
		return "", nil, fmt.Errorf("no subcommand provided for %s command", data.Name)
	}
	sub := data.Options[0]
	if sub.Type != discordgo.ApplicationCommandOptionSubCommand {
		return "", nil, fmt.Errorf("invalid subcommand for %s command", data.Name)
	}
	return sub.Name, sub.Options, nil
}
