package parser

import (
	"fmt"
	"strings"

	"github.com/itnt/extension/internal/util"
)

// PlayerInfo is what the host announces about a joining player.
type PlayerInfo struct {
	Name        string
	Permissions []string
	Creative    bool
}

// ParseJoin parses a player announcement.
// Args: [name, "perm1,perm2", gameMode]
func (p *Parser) ParseJoin(data []string) (PlayerInfo, error) {
	var result PlayerInfo
	if err := need(data, 3); err != nil {
		return result, err
	}
	data = clean(data)

	if data[0] == "" {
		return result, fmt.Errorf("empty player name")
	}
	result.Name = data[0]
	result.Permissions = util.SplitList(data[1])
	result.Creative = strings.EqualFold(data[2], "creative")

	p.logger.Debug("Parsed player", "name", result.Name, "permissions", len(result.Permissions), "creative", result.Creative)
	return result, nil
}

// ParseName parses a single player name argument.
func (p *Parser) ParseName(data []string) (string, error) {
	if err := need(data, 1); err != nil {
		return "", err
	}
	name := util.Clean(data[0])
	if name == "" {
		return "", fmt.Errorf("empty player name")
	}
	return name, nil
}

// ParseCommand splits a command call into the sender name and the
// subcommand arguments. Args: [sender, arg...]
func (p *Parser) ParseCommand(data []string) (string, []string, error) {
	sender, err := p.ParseName(data)
	if err != nil {
		return "", nil, err
	}
	return sender, clean(data[1:]), nil
}
