package handlers

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/itnt/extension/internal/permission"
	"github.com/itnt/extension/internal/text"
	"github.com/itnt/extension/pkg/core"
)

// Execute runs /itnt with args on behalf of sender. Every outcome is also
// reported to the sender as a message.
func (s *Service) Execute(sender Sender, args []string) error {
	if len(args) == 0 || strings.EqualFold(args[0], "help") {
		s.sendHelp(sender)
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "reload":
		if !sender.HasPermission(permission.Reload) {
			sender.SendMessage(s.deps.Messages.Get(text.MsgNoPermission, nil))
			return ErrNoPermission
		}
		return s.reload(sender)
	case "give":
		if !sender.HasPermission(permission.Give) {
			sender.SendMessage(s.deps.Messages.Get(text.MsgNoPermission, nil))
			return ErrNoPermission
		}
		return s.give(sender, args)
	default:
		sender.SendMessage(s.deps.Messages.Get(text.MsgUnknownSubcmd, nil))
		s.sendHelp(sender)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
}

func (s *Service) reload(sender Sender) error {
	if s.deps.Reload != nil {
		if err := s.deps.Reload(); err != nil {
			s.logger.Error("Reload failed", "error", err)
			sender.SendMessage(text.Color("&cReload failed: " + err.Error()))
			return fmt.Errorf("reloading: %w", err)
		}
	}
	sender.SendMessage(s.deps.Messages.Get(text.MsgReload, nil))
	s.logger.Info("Configuration reloaded", "by", sender.Name())
	return nil
}

// give handles /itnt give <player> <id> [amount].
func (s *Service) give(sender Sender, args []string) error {
	msgs := s.deps.Messages
	if len(args) < 3 {
		sender.SendMessage(msgs.Raw(text.MsgHelpGive))
		return nil
	}

	target, err := s.player(args[1])
	if err != nil {
		sender.SendMessage(msgs.Get(text.MsgPlayerNotFound, map[string]string{"player": args[1]}))
		return err
	}

	t, ok := s.lookup(args[2])
	if !ok {
		sender.SendMessage(msgs.Get(text.MsgTypeNotFound, map[string]string{"tnt": args[2]}))
		return fmt.Errorf("unknown explosive type %q", args[2])
	}

	amount := 1
	if len(args) > 3 {
		n, err := strconv.Atoi(args[3])
		if err != nil || n < 1 {
			sender.SendMessage(msgs.Get(text.MsgInvalidAmount, nil))
			return fmt.Errorf("%w: %q", ErrInvalidAmount, args[3])
		}
		amount = n
	}

	target.GiveItem(core.ItemStack{TypeID: t.ID, Amount: amount})

	vars := map[string]string{
		"player":   target.Name(),
		"amount":   strconv.Itoa(amount),
		"tnt_name": text.Color(t.DisplayName),
	}
	sender.SendMessage(msgs.Get(text.MsgGiveSuccess, vars))
	target.SendMessage(msgs.Get(text.MsgGiveReceived, vars))
	s.logger.Info("Gave explosives", "by", sender.Name(), "to", target.Name(), "type", t.ID, "amount", amount)
	return nil
}

func (s *Service) sendHelp(sender Sender) {
	msgs := s.deps.Messages
	sender.SendMessage(msgs.Raw(text.MsgHelpHeader))
	if sender.HasPermission(permission.Give) {
		sender.SendMessage(msgs.Raw(text.MsgHelpGive))
	}
	if sender.HasPermission(permission.Reload) {
		sender.SendMessage(msgs.Raw(text.MsgHelpReload))
	}
	if sender.HasPermission(permission.Help) {
		sender.SendMessage(msgs.Raw(text.MsgHelpHelp))
	}
}

// Complete returns tab completions for the last of args.
func (s *Service) Complete(sender Sender, args []string) []string {
	if len(args) == 0 {
		args = []string{""}
	}
	last := strings.ToLower(args[len(args)-1])
	giving := strings.EqualFold(args[0], "give") && sender.HasPermission(permission.Give)

	var candidates []string
	switch {
	case len(args) == 1:
		for _, sub := range []struct{ name, node string }{
			{"give", permission.Give},
			{"reload", permission.Reload},
			{"help", permission.Help},
		} {
			if sender.HasPermission(sub.node) {
				candidates = append(candidates, sub.name)
			}
		}
	case len(args) == 2 && giving:
		if s.deps.Players != nil {
			candidates = s.deps.Players.Names()
		}
	case len(args) == 3 && giving:
		if s.deps.Catalog != nil && s.deps.Catalog() != nil {
			candidates = s.deps.Catalog().Keys()
		}
	}

	out := []string{}
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), last) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}
