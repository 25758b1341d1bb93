package text

import "sync"

// Message keys used by the extension.
const (
	MsgPrefix          = "prefix"
	MsgNoPermission    = "no-permission"
	MsgReload          = "reload"
	MsgPlayerNotFound  = "player-not-found"
	MsgTypeNotFound    = "tnt-not-found"
	MsgInvalidAmount   = "invalid-amount"
	MsgGiveSuccess     = "give-success"
	MsgGiveReceived    = "give-received"
	MsgDisabledInWorld = "tnt-disabled-in-this-world"
	MsgHelpHeader      = "help-header"
	MsgHelpGive        = "help-give"
	MsgHelpReload      = "help-reload"
	MsgHelpHelp        = "help-help"
	MsgUnknownSubcmd   = "unknown-command"
	MsgPlayersOnly     = "players-only"
)

// DefaultMessages is used for any key missing from the configuration.
var DefaultMessages = map[string]string{
	MsgPrefix:          "&8[&#FF6347iTNT&8] ",
	MsgNoPermission:    "&cYou don't have permission to do that.",
	MsgReload:          "&aConfiguration reloaded.",
	MsgPlayerNotFound:  "&cPlayer &e%player% &cnot found.",
	MsgTypeNotFound:    "&cExplosive type &e%tnt% &cnot found.",
	MsgInvalidAmount:   "&cAmount must be a whole number of at least 1.",
	MsgGiveSuccess:     "&aGave &e%amount%x %tnt_name% &ato &e%player%&a.",
	MsgGiveReceived:    "&aYou received &e%amount%x %tnt_name%&a.",
	MsgDisabledInWorld: "&cThis explosive is disabled in this world.",
	MsgHelpHeader:      "&#FF6347iTNT &7commands:",
	MsgHelpGive:        "&e/itnt give <player> <id> [amount] &7- give custom explosives",
	MsgHelpReload:      "&e/itnt reload &7- reload the configuration",
	MsgHelpHelp:        "&e/itnt help &7- show this help",
	MsgUnknownSubcmd:   "&cUnknown subcommand. Use &e/itnt help&c.",
	MsgPlayersOnly:     "&cOnly players can do that.",
}

// Messages is the colored message table. It is safe for concurrent use and
// can be swapped on reload.
type Messages struct {
	mu  sync.RWMutex
	raw map[string]string
}

// NewMessages colors the configured messages over the defaults.
func NewMessages(configured map[string]string) *Messages {
	m := &Messages{}
	m.Load(configured)
	return m
}

// Load replaces the table.
func (m *Messages) Load(configured map[string]string) {
	raw := make(map[string]string, len(DefaultMessages)+len(configured))
	for k, v := range DefaultMessages {
		raw[k] = Color(v)
	}
	for k, v := range configured {
		raw[k] = Color(v)
	}
	m.mu.Lock()
	m.raw = raw
	m.mu.Unlock()
}

// Raw returns the message without the prefix.
func (m *Messages) Raw(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.raw[key]; ok {
		return v
	}
	return Color("&cMessage not found: " + key)
}

// Get returns the prefixed message with placeholders substituted.
func (m *Messages) Get(key string, vars map[string]string) string {
	m.mu.RLock()
	prefix := m.raw[MsgPrefix]
	m.mu.RUnlock()
	return prefix + Format(m.Raw(key), vars)
}
