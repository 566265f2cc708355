package consultant

import "time"

// Role identifies who sent a message. Every vendor message kind maps to
// exactly one role; there is no unknown value.
type Role string

const (
	RoleClient   Role = "client"
	RoleOperator Role = "operator"
	RoleSystem   Role = "system"
)

// Channel is the inferred originating medium of a dialog.
type Channel string

const (
	ChannelSite     Channel = "site"
	ChannelEmail    Channel = "email"
	ChannelVK       Channel = "vk"
	ChannelTelegram Channel = "telegram"
	ChannelViber    Channel = "viber"
)

// Message is one normalized chat message. Kind keeps the vendor-specific
// subtype (text, keyboard, keyboard_response, info, comment, autoMessage and
// so on) used to filter real operator messages.
type Message struct {
	Who        Role
	Kind       string
	Text       string
	CreatedAt  time.Time
	OperatorID string
}

// Dialog is one chat session between a client and the operator pool,
// constructed fresh per fetch and owned by the caller for one processing
// cycle.
type Dialog struct {
	ID         string
	ClientID   string
	SearchID   string
	OperatorID string
	Name       string
	Channel    Channel
	Messages   []Message
}

// Operator is one member of the vendor's operator pool.
type Operator struct {
	ID     string
	Login  string
	Online bool
	Roles  []string
}

// HasRole reports whether the operator carries the given role. Vendors
// without a role model report true for everything.
func (o Operator) HasRole(role string) bool {
	if len(o.Roles) == 0 {
		return true
	}
	for _, r := range o.Roles {
		if r == role {
			return true
		}
	}

	return false
}
