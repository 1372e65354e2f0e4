package notification

// Type identifies what happened. It doubles as the SSE event name.
type Type string

const (
	TypePaymentDue       Type = "payment_due"
	TypePaymentOverdue   Type = "payment_overdue"
	TypePaymentReceived  Type = "payment_received"
	TypeReceiptSubmitted Type = "receipt_submitted"
	TypeTenantAdded      Type = "tenant_added"
	TypeTenantRemoved    Type = "tenant_removed"
	TypeReminderSent     Type = "reminder_sent"
)

// Channel is an outbound delivery channel for tenant reminders.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelTelegram Channel = "telegram"
	ChannelBoth     Channel = "both" // email and sms
	ChannelAll      Channel = "all"  // every configured channel
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelTelegram, ChannelBoth, ChannelAll:
		return true
	}
	return false
}

// Includes reports whether a request for c should go out on the single channel one.
func (c Channel) Includes(one Channel) bool {
	switch c {
	case ChannelAll:
		return true
	case ChannelBoth:
		return one == ChannelEmail || one == ChannelSMS
	default:
		return c == one
	}
}
