package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Settings is the per-organization configuration record.
type Settings struct {
	Org OrgID

	// LogChannelName is the channel (without "#") that receives
	// notifications for state-changing actions.
	LogChannelName string

	// TripCost is the total token cost of one trip, split evenly across
	// the driver and all passengers.
	TripCost decimal.Decimal

	// NewUserCredit is the starting balance granted by "introduce".
	NewUserCredit decimal.Decimal

	// BotAPIToken optionally overrides the notifier credential for this
	// organization. Never rendered unmasked.
	BotAPIToken string
}

// Setting keys recognized by "settings set".
const (
	SettingLogChannelName = "log_channel_name"
	SettingTripCost       = "trip_cost"
	SettingNewUserCredit  = "new_user_credit"
	SettingBotAPIToken    = "bot_api_token"
)

// SettingKind is the declared type of a setting value. Parsing returns a
// typed value or fails; there is no coercion.
type SettingKind int

const (
	SettingString SettingKind = iota
	SettingDecimal
	SettingSecret
)

// SettingSchema maps each recognized key to its declared kind.
var SettingSchema = map[string]SettingKind{
	SettingLogChannelName: SettingString,
	SettingTripCost:       SettingDecimal,
	SettingNewUserCredit:  SettingDecimal,
	SettingBotAPIToken:    SettingSecret,
}

// SettingKeys is the display order for settings listings.
var SettingKeys = []string{
	SettingLogChannelName,
	SettingTripCost,
	SettingNewUserCredit,
	SettingBotAPIToken,
}

// DefaultSettings returns the documented defaults persisted on first access.
func DefaultSettings(org OrgID) Settings {
	return Settings{
		Org:            org,
		LogChannelName: "logbook",
		TripCost:       decimal.NewFromInt(12),
		NewUserCredit:  decimal.NewFromInt(24),
		BotAPIToken:    "",
	}
}

// Value returns the current value for key, formatted for display. Secrets
// come back masked. ok is false for unrecognized keys.
func (s Settings) Value(key string) (val string, ok bool) {
	switch key {
	case SettingLogChannelName:
		return s.LogChannelName, true
	case SettingTripCost:
		return FormatTokens(s.TripCost), true
	case SettingNewUserCredit:
		return FormatTokens(s.NewUserCredit), true
	case SettingBotAPIToken:
		return MaskSecret(s.BotAPIToken), true
	}
	return "", false
}

// MaskSecret renders a secret as its first rune, stars, and last rune.
func MaskSecret(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return strings.Repeat("*", len(r))
	}
	return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1])
}
