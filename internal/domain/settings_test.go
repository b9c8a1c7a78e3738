package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMaskSecret(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "*"},
		{"ab", "**"},
		{"abc", "a*c"},
		{"xoxb-123456", "x*********6"},
	}
	for _, tc := range cases {
		if got := MaskSecret(tc.in); got != tc.want {
			t.Fatalf("MaskSecret(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	st := DefaultSettings("T0001")
	if st.Org != OrgID("T0001") {
		t.Fatalf("org = %q", st.Org)
	}
	if st.LogChannelName != "logbook" {
		t.Fatalf("log channel = %q", st.LogChannelName)
	}
	if !st.TripCost.Equal(decimal.NewFromInt(12)) || !st.NewUserCredit.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("unexpected defaults: %+v", st)
	}
	if st.BotAPIToken != "" {
		t.Fatalf("token = %q", st.BotAPIToken)
	}
}

func TestSettings_Value(t *testing.T) {
	t.Parallel()

	st := DefaultSettings("T0001")
	st.TripCost = decimal.NewFromFloat(12.5)
	st.BotAPIToken = "secret-token"

	if v, ok := st.Value(SettingTripCost); !ok || v != "12.5" {
		t.Fatalf("trip_cost = %q ok=%v", v, ok)
	}
	if v, ok := st.Value(SettingLogChannelName); !ok || v != "logbook" {
		t.Fatalf("log_channel_name = %q ok=%v", v, ok)
	}
	if v, ok := st.Value(SettingBotAPIToken); !ok || v != "s**********n" {
		t.Fatalf("bot_api_token = %q ok=%v", v, ok)
	}
	if _, ok := st.Value("nope"); ok {
		t.Fatalf("expected ok=false")
	}
}
