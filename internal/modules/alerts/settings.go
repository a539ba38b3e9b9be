// README: Alert thresholds, persisted as JSON under the alert_settings config key.
package alerts

import (
	"context"
	"encoding/json"
	"time"
)

// SettingsKey is the persisted-config key holding the JSON thresholds.
const SettingsKey = "alert_settings"

type Settings struct {
	PendingTimeoutS     int `json:"pending_timeout_s"`
	StatPendingTimeoutS int `json:"stat_pending_timeout_s"`
	AcceptanceTimeoutS  int `json:"acceptance_timeout_s"`
	CycleTimeS          int `json:"cycle_time_s"`
	StatCycleTimeS      int `json:"stat_cycle_time_s"`
	BreakMaxS           int `json:"break_max_s"`
	CooldownS           int `json:"cooldown_s"`
}

func DefaultSettings() Settings {
	return Settings{
		PendingTimeoutS:     600,
		StatPendingTimeoutS: 180,
		AcceptanceTimeoutS:  300,
		CycleTimeS:          2700,
		StatCycleTimeS:      1200,
		BreakMaxS:           1800,
		CooldownS:           600,
	}
}

// ParseSettings overlays the stored JSON on the defaults; a malformed blob
// falls back to defaults entirely.
func ParseSettings(raw string) Settings {
	s := DefaultSettings()
	if raw == "" {
		return s
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return DefaultSettings()
	}
	return s
}

func (s Settings) PendingTimeout() time.Duration { return secs(s.PendingTimeoutS) }
func (s Settings) StatPendingTimeout() time.Duration { return secs(s.StatPendingTimeoutS) }
func (s Settings) AcceptanceTimeout() time.Duration { return secs(s.AcceptanceTimeoutS) }
func (s Settings) CycleTime() time.Duration { return secs(s.CycleTimeS) }
func (s Settings) StatCycleTime() time.Duration { return secs(s.StatCycleTimeS) }
func (s Settings) BreakMax() time.Duration { return secs(s.BreakMaxS) }
func (s Settings) Cooldown() time.Duration { return secs(s.CooldownS) }

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// KeyGetter is the persisted-config read seam.
type KeyGetter interface {
	Get(ctx context.Context, key string) (string, error)
}

// KVSettings sources thresholds from the config store on every read, so a
// manager edit takes effect on the scanner's next sweep.
type KVSettings struct {
	kv KeyGetter
}

func NewKVSettings(kv KeyGetter) *KVSettings {
	return &KVSettings{kv: kv}
}

func (k *KVSettings) Current(ctx context.Context) (Settings, error) {
	raw, err := k.kv.Get(ctx, SettingsKey)
	if err != nil {
		return DefaultSettings(), nil
	}
	return ParseSettings(raw), nil
}
