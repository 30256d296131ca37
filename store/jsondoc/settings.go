package jsondoc

import (
	"context"

	"go.uber.org/zap"

	"github.com/warp/leave-tracker/leave"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Setting returns the value stored under key, or def when the key is absent.
func (s *Store) Setting(_ context.Context, key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settingLocked(key, def)
}

// SetSetting stores value under key and persists.
func (s *Store) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Settings[key] = value
	s.log.Info("setting changed", zap.String("key", key))
	return s.persistLocked()
}

// AllSettings returns a copy of the settings map.
func (s *Store) AllSettings(_ context.Context) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.doc.Settings))
	for k, v := range s.doc.Settings {
		out[k] = v
	}
	return out
}

// CurrentPeriod returns the accounting period new requests are tagged with
// and balances are computed for.
func (s *Store) CurrentPeriod(ctx context.Context) string {
	return s.Setting(ctx, leave.SettingCurrentPeriod, leave.DefaultPeriod)
}

// MailConfig returns the mail-delivery view of the settings.
func (s *Store) MailConfig(ctx context.Context) leave.MailConfig {
	return leave.MailConfigFrom(s.AllSettings(ctx))
}

func (s *Store) settingLocked(key, def string) string {
	if v, ok := s.doc.Settings[key]; ok {
		return v
	}
	return def
}
