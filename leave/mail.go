package leave

import (
	"strconv"
	"strings"
)

// Settings keys read by the mail collaborator.
const (
	SettingMailServer   = "mail_server"
	SettingMailPort     = "port"
	SettingMailUseTLS   = "use_tls"
	SettingMailUsername = "username"
	SettingMailPassword = "password"
	SettingMailSender   = "sender"

	DefaultMailPort = 587
)

// MailConfig is the typed view of the mail-delivery keys in the settings map.
// The store never sends mail; it only hands this to whoever does.
type MailConfig struct {
	Server   string
	Port     int
	UseTLS   bool
	Username string
	Password string
	Sender   string
}

// Enabled reports whether a mail server is configured at all.
func (c MailConfig) Enabled() bool { return c.Server != "" }

// MailConfigFrom extracts the mail configuration from a settings map.
// A missing or malformed port falls back to DefaultMailPort.
func MailConfigFrom(settings map[string]string) MailConfig {
	port, err := strconv.Atoi(settings[SettingMailPort])
	if err != nil || port <= 0 {
		port = DefaultMailPort
	}
	return MailConfig{
		Server:   settings[SettingMailServer],
		Port:     port,
		UseTLS:   strings.EqualFold(settings[SettingMailUseTLS], "true"),
		Username: settings[SettingMailUsername],
		Password: settings[SettingMailPassword],
		Sender:   settings[SettingMailSender],
	}
}
