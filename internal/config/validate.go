package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	if c.Server.Bind == "" {
		return errors.New("server.bind must not be empty")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}

	if c.Auth.AdminPasswordHash != "" {
		raw, err := hex.DecodeString(c.Auth.AdminPasswordHash)
		if err != nil || len(raw) != 32 {
			return errors.New("auth.admin_password_hash must be a 64-character SHA-256 hex digest")
		}
	}
	if _, ok := weekdayNames[c.Auth.SessionCutoffWeekday]; !ok {
		return fmt.Errorf("auth.session_cutoff_weekday: unknown weekday %q", c.Auth.SessionCutoffWeekday)
	}
	if c.Auth.SessionCutoffHour < 0 || c.Auth.SessionCutoffHour > 23 {
		return errors.New("auth.session_cutoff_hour must be between 0 and 23")
	}

	if c.Realtime.HeartbeatInterval <= 0 {
		return errors.New("realtime.heartbeat_interval must be positive")
	}
	if c.Realtime.SendBuffer <= 0 {
		return errors.New("realtime.send_buffer must be positive")
	}
	switch c.Realtime.DeviceIdentity {
	case "peer-signature", "connection":
	default:
		return fmt.Errorf("realtime.device_identity: unknown strategy %q", c.Realtime.DeviceIdentity)
	}

	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		return errors.New("push: vapid_public_key and vapid_private_key must be set together")
	}
	if c.Push.VAPIDPublicKey != "" && c.Push.Subscriber == "" {
		return errors.New("push.subscriber is required when VAPID keys are configured")
	}

	if c.Processing.RenderDPI <= 0 || c.Processing.ThumbnailDPI <= 0 {
		return errors.New("processing DPI values must be positive")
	}
	if c.Processing.PDFRenderBinary == "" {
		return errors.New("processing.pdf_render_binary must not be empty")
	}
	if c.Processing.StageTimeout <= 0 {
		return errors.New("processing.stage_timeout must be positive")
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}

	return nil
}

// SessionCutoff returns the configured weekly expiry cutoff.
func (c *Config) SessionCutoff() (time.Weekday, int) {
	day, ok := weekdayNames[strings.ToLower(c.Auth.SessionCutoffWeekday)]
	if !ok {
		day = time.Friday
	}
	return day, c.Auth.SessionCutoffHour
}
