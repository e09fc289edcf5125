package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return err
	}
	if c.Paths.RenderDir, err = expandPath(c.Paths.RenderDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	c.Auth.AdminUser = strings.TrimSpace(c.Auth.AdminUser)
	c.Auth.AdminPasswordHash = strings.ToLower(strings.TrimSpace(c.Auth.AdminPasswordHash))
	c.Auth.SessionCutoffWeekday = strings.ToLower(strings.TrimSpace(c.Auth.SessionCutoffWeekday))
	c.Realtime.DeviceIdentity = strings.ToLower(strings.TrimSpace(c.Realtime.DeviceIdentity))
	c.Push.VAPIDPublicKey = strings.TrimSpace(c.Push.VAPIDPublicKey)
	c.Push.VAPIDPrivateKey = strings.TrimSpace(c.Push.VAPIDPrivateKey)
	c.Push.Subscriber = strings.TrimSpace(c.Push.Subscriber)
	c.Processing.PDFRenderBinary = strings.TrimSpace(c.Processing.PDFRenderBinary)
	c.Processing.DarkModeCommand = strings.TrimSpace(c.Processing.DarkModeCommand)
	c.Processing.OCRBinary = strings.TrimSpace(c.Processing.OCRBinary)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	return nil
}
