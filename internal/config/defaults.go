package config

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   "~/.local/share/corkboard",
			UploadDir: "~/.local/share/corkboard/uploads",
			RenderDir: "~/.local/share/corkboard/renders",
			LogDir:    "~/.local/share/corkboard/logs",
		},
		Server: Server{
			Bind:         "127.0.0.1:8330",
			ReadTimeout:  15,
			WriteTimeout: 30,
		},
		Auth: Auth{
			AdminUser:            "admin",
			SessionCutoffWeekday: "friday",
			SessionCutoffHour:    22,
		},
		Realtime: Realtime{
			HeartbeatInterval: 30,
			SendBuffer:        64,
			DeviceIdentity:    "peer-signature",
		},
		Push: Push{
			RequestTimeout: 10,
		},
		Processing: Processing{
			RenderDPI:       150,
			ThumbnailDPI:    40,
			PDFRenderBinary: "pdftoppm",
			OCRBinary:       "tesseract",
			StageTimeout:    120,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
