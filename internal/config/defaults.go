package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 16 << 20
	}
	if cfg.Server.RateLimit.RPS == 0 {
		cfg.Server.RateLimit.RPS = 2
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = 5
	}
	if cfg.Fetch.ExportURLTemplate == "" {
		cfg.Fetch.ExportURLTemplate = "https://docs.google.com/document/d/%s/export?format=html"
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "Mozilla/5.0 (compatible; 5hon.com EPUB Generator)"
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 30 * time.Second
	}
	if cfg.Fetch.MaxBytes == 0 {
		cfg.Fetch.MaxBytes = 32 << 20
	}
	if cfg.Fetch.TitleSuffix == "" {
		cfg.Fetch.TitleSuffix = " - Google ドキュメント"
	}
	if cfg.Fetch.LoginMarkers == nil {
		cfg.Fetch.LoginMarkers = []string{"accounts.google.com", "ServiceLogin"}
	}
	if cfg.Fetch.RateLimit.RPS == 0 {
		cfg.Fetch.RateLimit.RPS = 1
	}
	if cfg.Fetch.RateLimit.Burst == 0 {
		cfg.Fetch.RateLimit.Burst = 3
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/tategaki/data/db/history.db"
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = "/usr/local/var/tategaki/data/books"
	}
	if cfg.Book.Language == "" {
		cfg.Book.Language = "ja"
	}
	if cfg.Book.BackmatterURL == "" {
		cfg.Book.BackmatterURL = "https://5hon.com"
	}
	if cfg.Book.BackmatterText == "" {
		cfg.Book.BackmatterText = "Published on 5hon.com"
	}
	if cfg.Book.DefaultTitle == "" {
		cfg.Book.DefaultTitle = "Untitled"
	}
	setBool(&cfg.Defaults.TcyNumbers, true)
	setBool(&cfg.Defaults.TcyLatin, false)
	setBool(&cfg.Defaults.TocPage, true)
	if cfg.Extract.BlankClasses == nil {
		cfg.Extract.BlankClasses = []string{"c3"}
	}
	setBool(&cfg.Extract.BlankEmptySpan, true)
	setBool(&cfg.Extract.BlankNBSP, true)
	setBool(&cfg.Extract.BlankLineBreak, true)
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".html", ".htm"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		setBool(&cfg.Watch.Recursive, true)
	}
}

func setBool(p **bool, v bool) {
	if *p == nil {
		*p = &v
	}
}
