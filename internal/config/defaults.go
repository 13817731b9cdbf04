package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/mitate/data/db/catalog.db"
	}
	if cfg.Storage.TextIndexPath == "" {
		cfg.Storage.TextIndexPath = "/usr/local/var/mitate/data/indices/text.vec"
	}
	if cfg.Storage.ImageIndexPath == "" {
		cfg.Storage.ImageIndexPath = "/usr/local/var/mitate/data/indices/image.vec"
	}
	if cfg.Encoding.BaseURL == "" {
		cfg.Encoding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Encoding.TextModel == "" {
		cfg.Encoding.TextModel = "text-embedding-3-small"
	}
	if cfg.Encoding.Dimensions == 0 {
		cfg.Encoding.Dimensions = 768
	}
	if cfg.Encoding.ImageDimensions == 0 {
		cfg.Encoding.ImageDimensions = 512
	}
	if cfg.Encoding.MemoSize == 0 {
		cfg.Encoding.MemoSize = 10000
	}
	if cfg.Encoding.TimeoutSeconds == 0 {
		cfg.Encoding.TimeoutSeconds = 15
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 500
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.1
	}
	if cfg.Generation.TimeoutSeconds == 0 {
		cfg.Generation.TimeoutSeconds = 30
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.FetchMultiplier < 2 {
		cfg.Search.FetchMultiplier = 3
	}
	if cfg.Search.DefaultAlpha == 0 {
		cfg.Search.DefaultAlpha = 0.7
	}
	if cfg.Personalization.FavoriteBoost == 0 {
		cfg.Personalization.FavoriteBoost = 0.30
	}
	if cfg.Personalization.ColorBoost == 0 {
		cfg.Personalization.ColorBoost = 0.15
	}
	if cfg.Personalization.StyleBoost == 0 {
		cfg.Personalization.StyleBoost = 0.10
	}
	if cfg.Personalization.FavoritesWeight == 0 {
		cfg.Personalization.FavoritesWeight = 0.50
	}
	if cfg.Personalization.HistoryWeight == 0 {
		cfg.Personalization.HistoryWeight = 0.30
	}
	if cfg.Personalization.PreferencesWeight == 0 {
		cfg.Personalization.PreferencesWeight = 0.20
	}
	if cfg.Personalization.HistoryDepth == 0 {
		cfg.Personalization.HistoryDepth = 5
	}
	if cfg.Session.MaxSessions == 0 {
		cfg.Session.MaxSessions = 1000
	}
	if cfg.Session.TTLMinutes == 0 {
		cfg.Session.TTLMinutes = 60
	}
	if cfg.Session.MaxTurns == 0 {
		cfg.Session.MaxTurns = 10
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 20
	}
}
