package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "journal.db" {
		t.Errorf("Database.Path = %q, want journal.db", cfg.Database.Path)
	}
	if cfg.Sync.BatchDays != 30 {
		t.Errorf("Sync.BatchDays = %d, want 30", cfg.Sync.BatchDays)
	}
	if cfg.Broker.AccountName != "Trading" {
		t.Errorf("Broker.AccountName = %q, want Trading", cfg.Broker.AccountName)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/journal")
	t.Setenv("SYNC_BATCH_DAYS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Sync.BatchDays != 7 {
		t.Errorf("Sync.BatchDays = %d, want 7", cfg.Sync.BatchDays)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "oracle" },
			wantErr: true,
		},
		{
			name: "postgres without url",
			mutate: func(c *Config) {
				c.Database.Driver = "postgres"
				c.Database.URL = ""
			},
			wantErr: true,
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "zero batch days",
			mutate:  func(c *Config) { c.Sync.BatchDays = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasBroker(t *testing.T) {
	cfg := NewTestConfig()
	if cfg.HasBroker() {
		t.Error("HasBroker() must be false without a token")
	}
	cfg.Broker.Token = "t.abc"
	if !cfg.HasBroker() {
		t.Error("HasBroker() must be true with a token")
	}
}
