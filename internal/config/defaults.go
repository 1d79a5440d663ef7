package config

// DefaultPath is where the server looks for its config file.
const DefaultPath = "/usr/local/etc/emotags/config.yaml"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8181
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/emotags/data/renames.db"
	}
	if cfg.Vault.Extensions == nil {
		cfg.Vault.Extensions = []string{".md"}
	}
	if cfg.Vault.DebounceMS <= 0 {
		cfg.Vault.DebounceMS = 400
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Vault.Directories) > 0 && cfg.Vault.Recursive == nil {
		t := true
		cfg.Vault.Recursive = &t
	}
}
