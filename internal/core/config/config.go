package config

import (
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Workspace     Workspace     `toml:"workspace"`
	Tags          Tags          `toml:"tags"`
	Exclude       Exclude       `toml:"exclude"`
	Search        Search        `toml:"search"`
	Content       Content       `toml:"content"`
	History       History       `toml:"history"`
	Server        Server        `toml:"server"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	// Root anchors every relative path below. Empty means the directory
	// containing the config file.
	Root     string `toml:"root"`
	StateDir string `toml:"state_dir"`
}

// Workspace describes where the file tree and file contents come from.
// Either Dir (local checkout) or TreeURL/ContentURL (static server) is set.
type Workspace struct {
	Dir        string `toml:"dir"`
	TreeFile   string `toml:"tree_file"`
	TreeURL    string `toml:"tree_url"`
	ContentURL string `toml:"content_url"`
}

type Tags struct {
	File string `toml:"file"`
	URL  string `toml:"url"`
	// Reload re-reads File when it changes on disk.
	Reload bool `toml:"reload"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Search struct {
	FileMatches     int `toml:"file_matches"`
	WorkspaceFiles  int `toml:"workspace_files"`
	PerFile         int `toml:"per_file"`
	WorkspaceTotal  int `toml:"workspace_total"`
	Concurrency     int `toml:"concurrency"`
	GrepConcurrency int `toml:"grep_concurrency"`
}

type Content struct {
	CacheEntries int           `toml:"cache_entries"`
	MaxBytes     int64         `toml:"max_bytes"`
	RatePerSec   float64       `toml:"rate_per_second"`
	Burst        int           `toml:"burst"`
	Timeout      time.Duration `toml:"timeout"`
}

type History struct {
	Capacity    int           `toml:"capacity"`
	Persist     bool          `toml:"persist"`
	DBPath      string        `toml:"db_path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	// QueueSize and FlushInterval tune the write-behind queue in front of
	// the history database.
	QueueSize     int           `toml:"queue_size"`
	FlushInterval time.Duration `toml:"flush_interval"`
}

type Server struct {
	Address      string        `toml:"address"`
	RateLimit    float64       `toml:"rate_limit"`
	RateBurst    int           `toml:"rate_burst"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	SessionTTL   time.Duration `toml:"session_ttl"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	Metrics     bool    `toml:"metrics"`
	Tracing     bool    `toml:"tracing"`
	Endpoint    string  `toml:"otlp_endpoint"`
	Insecure    bool    `toml:"otlp_insecure"`
	SampleRatio float64 `toml:"sample_ratio"`
	ServiceName string  `toml:"service_name"`
}

// Default returns a configuration with every default applied, used when no
// config file is present.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}
