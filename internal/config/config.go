package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultPort           = 8080
	DefaultTimeoutSeconds = 300
	DefaultMaxMemoryMB    = 32
	DefaultTitle          = "Loadista - File Transfer"
)

// Config is intentionally small and JSON-friendly.
// It is built once at startup and handed to the server by value.
type Config struct {
	// Root is the directory exposed for browsing and uploads.
	// Default: the directory holding the running executable.
	Root string `json:"root"`

	// Bind is the listen host. Empty means all interfaces.
	Bind string `json:"bind,omitempty"`

	// Port is the TCP listen port.
	Port int `json:"port"`

	// TimeoutSeconds bounds how long a connection may sit idle on a read or write.
	// 0 means the default; a negative value disables the timeout.
	TimeoutSeconds int `json:"timeoutSeconds"`

	// MaxMemoryMB is the multipart in-memory threshold; larger parts spill to temp files.
	MaxMemoryMB int64 `json:"maxMemoryMB,omitempty"`

	// MaxUploadMB caps a POST body. 0 disables the cap.
	MaxUploadMB int64 `json:"maxUploadMB,omitempty"`

	// Title is shown in the page header and <title>.
	Title string `json:"title,omitempty"`

	// DAV mounts a WebDAV view of Root under /dav/.
	DAV bool `json:"dav,omitempty"`

	// QR prints a terminal QR code of the server URL at startup.
	QR *bool `json:"qr,omitempty"`
}

// Default returns a Config with every field at its documented default.
func Default() Config {
	qr := true
	return Config{
		Port:           DefaultPort,
		TimeoutSeconds: DefaultTimeoutSeconds,
		MaxMemoryMB:    DefaultMaxMemoryMB,
		Title:          DefaultTitle,
		QR:             &qr,
	}
}

// Load reads a JSON config file on top of Default().
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Finalize fills empty fields and makes Root absolute, then validates.
func (c *Config) Finalize() error {
	if c.Root == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		c.Root = filepath.Dir(exe)
	}
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("abs root: %w", err)
	}
	c.Root = abs
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.MaxMemoryMB == 0 {
		c.MaxMemoryMB = DefaultMaxMemoryMB
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	return c.Validate()
}

func (c Config) Validate() error {
	if c.Root == "" {
		return errors.New("config: root is required")
	}
	st, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("config: root: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("config: root %s is not a directory", c.Root)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.MaxMemoryMB < 0 || c.MaxUploadMB < 0 {
		return errors.New("config: size limits must not be negative")
	}
	return nil
}

// Timeout is the per-connection idle timeout, or 0 when disabled.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds < 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) MaxMemory() int64 {
	return c.MaxMemoryMB << 20
}

func (c Config) MaxUpload() int64 {
	return c.MaxUploadMB << 20
}

func (c Config) ShowQR() bool {
	return c.QR == nil || *c.QR
}

// Addr is the listen address for net.Listen.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}
