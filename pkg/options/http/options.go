// Package http provides HTTP server configuration options.
package http

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/nyx/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains HTTP server configuration.
type Options struct {
	// Addr is the address to listen on.
	Addr string `json:"addr" mapstructure:"addr"`
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	// WriteTimeout 为 0 表示不限制，流式响应的时长由客户端决定。
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration `json:"idle-timeout" mapstructure:"idle-timeout"`
	// ShutdownTimeout 优雅关闭的最长等待时间。
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
	// Mode is the gin mode (debug, release, test).
	Mode string `json:"mode" mapstructure:"mode"`
	// MaxBodyBytes 请求体上限。
	MaxBodyBytes int64 `json:"max-body-bytes" mapstructure:"max-body-bytes"`
	// CORSAllowOrigins 允许的跨域来源，挂件嵌入在任意站点，默认 "*"。
	CORSAllowOrigins []string `json:"cors-allow-origins" mapstructure:"cors-allow-origins"`
	// LogSkipPaths 不记录访问日志的路径。
	LogSkipPaths []string `json:"log-skip-paths" mapstructure:"log-skip-paths"`
	// EnableSwagger 是否提供 /swagger 文档。
	EnableSwagger bool `json:"enable-swagger" mapstructure:"enable-swagger"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		Addr:             ":8080",
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     0,
		IdleTimeout:      60 * time.Second,
		ShutdownTimeout:  15 * time.Second,
		Mode:             "release",
		MaxBodyBytes:     10 << 20,
		CORSAllowOrigins: []string{"*"},
		LogSkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		EnableSwagger:    false,
	}
}

// AddFlags adds flags for HTTP options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "http."
	fs.StringVar(&o.Addr, p+"addr", o.Addr, "HTTP server listen address.")
	fs.DurationVar(&o.ReadTimeout, p+"read-timeout", o.ReadTimeout, "HTTP server read timeout.")
	fs.DurationVar(&o.WriteTimeout, p+"write-timeout", o.WriteTimeout, "HTTP server write timeout, 0 disables it for streaming responses.")
	fs.DurationVar(&o.IdleTimeout, p+"idle-timeout", o.IdleTimeout, "HTTP server idle timeout.")
	fs.DurationVar(&o.ShutdownTimeout, p+"shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout.")
	fs.StringVar(&o.Mode, p+"mode", o.Mode, "Gin mode (debug, release, test).")
	fs.Int64Var(&o.MaxBodyBytes, p+"max-body-bytes", o.MaxBodyBytes, "Maximum request body size in bytes.")
	fs.StringSliceVar(&o.CORSAllowOrigins, p+"cors-allow-origins", o.CORSAllowOrigins, "Origins allowed to call the API.")
	fs.StringSliceVar(&o.LogSkipPaths, p+"log-skip-paths", o.LogSkipPaths, "Paths excluded from the access log.")
	fs.BoolVar(&o.EnableSwagger, p+"enable-swagger", o.EnableSwagger, "Serve API docs at /swagger.")
}

// Validate validates the HTTP options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("http.addr cannot be empty"))
	}
	if o.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.read-timeout must be positive"))
	}
	if o.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("http.write-timeout must not be negative"))
	}
	if o.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.shutdown-timeout must be positive"))
	}
	switch o.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("http.mode must be one of debug, release, test"))
	}
	if o.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("http.max-body-bytes must be positive"))
	}
	return errs
}
