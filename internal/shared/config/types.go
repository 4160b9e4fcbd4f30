package config

import "fmt"

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
	BaseURL string `mapstructure:"base_url"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GatewayConfig holds the Zibal merchant credentials. The merchant id and
// callback URL are resolved once at startup and passed down; nothing in the
// engine performs ambient config lookups.
type GatewayConfig struct {
	Merchant    string `mapstructure:"merchant"`
	CallbackURL string `mapstructure:"callback_url"`
	BaseURL     string `mapstructure:"base_url"`
}

// SweepConfig carries the reconciliation thresholds used by the scheduled
// sweep variants: minutes for the age thresholds, hours for the look-back
// window.
type SweepConfig struct {
	RefundAfterMinutes   int  `mapstructure:"refund_after_minutes"`
	CheckIntervalMinutes int  `mapstructure:"check_interval_minutes"`
	ExpireAfterMinutes   int  `mapstructure:"expire_after_minutes"`
	LookBackHours        int  `mapstructure:"look_back_hours"`
	MaxInquiryFails      int  `mapstructure:"max_inquiry_fails"`
	CheckCancelled       bool `mapstructure:"check_cancelled"`
	CheckExpired         bool `mapstructure:"check_expired"`
	TrackExpireHours     int  `mapstructure:"track_expire_hours"`
	TrackCleanupHours    int  `mapstructure:"track_cleanup_hours"`
}

type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
	AdminAddress string `mapstructure:"admin_address"`
}
