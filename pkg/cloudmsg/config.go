package cloudmsg

import (
	"fmt"
	"strings"
	"time"
)

type Settings struct {
	GCM      CloudSettings    `yaml:"gcm" json:"gcm"`
	FCM      CloudSettings    `yaml:"fcm" json:"fcm"`
	Redis    RedisSettings    `yaml:"redis" json:"redis"`
	MySQL    MySQLSettings    `yaml:"mysql" json:"mysql"`
	RocketMQ RocketMQSettings `yaml:"rocketmq" json:"rocketmq"`

	// MetricsAddr, when set, exposes /metrics on the worker.
	MetricsAddr string `yaml:"metrics-addr" json:"metricsAddr"`
}

type CloudSettings struct {
	PostURL       string        `yaml:"post-url" json:"postUrl"`
	APIKey        string        `yaml:"api-key" json:"apiKey"`
	MaxRecipients int           `yaml:"max-recipients" json:"maxRecipients"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	// Notifications (Y/N) opts the split notification/data payload scheme
	// in or out. Only honored for FCM; defaults to Y there.
	Notifications string `yaml:"notifications" json:"notifications"`
}

type RedisSettings struct {
	Enabled  string        `yaml:"enabled" json:"enabled"`
	Host     string        `yaml:"host" json:"host"`
	Port     int           `yaml:"port" json:"port"`
	Database int           `yaml:"database" json:"database"`
	Password string        `yaml:"password" json:"password"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	QueueKey string        `yaml:"queue-key" json:"queueKey"`
	Pool     RedisPool     `yaml:"pool" json:"pool"`
}

type RedisPool struct {
	MaxIdle   int `yaml:"max-idle" json:"maxIdle"`
	MaxActive int `yaml:"max-active" json:"maxActive"`
}

type MySQLSettings struct {
	Enabled      string        `yaml:"enabled" json:"enabled"`
	DSN          string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns int           `yaml:"max-open-conns" json:"maxOpenConns"`
	MaxIdleConns int           `yaml:"max-idle-conns" json:"maxIdleConns"`
	ConnMaxLife  time.Duration `yaml:"conn-max-life" json:"connMaxLife"`
	PingTimeout  time.Duration `yaml:"ping-timeout" json:"pingTimeout"`
}

type RocketMQSettings struct {
	Enabled    string           `yaml:"enabled" json:"enabled"`
	NameServer string           `yaml:"name-server" json:"nameServer"`
	Producer   RocketMQProducer `yaml:"producer" json:"producer"`
	Topic      string           `yaml:"topic" json:"topic"`
	Tag        string           `yaml:"tag" json:"tag"`
}

type RocketMQProducer struct {
	AccessKey string `yaml:"access-key" json:"accessKey"`
	SecretKey string `yaml:"secret-key" json:"secretKey"`
	Group     string `yaml:"group" json:"group"`
}

func (s Settings) WithDefaults() Settings {
	o := s
	o.Redis.Enabled = normalizeYN(o.Redis.Enabled)
	o.MySQL.Enabled = normalizeYN(o.MySQL.Enabled)
	o.RocketMQ.Enabled = normalizeYN(o.RocketMQ.Enabled)

	if o.GCM.PostURL == "" {
		o.GCM.PostURL = "https://android.googleapis.com/gcm/send"
	}
	if o.FCM.PostURL == "" {
		o.FCM.PostURL = "https://fcm.googleapis.com/fcm/send"
	}
	if o.GCM.MaxRecipients <= 0 {
		o.GCM.MaxRecipients = 1000
	}
	if o.FCM.MaxRecipients <= 0 {
		o.FCM.MaxRecipients = 1000
	}
	if o.GCM.Timeout <= 0 {
		o.GCM.Timeout = 5 * time.Second
	}
	if o.FCM.Timeout <= 0 {
		o.FCM.Timeout = 5 * time.Second
	}
	// The split scheme never applies to GCM; the flag defaults on for FCM.
	o.GCM.Notifications = "N"
	if o.FCM.Notifications == "" {
		o.FCM.Notifications = "Y"
	} else {
		o.FCM.Notifications = normalizeYN(o.FCM.Notifications)
	}

	if o.Redis.Port == 0 {
		o.Redis.Port = 6379
	}
	if o.Redis.Timeout == 0 {
		o.Redis.Timeout = 5 * time.Second
	}
	if o.Redis.QueueKey == "" {
		o.Redis.QueueKey = "dispatch:queue"
	}
	return o
}

// ForCloud resolves the settings profile for ct.
func (s Settings) ForCloud(ct CloudType) (CloudSettings, error) {
	switch ct {
	case CloudGCM:
		return s.GCM, nil
	case CloudFCM:
		return s.FCM, nil
	}
	return CloudSettings{}, &ConfigError{Reason: fmt.Sprintf("cloud type must be GCM or FCM, not %q", string(ct))}
}

func normalizeYN(v string) string {
	v = strings.TrimSpace(strings.ToUpper(v))
	if v == "" {
		return "N"
	}
	if v == "TRUE" {
		return "Y"
	}
	if v == "FALSE" {
		return "N"
	}
	if v == "1" {
		return "Y"
	}
	if v == "0" {
		return "N"
	}
	if v != "Y" {
		return "N"
	}
	return "Y"
}
