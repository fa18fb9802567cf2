package conf

import (
	"fmt"
)

type Bootstrap struct {
	Server       *Server       `yaml:"server" json:"server"`
	Data         *Data         `yaml:"data" json:"data"`
	Auth         *Auth         `yaml:"auth" json:"auth"`
	Webhook      *Webhook      `yaml:"webhook" json:"webhook"`
	Subscription *Subscription `yaml:"subscription" json:"subscription"`
	Tracking     *Tracking     `yaml:"tracking" json:"tracking"`
	Log          *Log          `yaml:"log" json:"log"`
}

type Server struct {
	Http struct {
		Addr    string `yaml:"addr" json:"addr"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"http" json:"http"`
}

type Data struct {
	Database struct {
		Driver string `yaml:"driver" json:"driver"`
		Source string `yaml:"source" json:"source"`
	} `yaml:"database" json:"database"`
	Redis struct {
		Addr         string `yaml:"addr" json:"addr"`
		Password     string `yaml:"password" json:"password"`
		Db           int32  `yaml:"db" json:"db"`
		ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
	} `yaml:"redis" json:"redis"`
}

// Auth carries the token-signing secret. The secret is expected to come in
// through the BOOKING_AUTH_SECRET env override rather than committed yaml.
type Auth struct {
	Secret string `yaml:"secret" json:"secret"`
	Issuer string `yaml:"issuer" json:"issuer"`
}

// Webhook carries the payment-provider webhook signing secret.
type Webhook struct {
	YocoSecret string `yaml:"yoco_secret" json:"yoco_secret"`
}

type Subscription struct {
	// QueueName is the Redis list the webhook handler enqueues into.
	QueueName string `yaml:"queue_name" json:"queue_name"`
	// MaxDeliveries bounds redelivery of a failing queue task.
	MaxDeliveries int `yaml:"max_deliveries" json:"max_deliveries"`
	// ReminderDaysBefore is how far ahead the cron reminder scan looks.
	ReminderDaysBefore int `yaml:"reminder_days_before" json:"reminder_days_before"`
}

// Tracking configures the server-side conversion tracking client.
// An empty TrackingID disables tracking entirely; it is not an error.
type Tracking struct {
	TrackingID string `yaml:"tracking_id" json:"tracking_id"`
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
}

type Log struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	FilePath   string `yaml:"file_path" json:"file_path"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Validate validates the configuration
func (b *Bootstrap) Validate() error {
	if b.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if b.Server.Http.Addr == "" {
		return fmt.Errorf("server.http.addr is required")
	}
	if b.Data == nil {
		return fmt.Errorf("data configuration is required")
	}
	if b.Data.Database.Source == "" {
		return fmt.Errorf("data.database.source is required")
	}
	if b.Auth == nil || b.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if b.Webhook == nil || b.Webhook.YocoSecret == "" {
		return fmt.Errorf("webhook.yoco_secret is required")
	}
	if b.Subscription == nil {
		return fmt.Errorf("subscription configuration is required")
	}
	if b.Log == nil {
		return fmt.Errorf("log configuration is required")
	}
	return nil
}

// EventQueueName returns the configured queue name or the default.
func (b *Bootstrap) EventQueueName() string {
	if b.Subscription != nil && b.Subscription.QueueName != "" {
		return b.Subscription.QueueName
	}
	return "subscription:events"
}

// MaxDeliveries returns the configured redelivery bound or the default.
func (b *Bootstrap) MaxDeliveries() int {
	if b.Subscription != nil && b.Subscription.MaxDeliveries > 0 {
		return b.Subscription.MaxDeliveries
	}
	return 5
}

// ReminderDaysBefore returns the configured reminder window or the default.
func (b *Bootstrap) ReminderDaysBefore() int {
	if b.Subscription != nil && b.Subscription.ReminderDaysBefore > 0 {
		return b.Subscription.ReminderDaysBefore
	}
	return 7
}
