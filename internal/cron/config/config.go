package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Sender email sync, every 30 minutes
	CronScheduleSenderEmailSync string `env:"CRON_SCHEDULE_SENDER_EMAIL_SYNC" envDefault:"0 */30 * * * *"`
	// Billing report export, daily at 02:00 UTC
	CronScheduleBillingReport string `env:"CRON_SCHEDULE_BILLING_REPORT" envDefault:"0 0 2 * * *"`
}
