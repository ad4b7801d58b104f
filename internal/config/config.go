package config

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"attendance.service/internal/core/model"
	"attendance.service/internal/core/settings"
)

// The services run in EKS with DB, AWS and queue settings injected as pod
// environment variables. Locally a .env file fills the same keys.

type Config struct {
	DBHost                string `mapstructure:"DB_HOST"`
	DBPort                string `mapstructure:"DB_PORT"`
	DBUser                string `mapstructure:"DB_USER"`
	DBPassword            string `mapstructure:"DB_PASSWORD"`
	DBName                string `mapstructure:"DB_NAME"`
	DBMigrate             bool   `mapstructure:"DB_MIGRATE"`
	StorageDriver         string `mapstructure:"STORAGE_DRIVER"`
	ServerPort            string `mapstructure:"SERVER_PORT"`
	TrustedProxies        string `mapstructure:"TRUSTED_PROXIES"`
	IsLocalDev            bool   `mapstructure:"IS_LOCAL_DEV"`
	AWSRegion             string `mapstructure:"AWS_REGION"`
	AWSEndpoint           string `mapstructure:"AWS_ENDPOINT"`
	IngestSQSQueueURL     string `mapstructure:"INGEST_SQS_QUEUE_URL"`
	PayrollSQSQueueURL    string `mapstructure:"PAYROLL_SQS_QUEUE_URL"`
	EmailSQSQueueURL      string `mapstructure:"EMAIL_SQS_QUEUE_URL"`
	WorkerConcurrency     int    `mapstructure:"WORKER_CONCURRENCY"`
	PayrollAPIURL         string `mapstructure:"PAYROLL_API_URL"`
	EmailSender           string `mapstructure:"EMAIL_SENDER"`
	EmailDomain           string `mapstructure:"EMAIL_DOMAIN"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	OTELEndpoint          string `mapstructure:"OTEL_ENDPOINT"`
	CalendarSeedFile      string `mapstructure:"CALENDAR_SEED_FILE"`
	DefaultTimezone       string `mapstructure:"DEFAULT_TIMEZONE"`
	DefaultWorkingDays    string `mapstructure:"DEFAULT_WORKING_DAYS"`
	DefaultAllowEarly     int    `mapstructure:"DEFAULT_ALLOW_EARLY_CHECKIN"`
	MorningStartHour      int    `mapstructure:"MORNING_START_HOUR"`
	MorningEndHour        int    `mapstructure:"MORNING_END_HOUR"`
	MorningLateMinutes    int    `mapstructure:"MORNING_LATE_MINUTES"`
	MorningEarlyMinutes   int    `mapstructure:"MORNING_EARLY_LEAVE_MINUTES"`
	MorningNoCheckoutMins int    `mapstructure:"MORNING_NO_CHECKOUT_MINUTES"`
	MorningMinHours       int    `mapstructure:"MORNING_MIN_HOURS"`
	EveningStartHour      int    `mapstructure:"EVENING_START_HOUR"`
	EveningEndHour        int    `mapstructure:"EVENING_END_HOUR"`
	EveningLateMinutes    int    `mapstructure:"EVENING_LATE_MINUTES"`
	EveningEarlyMinutes   int    `mapstructure:"EVENING_EARLY_LEAVE_MINUTES"`
	EveningNoCheckoutMins int    `mapstructure:"EVENING_NO_CHECKOUT_MINUTES"`
	EveningMinHours       int    `mapstructure:"EVENING_MIN_HOURS"`
}

// LoadConfig reads configuration from an optional .env file and the environment.
func LoadConfig() (config Config, err error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	def := settings.Defaults()
	morning, evening := def.Shifts[model.ShiftMorning], def.Shifts[model.ShiftEvening]

	v.SetDefault("DB_HOST", "db")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "attendance_db")
	v.SetDefault("DB_MIGRATE", true)
	v.SetDefault("STORAGE_DRIVER", "postgres")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("IS_LOCAL_DEV", false)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	v.SetDefault("INGEST_SQS_QUEUE_URL", "http://localstack:4566/000000000000/attendance-ingest-queue")
	v.SetDefault("PAYROLL_SQS_QUEUE_URL", "http://localstack:4566/000000000000/payroll-queue")
	v.SetDefault("EMAIL_SQS_QUEUE_URL", "http://localstack:4566/000000000000/email-queue")
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("PAYROLL_API_URL", "http://localhost:8081/")
	v.SetDefault("EMAIL_SENDER", "attendance@example.com")
	v.SetDefault("EMAIL_DOMAIN", "example.com")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("OTEL_ENDPOINT", "jaeger:4317")
	v.SetDefault("CALENDAR_SEED_FILE", "")
	v.SetDefault("DEFAULT_TIMEZONE", def.Timezone)
	v.SetDefault("DEFAULT_WORKING_DAYS", "1,2,3,4,5")
	v.SetDefault("DEFAULT_ALLOW_EARLY_CHECKIN", def.AllowEarlyCheckIn)
	v.SetDefault("MORNING_START_HOUR", morning.StartHour)
	v.SetDefault("MORNING_END_HOUR", morning.EndHour)
	v.SetDefault("MORNING_LATE_MINUTES", morning.LateThresholdMinutes)
	v.SetDefault("MORNING_EARLY_LEAVE_MINUTES", morning.EarlyLeaveThresholdMinutes)
	v.SetDefault("MORNING_NO_CHECKOUT_MINUTES", morning.NoCheckoutLateMinutes)
	v.SetDefault("MORNING_MIN_HOURS", morning.MinHoursForPresent)
	v.SetDefault("EVENING_START_HOUR", evening.StartHour)
	v.SetDefault("EVENING_END_HOUR", evening.EndHour)
	v.SetDefault("EVENING_LATE_MINUTES", evening.LateThresholdMinutes)
	v.SetDefault("EVENING_EARLY_LEAVE_MINUTES", evening.EarlyLeaveThresholdMinutes)
	v.SetDefault("EVENING_NO_CHECKOUT_MINUTES", evening.NoCheckoutLateMinutes)
	v.SetDefault("EVENING_MIN_HOURS", evening.MinHoursForPresent)
}

// DefaultSettings is the settings document written on first boot. It is not
// validated here; the settings store does that.
func (c Config) DefaultSettings() model.AttendanceSettings {
	return model.AttendanceSettings{
		Shifts: map[model.ShiftName]model.ShiftConfig{
			model.ShiftMorning: {
				Name:                       model.ShiftMorning,
				StartHour:                  c.MorningStartHour,
				EndHour:                    c.MorningEndHour,
				LateThresholdMinutes:       c.MorningLateMinutes,
				EarlyLeaveThresholdMinutes: c.MorningEarlyMinutes,
				NoCheckoutLateMinutes:      c.MorningNoCheckoutMins,
				MinHoursForPresent:         c.MorningMinHours,
			},
			model.ShiftEvening: {
				Name:                       model.ShiftEvening,
				StartHour:                  c.EveningStartHour,
				EndHour:                    c.EveningEndHour,
				LateThresholdMinutes:       c.EveningLateMinutes,
				EarlyLeaveThresholdMinutes: c.EveningEarlyMinutes,
				NoCheckoutLateMinutes:      c.EveningNoCheckoutMins,
				MinHoursForPresent:         c.EveningMinHours,
			},
		},
		GlobalSettings: model.GlobalSettings{
			AllowEarlyCheckIn: c.DefaultAllowEarly,
			Timezone:          c.DefaultTimezone,
			AllowedIPs:        []string{},
		},
	}
}

// WorkingDays parses DEFAULT_WORKING_DAYS, a comma separated list of weekday
// indices with 0 for Sunday.
func (c Config) WorkingDays() (model.WeeklyPattern, error) {
	var idx []int
	for _, part := range strings.Split(c.DefaultWorkingDays, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return model.WeeklyPattern{}, fmt.Errorf("DEFAULT_WORKING_DAYS: %q is not a weekday index", part)
		}
		idx = append(idx, n)
	}
	p, err := model.ParseWeeklyPattern(idx)
	if err != nil {
		return model.WeeklyPattern{}, fmt.Errorf("DEFAULT_WORKING_DAYS: %w", err)
	}
	return p, nil
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES, a comma separated list of
// addresses or CIDR ranges whose forwarding headers the API believes.
func (c Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, part := range strings.Split(c.TrustedProxies, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			p, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// DSN is the pgx connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}
