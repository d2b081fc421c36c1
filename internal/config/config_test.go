package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverway/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{"ENV", "SMTP_PORT", "ATTEMPT_STORE", "ATTEMPT_TTL", "BUSINESS_TIMEZONE", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, AttemptStoreMemory, cfg.AttemptStore)
	assert.Equal(t, 2*time.Hour, cfg.AttemptTTL)
	assert.Equal(t, "Africa/Accra", cfg.BusinessTimezone)
	assert.False(t, cfg.UseRedisAttempts())
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BRAND_NAME=Dotenv Hardware\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("CURRENCY_SYMBOL", "$")

	// godotenv never overrides variables that are already set.
	os.Unsetenv("BRAND_NAME")
	t.Cleanup(func() { os.Unsetenv("BRAND_NAME") })

	cfg := Load()
	assert.Equal(t, "Dotenv Hardware", cfg.BrandName)
	assert.Equal(t, "$", cfg.CurrencySymbol)
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset", "", time.Minute},
		{"duration string", "90s", 90 * time.Second},
		{"hours", "2h", 2 * time.Hour},
		{"bare seconds", "30", 30 * time.Second},
		{"garbage", "soon", time.Minute},
		{"zero", "0", time.Minute},
		{"zero duration", "0s", time.Minute},
		{"negative duration", "-5m", time.Minute},
		{"negative seconds", "-30", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestGetFloat(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  float64
	}{
		{"unset", "", 0.7},
		{"decimal", "0.55", 0.55},
		{"whole", "1", 1},
		{"zero", "0", 0.7},
		{"negative", "-0.2", 0.7},
		{"garbage", "high", 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_FLOAT", tt.value)
			assert.Equal(t, tt.want, getFloat("TEST_FLOAT", 0.7))
		})
	}
}

func TestLoad_ChatbotTuning(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("CHATBOT_VARIANTS", "")
	t.Setenv("FAQ_THRESHOLD", "")
	t.Setenv("JANITOR_INTERVAL", "0")

	cfg := Load()
	assert.Equal(t, ReplyVariantsHash, cfg.ReplyVariants)
	assert.False(t, cfg.RandomReplyVariants())
	assert.Equal(t, 0.7, cfg.FAQThreshold)
	assert.Equal(t, 10*time.Minute, cfg.JanitorInterval)

	t.Setenv("CHATBOT_VARIANTS", "Random")
	t.Setenv("FAQ_THRESHOLD", "0.5")
	cfg = Load()
	assert.True(t, cfg.RandomReplyVariants())
	assert.Equal(t, 0.5, cfg.FAQThreshold)
}

func TestConfigHelpers(t *testing.T) {
	cfg := &Config{AttemptStore: AttemptStoreRedis}
	assert.False(t, cfg.UseRedisAttempts(), "redis store needs a URL")
	cfg.RedisURL = "redis://localhost:6379/0"
	assert.True(t, cfg.UseRedisAttempts())

	assert.False(t, cfg.IsEmailEnabled())
	cfg.SMTPHost, cfg.SMTPFrom = "smtp.example.com", "bot@example.com"
	assert.True(t, cfg.IsEmailEnabled())

	cfg.BusinessTimezone = "Not/AZone"
	assert.Equal(t, time.Local, cfg.Location())
	cfg.BusinessTimezone = "UTC"
	assert.Equal(t, "UTC", cfg.Location().String())
}

const seedYAML = `
business_hours:
  monday: { open: "07:00", close: "18:00" }
  sunday: { closed: true }
company:
  name: Riverway Company Limited
  phone: +233 55 845 9119
chatbot:
  welcome_message: Hi there
  escalation_threshold: 4
faqs:
  - question: Do you deliver?
    answer: Yes.
    keywords: [delivery, deliver]
categories:
  - name: Hardware Products
    products:
      - { name: Claw Hammer, sku: HW-1, price: 45, unit: piece, stock: 25 }
      - { name: Nails, sku: HW-2, price: 15.75, unit: bag, stock: 100 }
`

func TestParseSeedData(t *testing.T) {
	seed, err := ParseSeedData([]byte(seedYAML))
	require.NoError(t, err)

	assert.Equal(t, "Riverway Company Limited", seed.Company.Name)
	assert.Equal(t, 4, seed.Chatbot.EscalationThreshold)
	assert.Equal(t, 2, seed.ProductCount())
	require.NotNil(t, seed.GetCategoryByName("hardware products"))
	assert.Nil(t, seed.GetCategoryByName("Plumbing"))

	hours, err := seed.HoursRecords()
	require.NoError(t, err)
	require.Len(t, hours, 2)
	assert.Equal(t, "monday", hours[0].Day)
	assert.Equal(t, models.ClockTime{Hour: 7}, *hours[0].OpenTime)
	assert.Equal(t, models.ClockTime{Hour: 18}, *hours[0].CloseTime)
	assert.Equal(t, "sunday", hours[1].Day)
	assert.True(t, hours[1].IsClosed)
	assert.Nil(t, hours[1].OpenTime)

	faqs := seed.FAQRecords()
	require.Len(t, faqs, 1)
	assert.Equal(t, "delivery, deliver", faqs[0].Keywords)
	assert.Equal(t, models.FAQGeneral, faqs[0].Category)
	assert.True(t, faqs[0].IsActive)
}

func TestParseSeedData_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "business_hours: ["},
		{"unknown weekday", "business_hours:\n  funday: { closed: true }\n"},
		{"faq without answer", "faqs:\n  - question: Why?\n"},
		{"product without sku", "categories:\n  - name: X\n    products:\n      - { name: Thing }\n"},
		{"negative stock", "categories:\n  - name: X\n    products:\n      - { name: Thing, sku: T-1, stock: -1 }\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeedData([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestHoursRecords_BadTime(t *testing.T) {
	seed, err := ParseSeedData([]byte("business_hours:\n  monday: { open: \"7am\", close: \"18:00\" }\n"))
	require.NoError(t, err)
	_, err = seed.HoursRecords()
	assert.Error(t, err)
}

func TestLoadSeedData(t *testing.T) {
	seed, err := LoadSeedData("")
	assert.NoError(t, err)
	assert.Nil(t, seed)

	seed, err = LoadSeedData(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
	assert.Nil(t, seed)

	// The checked-in seed file must always parse.
	seed, err = LoadSeedData(filepath.Join("..", "..", "seed.yaml"))
	require.NoError(t, err)
	require.NotNil(t, seed)
	assert.Len(t, seed.BusinessHours, 7)
	assert.Len(t, seed.FAQs, 10)
	assert.Equal(t, 24, seed.ProductCount())
	_, err = seed.HoursRecords()
	assert.NoError(t, err)
}
