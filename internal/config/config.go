package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       int
	APIToken   string
	LogDir     string
	LogLevel   string
	DBPath     string
	Headless   bool
	AlertSound string

	CameraDevice int
	FrameWidth   int
	FrameHeight  int
	CameraWarmup time.Duration

	ZoneCount      int
	ZoneSpacing    int
	HSVLower       [3]float64 // H, S, V lower bound (OpenCV ranges: H 0-179, S/V 0-255)
	HSVUpper       [3]float64
	MinContourArea float64

	AlertThreshold  time.Duration // grace before the first alert and interval between repeats
	AlertTick       time.Duration
	CountdownPeriod time.Duration // overlay only

	StreamInterval     int // push every Nth annotated frame to viewers, 0 disables
	AlarmBufferLimit   int
	AlarmFlushInterval int // seconds
}

// Load reads an optional .env file and builds the configuration from the
// environment. A missing .env is not an error.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", p, err)
		}
	}

	lower, err := getEnvAsTriple("HSV_LOWER", [3]float64{20, 100, 100})
	if err != nil {
		return nil, err
	}
	upper, err := getEnvAsTriple("HSV_UPPER", [3]float64{30, 255, 255})
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:       getEnvAsInt("PORT", 8080),
		APIToken:   getEnv("API_TOKEN", ""),
		LogDir:     getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		DBPath:     getEnv("DB_PATH", filepath.Join(".", "data", "alarms.db")),
		Headless:   getEnvAsBool("HEADLESS", false),
		AlertSound: getEnv("ALERT_SOUND", filepath.Join(".", "return_keys.mp3")),

		CameraDevice: getEnvAsInt("CAMERA_DEVICE", 0),
		FrameWidth:   getEnvAsInt("FRAME_WIDTH", 640),
		FrameHeight:  getEnvAsInt("FRAME_HEIGHT", 480),
		CameraWarmup: getEnvAsDuration("CAMERA_WARMUP", 2*time.Second),

		ZoneCount:      getEnvAsInt("ZONE_COUNT", 4),
		ZoneSpacing:    getEnvAsInt("ZONE_SPACING", 10),
		HSVLower:       lower,
		HSVUpper:       upper,
		MinContourArea: getEnvAsFloat("MIN_CONTOUR_AREA", 0),

		AlertThreshold:  getEnvAsDuration("ALERT_THRESHOLD", 5*time.Second),
		AlertTick:       getEnvAsDuration("ALERT_TICK", time.Second),
		CountdownPeriod: getEnvAsDuration("COUNTDOWN_PERIOD", 60*time.Second),

		StreamInterval:     getEnvAsInt("STREAM_INTERVAL", 15),
		AlarmBufferLimit:   getEnvAsInt("ALARM_BUFFER_LIMIT", 100),
		AlarmFlushInterval: getEnvAsInt("ALARM_FLUSH_INTERVAL", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the monitoring core cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.ZoneCount <= 0 {
		errs = append(errs, fmt.Errorf("ZONE_COUNT must be positive, got %d", c.ZoneCount))
	}
	// Zone borders are inclusive, so adjacent zones need at least one pixel between them.
	if c.ZoneSpacing < 1 {
		errs = append(errs, fmt.Errorf("ZONE_SPACING must be at least 1, got %d", c.ZoneSpacing))
	}
	if c.AlertThreshold <= 0 {
		errs = append(errs, fmt.Errorf("ALERT_THRESHOLD must be positive, got %s", c.AlertThreshold))
	}
	if c.AlertTick <= 0 {
		errs = append(errs, fmt.Errorf("ALERT_TICK must be positive, got %s", c.AlertTick))
	}
	if c.CountdownPeriod <= 0 {
		errs = append(errs, fmt.Errorf("COUNTDOWN_PERIOD must be positive, got %s", c.CountdownPeriod))
	}
	if c.StreamInterval < 0 {
		errs = append(errs, fmt.Errorf("STREAM_INTERVAL must not be negative, got %d", c.StreamInterval))
	}
	if c.AlarmFlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("ALARM_FLUSH_INTERVAL must be positive, got %d", c.AlarmFlushInterval))
	}
	for i := range c.HSVLower {
		if c.HSVLower[i] > c.HSVUpper[i] {
			errs = append(errs, fmt.Errorf("HSV_LOWER exceeds HSV_UPPER in channel %d", i))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("1500ms") or plain seconds ("5").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

func getEnvAsTriple(key string, defaultValue [3]float64) ([3]float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return defaultValue, fmt.Errorf("%s must have 3 comma separated values, got %q", key, value)
	}
	var out [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return defaultValue, fmt.Errorf("%s: invalid value %q: %w", key, p, err)
		}
		out[i] = f
	}
	return out, nil
}
