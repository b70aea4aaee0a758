package config

import (
	"fmt"
	"strconv"
	"time"
)

// envPrefix namespaces every server variable.
const envPrefix = "DOCUVAULT_"

// parseEnv overlays DOCUVAULT_* variables. Durations use Go syntax ("15m").
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"HTTP_ADDR":        &config.EndpointAddrHTTP,
		"DATABASE_DSN":     &config.DatabaseDSN,
		"SECRET_KEY":       &config.SecretKey,
		"S3_ROOT_USER":     &config.S3RootUser,
		"S3_ROOT_PASSWORD": &config.S3RootPassword,
		"S3_BUCKET":        &config.S3Bucket,
		"S3_REGION":        &config.S3Region,
		"S3_BASE_ENDPOINT": &config.S3BaseEndpoint,
		"PUBLIC_BASE_URL":  &config.PublicBaseURL,
		"MAIL_RELAY_URL":   &config.MailRelayURL,
		"REDIS_URL":        &config.RedisURL,
		"LOG_LEVEL":        &config.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_VALIDITY":  &config.AccessTokenValidityDuration,
		"REFRESH_TOKEN_VALIDITY": &config.RefreshTokenValidityDuration,
		"DOWNLOAD_URL_VALIDITY":  &config.DownloadURLValidity,
		"SHARE_URL_VALIDITY":     &config.ShareURLValidity,
		"UPLOAD_TIMEOUT":         &config.UploadTimeout,
		"NOTIFY_TIMEOUT":         &config.NotifyTimeout,
	}
	for name, dst := range durations {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := lookup(envPrefix + "S3_USE_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sS3_USE_PATH_STYLE: %w", envPrefix, err)
		}
		config.S3UsePathStyle = b
	}
	if v, ok := lookup(envPrefix + "MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_UPLOAD_BYTES: %w", envPrefix, err)
		}
		config.MaxUploadBytes = n
	}
	return nil
}
