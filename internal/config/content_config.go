package config

import (
	"strconv"
	"time"
)

type ContentConfig interface {
	GetContentAPIBaseURL() string
	GetContentCacheTTL() time.Duration
	GetMarqueeDays() int
	GetMarqueeMaxItems() int
	GetMarqueeRefreshInterval() time.Duration
}

type Content struct{}

var _ ContentConfig = Content{}

func (Content) GetContentAPIBaseURL() string {
	return GetEnv("CONTENT_API_URL", "")
}

func (Content) GetContentCacheTTL() time.Duration {
	return getDurationEnv("CONTENT_CACHE_TTL", 5*time.Minute)
}

// Marquee defaults: scheme updates from the last 2 days, at most 7 entries.
func (Content) GetMarqueeDays() int {
	return getIntEnv("MARQUEE_DAYS", 2)
}

func (Content) GetMarqueeMaxItems() int {
	return getIntEnv("MARQUEE_MAX_ITEMS", 7)
}

func (Content) GetMarqueeRefreshInterval() time.Duration {
	return getDurationEnv("MARQUEE_REFRESH_INTERVAL", 0)
}

func getIntEnv(envVar string, defaultValue int) int {
	if v, err := strconv.Atoi(GetEnv(envVar, "")); err == nil {
		return v
	}
	return defaultValue
}

func getDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(GetEnv(envVar, "")); err == nil {
		return v
	}
	return defaultValue
}
