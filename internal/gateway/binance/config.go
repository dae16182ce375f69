package binance

import "time"

type Config struct {
	APIKey            string
	SecretKey         string
	RESTBaseURL       string
	HTTPTimeout       time.Duration
	RequestsPerSecond float64
}

func (c Config) withDefaults() Config {
	final := c
	if final.RESTBaseURL == "" {
		final.RESTBaseURL = "https://api.binance.com"
	}
	if final.HTTPTimeout <= 0 {
		final.HTTPTimeout = 15 * time.Second
	}
	if final.RequestsPerSecond <= 0 {
		final.RequestsPerSecond = 5
	}
	return final
}
