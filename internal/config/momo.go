package config

import (
	"time"
)

type MomoConfig struct {
	Username           string        `yaml:"username" validate:"required"`
	Password           string        `yaml:"password" validate:"required"`
	SubscriptionKey    string        `yaml:"subscription_key" validate:"required"`
	BaseURL            string        `yaml:"base_url" validate:"omitempty,url"`
	CallbackHost       string        `yaml:"callback_host" validate:"omitempty,hostname_rfc1123"`
	DefaultCountry     string        `yaml:"default_country" validate:"required,country_code"`
	AlternateCountries []string      `yaml:"alternate_countries" validate:"dive,country_code"`
	PayerMessage       string        `yaml:"payer_message"`
	PayeeNote          string        `yaml:"payee_note"`
	HTTPTimeout        time.Duration `yaml:"http_timeout" validate:"min=0"`
}

func loadMomoConfig() *MomoConfig {
	return &MomoConfig{
		Username:           getEnv("MOMO_USERNAME", ""),
		Password:           getEnv("MOMO_PASSWORD", ""),
		SubscriptionKey:    getEnv("MOMO_SUBSCRIPTION_KEY", ""),
		BaseURL:            getEnv("MOMO_BASE_URL", ""),
		CallbackHost:       getEnv("MOMO_CALLBACK_HOST", ""),
		DefaultCountry:     getEnv("MOMO_DEFAULT_COUNTRY", "GH"),
		AlternateCountries: getEnvAsSlice("MOMO_ALTERNATE_COUNTRIES", []string{}),
		PayerMessage:       getEnv("MOMO_PAYER_MESSAGE", ""),
		PayeeNote:          getEnv("MOMO_PAYEE_NOTE", ""),
		HTTPTimeout:        getEnvAsDuration("MOMO_HTTP_TIMEOUT", 30*time.Second),
	}
}
