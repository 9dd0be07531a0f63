// Package config collects the environment-driven settings in one place.
package config

import (
	"os"
	"strconv"
	"time"

	"labelmart/checkout"
	"labelmart/session"
)

// Config holds everything the storefront core needs at startup.
type Config struct {
	// Hosted platform.
	ProjectURL string
	AnonKey    string
	AdminEmail string

	// Direct Postgres access for the order store.
	DatabaseURL string

	// Local durable storage file for the cart.
	CartStorePath string

	// Business rules and bounds, overridable per environment.
	TaxRate      float64
	ShippingCost float64
	RoleTimeout  time.Duration
}

// FromEnv reads configuration from the environment, applying defaults for
// the optional knobs.
func FromEnv() Config {
	cfg := Config{
		ProjectURL:    os.Getenv("SUPABASE_URL"),
		AnonKey:       os.Getenv("SUPABASE_ANON_KEY"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		CartStorePath: os.Getenv("CART_STORE_PATH"),
		TaxRate:       checkout.DefaultTaxRate,
		ShippingCost:  checkout.DefaultShippingCost,
		RoleTimeout:   session.DefaultTimeout,
	}

	if cfg.CartStorePath == "" {
		cfg.CartStorePath = "labelmart.db"
	}
	if v, err := strconv.ParseFloat(os.Getenv("TAX_RATE"), 64); err == nil {
		cfg.TaxRate = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("SHIPPING_COST"), 64); err == nil {
		cfg.ShippingCost = v
	}
	if v, err := time.ParseDuration(os.Getenv("ROLE_TIMEOUT")); err == nil && v > 0 {
		cfg.RoleTimeout = v
	}

	return cfg
}
