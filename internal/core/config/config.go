package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// RedisURL is the connection string for the shipment index store.
	RedisURL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379/0"`

	// WooCommerce holds the host platform API configuration.
	WooCommerce WooCommerceConfig `mapstructure:",squash"`

	// Steadfast holds the Steadfast courier credentials.
	Steadfast SteadfastConfig `mapstructure:",squash"`
	// Pathao holds the Pathao courier credentials.
	Pathao PathaoConfig `mapstructure:",squash"`
	// Redx holds the RedX courier credentials.
	Redx RedxConfig `mapstructure:",squash"`
}

// WooCommerceConfig holds the credentials for the host WooCommerce store.
type WooCommerceConfig struct {
	// URL is the base URL of the WooCommerce store.
	URL string `mapstructure:"WC_URL" required:"true"`
	// ConsumerKey is the public key for API access.
	ConsumerKey string `mapstructure:"WC_CONSUMER_KEY" required:"true"`
	// ConsumerSecret is the secret key for API access.
	ConsumerSecret string `mapstructure:"WC_CONSUMER_SECRET" required:"true"`
}

// SteadfastConfig holds the Steadfast API key pair.
type SteadfastConfig struct {
	// Enabled toggles the provider on or off.
	Enabled bool `mapstructure:"STEADFAST_ENABLED" default:"false"`
	// BaseURL is the Steadfast API root.
	BaseURL string `mapstructure:"STEADFAST_BASE_URL" default:"https://portal.packzy.com/api/v1"`
	// APIKey is the Api-Key header value.
	APIKey string `mapstructure:"STEADFAST_API_KEY"`
	// SecretKey is the Secret-Key header value.
	SecretKey string `mapstructure:"STEADFAST_SECRET_KEY"`
}

// PathaoConfig holds the Pathao OAuth client credentials.
type PathaoConfig struct {
	// Enabled toggles the provider on or off.
	Enabled bool `mapstructure:"PATHAO_ENABLED" default:"false"`
	// BaseURL is the Pathao API root.
	BaseURL string `mapstructure:"PATHAO_BASE_URL" default:"https://api-hermes.pathao.com"`
	// ClientID is the OAuth client id issued by Pathao.
	ClientID string `mapstructure:"PATHAO_CLIENT_ID"`
	// ClientSecret is the OAuth client secret.
	ClientSecret string `mapstructure:"PATHAO_CLIENT_SECRET"`
	// Username is the merchant account email for the password grant.
	Username string `mapstructure:"PATHAO_USERNAME"`
	// Password is the merchant account password for the password grant.
	Password string `mapstructure:"PATHAO_PASSWORD"`
	// StoreID is the Pathao store shipments are created under.
	StoreID int `mapstructure:"PATHAO_STORE_ID"`
	// WebhookSecret is echoed back on webhook responses when set.
	WebhookSecret string `mapstructure:"PATHAO_WEBHOOK_SECRET"`
}

// RedxConfig holds the RedX access token.
type RedxConfig struct {
	// Enabled toggles the provider on or off.
	Enabled bool `mapstructure:"REDX_ENABLED" default:"false"`
	// BaseURL is the RedX API root.
	BaseURL string `mapstructure:"REDX_BASE_URL" default:"https://openapi.redx.com.bd/v1.0.0"`
	// AccessToken is the API-ACCESS-TOKEN header value.
	AccessToken string `mapstructure:"REDX_ACCESS_TOKEN"`
	// DeliveryAreaID is the default delivery area when an order carries none.
	DeliveryAreaID int `mapstructure:"REDX_DELIVERY_AREA_ID"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
