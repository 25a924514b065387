// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// EnvPrefix is the prefix for all environment variable overrides.
const EnvPrefix = "TRIARB_"

// SecretsFileName is the env file under the data directory where the setup
// commands save credentials.
const SecretsFileName = "secrets.env"

// Load reads the TOML file at path over the defaults and applies environment
// overrides. Empty path skips the file. Variables from the env files are
// loaded into the process environment first, without overriding existing
// variables; a missing env file is not an error.
//
// Returned configuration is not validated.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Defaults()

	if len(path) != 0 {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("could not decode config file %q: %w", path, err)
		}
		if keys := md.Undecoded(); len(keys) != 0 {
			return nil, fmt.Errorf("config file %q has unknown keys %v: %w", path, keys, os.ErrInvalid)
		}
	}

	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not load env file %q: %w", file, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateSecrets merges the variables into the env file. Names are given
// without the EnvPrefix. File is created with owner-only permissions.
func UpdateSecrets(file string, vars map[string]string) error {
	env, err := godotenv.Read(file)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("could not read env file %q: %w", file, err)
		}
		env = make(map[string]string)
	}
	for k, v := range vars {
		env[EnvPrefix+k] = v
	}
	content, err := godotenv.Marshal(env)
	if err != nil {
		return fmt.Errorf("could not marshal env file content: %w", err)
	}
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, []byte(content+"\n"), 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	setString(&cfg.DataDir, "DATA_DIR")

	setString(&cfg.Arbitrage.InitialAsset, "INITIAL_ASSET")
	check(setDecimal(&cfg.Arbitrage.InitialQuantity, "INITIAL_QUANTITY"))
	check(setInt(&cfg.Arbitrage.Depth, "DEPTH"))
	check(setDecimal(&cfg.Arbitrage.FeeRate, "FEE_RATE"))
	setStrings(&cfg.Arbitrage.FeeExempt, "FEE_EXEMPT")

	setString(&cfg.Stream.WebsocketURL, "WEBSOCKET_URL")
	check(setDuration(&cfg.Stream.Backoff, "BACKOFF"))
	check(setDuration(&cfg.Stream.Keepalive, "KEEPALIVE"))

	setString(&cfg.Exchange.RestURL, "REST_URL")

	check(setBool(&cfg.Redis.Enabled, "REDIS_ENABLED"))
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	check(setInt(&cfg.Redis.DB, "REDIS_DB"))

	check(setBool(&cfg.Postgres.Enabled, "POSTGRES_ENABLED"))
	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")

	check(setBool(&cfg.SQLite.Enabled, "SQLITE_ENABLED"))
	setString(&cfg.SQLite.File, "SQLITE_FILE")

	check(setBool(&cfg.Telegram.Enabled, "TELEGRAM_ENABLED"))
	setString(&cfg.Telegram.Token, "TELEGRAM_TOKEN")
	check(setInt64s(&cfg.Telegram.ChatIDs, "TELEGRAM_CHAT_IDS"))
	setString(&cfg.Telegram.OwnerID, "TELEGRAM_OWNER_ID")
	setStrings(&cfg.Telegram.OtherIDs, "TELEGRAM_OTHER_IDS")

	check(setBool(&cfg.Pushover.Enabled, "PUSHOVER_ENABLED"))
	setString(&cfg.Pushover.ApplicationKey, "PUSHOVER_APPLICATION_KEY")
	setString(&cfg.Pushover.UserKey, "PUSHOVER_USER_KEY")

	setString(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setString(&cfg.S3.Region, "S3_REGION")
	setString(&cfg.S3.Bucket, "S3_BUCKET")
	setString(&cfg.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.S3.SecretKey, "S3_SECRET_KEY")
	check(setBool(&cfg.S3.ForcePathStyle, "S3_FORCE_PATH_STYLE"))

	return errors.Join(errs...)
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || len(v) == 0 {
		return "", false
	}
	return v, true
}

func setString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func setStrings(dst *[]string, name string) {
	v, ok := lookup(name)
	if !ok {
		return
	}
	var vs []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); len(s) != 0 {
			vs = append(vs, s)
		}
	}
	*dst = vs
}

func setInt(dst *int, name string) error {
	if v, ok := lookup(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("could not parse %s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
	}
	return nil
}

func setInt64s(dst *[]int64, name string) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	var vs []int64
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); len(s) == 0 {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("could not parse %s%s: %w", EnvPrefix, name, err)
		}
		vs = append(vs, n)
	}
	*dst = vs
	return nil
}

func setBool(dst *bool, name string) error {
	if v, ok := lookup(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("could not parse %s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
	}
	return nil
}

func setDuration(dst *time.Duration, name string) error {
	if v, ok := lookup(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("could not parse %s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}
	return nil
}

func setDecimal(dst *decimal.Decimal, name string) error {
	if v, ok := lookup(name); ok {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("could not parse %s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}
	return nil
}
