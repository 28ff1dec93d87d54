package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	// Config holds all application settings, resolved once on startup.
	// Values come from the environment (prefixed with the current ENV name)
	// and fall back to dev-friendly defaults.
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		WorkDir          string
		AppName          string
		SecretKey        string
		DefaultFromEmail string
		OpsEmail         string
		SendgridApiKey   string
		RollbarToken     string
		FrontendBaseURL  string

		Server ServerConfig
		Chain  ChainConfig
	}

	ServerConfig struct {
		Host                       string
		DebugHost                  string
		ShutdownTimeout            time.Duration
		JWTExpirationDelta         time.Duration
		JWTRefreshExpirationDelta  time.Duration
		LoginChallengeTimeoutDelta time.Duration
	}

	// ChainConfig describes how to reach the school contract and which
	// account signs outgoing transactions. Exactly one of KeystorePath or
	// PrivateKey must be set for writes; read-only deployments may leave both empty.
	ChainConfig struct {
		RPCURL              string
		ContractAddress     string
		ChainID             int64
		KeystorePath        string
		KeystorePassphrase  string
		PrivateKey          string // raw hex; DEV convenience only
		ReceiptTimeout      time.Duration
		ReceiptPollInterval time.Duration
		ReadPollInterval    time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Shule")
	v.SetDefault("secretKey", "q2d%9#v+0t=_a&8^bkb3sj@u4ymzg$c2(#yg4h^$cegm2emy")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("opsEmail", "ops@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 20*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("loginChallengeTimeoutDelta", 5*time.Minute)
	v.SetDefault("chainRpcUrl", "http://127.0.0.1:8545")
	v.SetDefault("chainContractAddress", "")
	v.SetDefault("chainId", 1337)
	v.SetDefault("chainKeystorePath", "")
	v.SetDefault("chainKeystorePassphrase", "")
	v.SetDefault("chainPrivateKey", "")
	v.SetDefault("chainReceiptTimeout", 2*time.Minute)
	v.SetDefault("chainReceiptPollInterval", time.Second)
	v.SetDefault("chainReadPollInterval", 15*time.Second)

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Env:              env,
		Build:            v.GetString("build"),
		WorkDir:          wd,
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		OpsEmail:         v.GetString("opsEmail"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		Server: ServerConfig{
			Host:                       v.GetString("serverHost"),
			DebugHost:                  v.GetString("serverDebugHost"),
			ShutdownTimeout:            v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:         v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta:  v.GetDuration("jwtRefreshExpirationDelta"),
			LoginChallengeTimeoutDelta: v.GetDuration("loginChallengeTimeoutDelta"),
		},
		Chain: ChainConfig{
			RPCURL:              v.GetString("chainRpcUrl"),
			ContractAddress:     v.GetString("chainContractAddress"),
			ChainID:             v.GetInt64("chainId"),
			KeystorePath:        v.GetString("chainKeystorePath"),
			KeystorePassphrase:  v.GetString("chainKeystorePassphrase"),
			PrivateKey:          v.GetString("chainPrivateKey"),
			ReceiptTimeout:      v.GetDuration("chainReceiptTimeout"),
			ReceiptPollInterval: v.GetDuration("chainReceiptPollInterval"),
			ReadPollInterval:    v.GetDuration("chainReadPollInterval"),
		},
	}
}

// DefaultFrom is the sender identity applied to all outgoing mail.
func (c *Config) DefaultFrom() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}
