package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cinesync/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	secret = configVar[string]{
		envKey:       "SERVER_SECRET",
		flagKey:      "secret",
		defaultValue: "",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 9,
	}
	partyCodeLength = configVar[int]{
		envKey:       "SERVER_PARTY_CODE_LENGTH",
		flagKey:      "party-code-length",
		defaultValue: 8,
	}
	partyExpire = configVar[int]{
		envKey:       "SERVER_PARTY_EXPIRE_MINUTES",
		flagKey:      "party-expire-minutes",
		defaultValue: 720,
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	upstreamURL = configVar[string]{
		envKey:       "RESOLVER_UPSTREAM_URL",
		flagKey:      "upstream-url",
		defaultValue: "",
	}
	referer = configVar[string]{
		envKey:       "RESOLVER_REFERER",
		flagKey:      "referer",
		defaultValue: "",
	}
	embedBaseURL = configVar[string]{
		envKey:       "RESOLVER_EMBED_BASE_URL",
		flagKey:      "embed-base-url",
		defaultValue: "",
	}
	scriptURL = configVar[string]{
		envKey:       "RESOLVER_SCRIPT_URL",
		flagKey:      "script-url",
		defaultValue: "",
	}
	fallbackSecret = configVar[string]{
		envKey:       "RESOLVER_FALLBACK_SECRET",
		flagKey:      "fallback-secret",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, "Server secret")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of members in a party")
	pflag.Int(partyCodeLength.flagKey, partyCodeLength.defaultValue, "Length of generated party codes")
	pflag.Int(partyExpire.flagKey, partyExpire.defaultValue, "Party state TTL in minutes")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.String(upstreamURL.flagKey, upstreamURL.defaultValue, "Stream source upstream base URL")
	pflag.String(referer.flagKey, referer.defaultValue, "Referer sent on upstream and stream requests")
	pflag.String(embedBaseURL.flagKey, embedBaseURL.defaultValue, "Embed player base URL for the fallback")
	pflag.String(scriptURL.flagKey, scriptURL.defaultValue, "Remote player script URL for secret extraction")
	pflag.String(fallbackSecret.flagKey, fallbackSecret.defaultValue, "Secret used when extraction fails")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(secret.flagKey, secret.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(membersLimit.flagKey, membersLimit.envKey)
	viper.BindEnv(partyCodeLength.flagKey, partyCodeLength.envKey)
	viper.BindEnv(partyExpire.flagKey, partyExpire.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(upstreamURL.flagKey, upstreamURL.envKey)
	viper.BindEnv(referer.flagKey, referer.envKey)
	viper.BindEnv(embedBaseURL.flagKey, embedBaseURL.envKey)
	viper.BindEnv(scriptURL.flagKey, scriptURL.envKey)
	viper.BindEnv(fallbackSecret.flagKey, fallbackSecret.envKey)

	viper.SetDefault(secret.flagKey, secret.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(membersLimit.flagKey, membersLimit.defaultValue)
	viper.SetDefault(partyCodeLength.flagKey, partyCodeLength.defaultValue)
	viper.SetDefault(partyExpire.flagKey, partyExpire.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(upstreamURL.flagKey, upstreamURL.defaultValue)
	viper.SetDefault(referer.flagKey, referer.defaultValue)
	viper.SetDefault(embedBaseURL.flagKey, embedBaseURL.defaultValue)
	viper.SetDefault(scriptURL.flagKey, scriptURL.defaultValue)
	viper.SetDefault(fallbackSecret.flagKey, fallbackSecret.defaultValue)

	config := &app.AppConfig{
		Secret:          viper.GetString(secret.flagKey),
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		MembersLimit:    viper.GetInt(membersLimit.flagKey),
		PartyCodeLength: viper.GetInt(partyCodeLength.flagKey),
		PartyExpire:     viper.GetInt(partyExpire.flagKey),
		RedisPort:       viper.GetInt(redisPort.flagKey),
		RedisHost:       viper.GetString(redisHost.flagKey),
		RedisPassword:   viper.GetString(redisPassword.flagKey),
		UpstreamURL:     viper.GetString(upstreamURL.flagKey),
		Referer:         viper.GetString(referer.flagKey),
		EmbedBaseURL:    viper.GetString(embedBaseURL.flagKey),
		ScriptURL:       viper.GetString(scriptURL.flagKey),
		FallbackSecret:  viper.GetString(fallbackSecret.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
