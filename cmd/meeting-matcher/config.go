package main

import (
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/meeting-matcher/internal/secrets"
	"github.com/pdiddy/meeting-matcher/pkg/types"
)

func bindFlag(key string, f *pflag.Flag) {
	if err := viper.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

// loadConfig assembles the process configuration from viper (flags, env,
// config file) and the secrets directory, then validates it.
func loadConfig(v *viper.Viper, s secrets.Secrets) (types.Config, error) {
	cfg := types.Config{
		Source: types.SourceConfig{
			Mode:          types.TransportMode(v.GetString("source.mode")),
			APIKey:        firstSet(v.GetString("source.api_key"), s.Get(secrets.TLDVAPIKey), os.Getenv(types.DefaultAPIKeyEnvVar)),
			Image:         v.GetString("source.image"),
			NodeBinary:    v.GetString("source.node_binary"),
			ServerPath:    v.GetString("source.server_path"),
			Endpoint:      v.GetString("source.endpoint"),
			EndpointToken: firstSet(v.GetString("source.endpoint_token"), s.Get(secrets.EndpointToken)),
			Timeout:       v.GetDuration("source.timeout"),
			MaxRetries:    v.GetInt("source.max_retries"),
		},
		Match: types.MatchConfig{
			ExtraStopWords: v.GetStringSlice("match.extra_stop_words"),
		},
		Pipeline: types.PipelineConfig{
			Workers:      v.GetInt("pipeline.workers"),
			DefaultLimit: v.GetInt("pipeline.default_limit"),
			CachePath:    v.GetString("pipeline.cache_path"),
		},
		Server: types.ServerConfig{
			Addr:            v.GetString("server.addr"),
			ServiceName:     v.GetString("server.service_name"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
