package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/nabbar/reactor/rerrors"
)

// decodeHook lets UnmarshalKey turn a "tcp"/"5s"-style YAML string into a
// NetworkProtocol or time.Duration, instead of requiring the raw numeric
// encodings mapstructure would otherwise demand.
func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
}

// LoadServer decodes a Server from v's value at key (e.g. "server" for a
// top-level "server: {...}" YAML block) and validates it. v is typically
// populated beforehand via viper.SetConfigFile/ReadInConfig or bound
// command-line flags, following the teacher's config-component pattern of
// keeping decode and validation as separate steps.
func LoadServer(v *viper.Viper, key string) (Server, error) {
	var s Server
	if err := v.UnmarshalKey(key, &s, decodeHook()); err != nil {
		return Server{}, rerrors.New(rerrors.Configuration, "config: decode server", err)
	}
	if err := s.Validate(); err != nil {
		return Server{}, err
	}
	return s, nil
}

// LoadClient decodes and validates a Client from v's value at key.
func LoadClient(v *viper.Viper, key string) (Client, error) {
	var c Client
	if err := v.UnmarshalKey(key, &c, decodeHook()); err != nil {
		return Client{}, rerrors.New(rerrors.Configuration, "config: decode client", err)
	}
	if err := c.Validate(); err != nil {
		return Client{}, err
	}
	return c, nil
}
