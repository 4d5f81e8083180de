package main

import (
	"strings"
	"time"

	"github.com/odvcencio/ogit/pkg/config"
	"github.com/odvcencio/ogit/pkg/remote"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "OGIT"

// Setting keys. Each is read from a flag, then OGIT_<KEY> with dots as
// underscores, then the settings file, then the default.
const (
	keyUserName     = "user.name"
	keyUserEmail    = "user.email"
	keyHTTPTimeout  = "http.timeout"
	keyHTTPAttempts = "http.attempts"
	keyDate         = "date"
)

// settings layers command-line flags over the environment and the
// per-user settings file.
type settings struct {
	configPath string
	v          *viper.Viper
}

func newSettings() *settings {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault(keyUserName, "ogit")
	v.SetDefault(keyUserEmail, "ogit@localhost")
	v.SetDefault(keyHTTPTimeout, "60s")
	v.SetDefault(keyHTTPAttempts, 3)
	return &settings{v: v}
}

// path returns the settings file in effect.
func (s *settings) path() (string, error) {
	if s.configPath != "" {
		return s.configPath, nil
	}
	if p := s.v.GetString("config"); p != "" {
		return p, nil
	}
	return config.DefaultPath()
}

func (s *settings) loadFile() (*config.File, string, error) {
	path, err := s.path()
	if err != nil {
		return nil, "", err
	}
	f, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// load merges the settings file under the environment and binds flags,
// which take precedence over both. A nil flag is skipped.
func (s *settings) load(bind map[string]*pflag.Flag) error {
	f, _, err := s.loadFile()
	if err != nil {
		return err
	}
	merged := map[string]interface{}{}
	for _, key := range config.Keys() {
		val, err := f.Get(key)
		if err != nil {
			continue
		}
		section, name, _ := strings.Cut(key, ".")
		m, ok := merged[section].(map[string]interface{})
		if !ok {
			m = map[string]interface{}{}
			merged[section] = m
		}
		m[name] = val
	}
	if err := s.v.MergeConfigMap(merged); err != nil {
		return err
	}
	for key, flag := range bind {
		if flag == nil {
			continue
		}
		if err := s.v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func (s *settings) identity() (name, email string) {
	return s.v.GetString(keyUserName), s.v.GetString(keyUserEmail)
}

func (s *settings) clientOptions() (remote.ClientOptions, error) {
	timeout, err := (config.HTTPSection{Timeout: s.v.GetString(keyHTTPTimeout)}).TimeoutDuration()
	if err != nil {
		return remote.ClientOptions{}, err
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	attempts := s.v.GetInt(keyHTTPAttempts)
	if attempts < 1 {
		attempts = 1
	}
	return remote.ClientOptions{Timeout: timeout, MaxAttempts: attempts}, nil
}
