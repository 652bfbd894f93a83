package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvConfigPath 指定配置文件路径的环境变量。
const EnvConfigPath = "CHARTLAB_CONFIG"

const defaultConfigPath = "configs/config.yaml"

// PathFromEnv 返回环境变量中的配置路径，未设置时使用 configs/config.yaml。
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return defaultConfigPath
}

// Load 读取配置文件（含 include 链），应用默认值并校验。
func Load(path string) (*Config, error) {
	files, err := resolveConfigIncludes(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		if err := mergeConfigFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	applyEnvOverrides(v)
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	collectSettingsKeys(v.AllSettings(), setKeys)
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

func resolveConfigIncludes(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	stack := make(map[string]bool)
	files, err := collectConfigFiles(abs, seen, stack)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return []string{abs}, nil
	}
	return files, nil
}

func collectConfigFiles(path string, seen, stack map[string]bool) ([]string, error) {
	path = filepath.Clean(path)
	if stack[path] {
		return nil, fmt.Errorf("include cycle detected: %s", path)
	}
	if seen[path] {
		return nil, nil
	}
	stack[path] = true
	includes, err := parseIncludeList(path)
	if err != nil {
		return nil, fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	dir := filepath.Dir(path)
	var ordered []string
	for _, inc := range includes {
		inc = strings.TrimSpace(inc)
		if inc == "" {
			continue
		}
		incPath := inc
		if !filepath.IsAbs(inc) {
			incPath = filepath.Join(dir, inc)
		}
		sub, err := collectConfigFiles(incPath, seen, stack)
		if err != nil {
			return nil, err
		}
		if len(sub) > 0 {
			ordered = append(ordered, sub...)
		}
	}
	delete(stack, path)
	seen[path] = true
	ordered = append(ordered, path)
	return ordered, nil
}

// parseIncludeList 读取单个文件的 include 列表，空项忽略。
func parseIncludeList(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if !v.IsSet("include") {
		return nil, nil
	}
	switch v.Get("include").(type) {
	case []any, []string:
	default:
		return nil, fmt.Errorf("include must be a string array")
	}
	var out []string
	for _, item := range v.GetStringSlice("include") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// envOverrides 把部署相关的环境变量映射到配置键，优先级高于配置文件。
var envOverrides = map[string]string{
	"CHARTLAB_HTTP_ADDR":      "app.http_addr",
	"CHARTLAB_LOG_LEVEL":      "app.log_level",
	"CHARTLAB_DEFAULT_SOURCE": "market.default_source",
	"CHARTLAB_PROXY_URL":      "market.proxy_url",
	"CHARTLAB_CACHE_BACKEND":  "market.cache_backend",
	"CHARTLAB_REDIS_ADDR":     "market.redis_addr",
	"CHARTLAB_REDIS_PASSWORD": "market.redis_password",
}

func applyEnvOverrides(v *viper.Viper) {
	for env, key := range envOverrides {
		if val, ok := os.LookupEnv(env); ok && strings.TrimSpace(val) != "" {
			v.Set(key, strings.TrimSpace(val))
		}
	}
}

// collectSettingsKeys 记录所有显式出现的叶子键（小写、点分）。
func collectSettingsKeys(settings map[string]any, dest keySet) {
	if dest == nil || len(settings) == 0 {
		return
	}
	flattenConfigKeys("", settings, dest)
}

func flattenConfigKeys(prefix string, node any, dest keySet) {
	join := func(k string) string {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	switch val := node.(type) {
	case map[string]any:
		for k, child := range val {
			if next := join(k); next != "" {
				flattenConfigKeys(next, child, dest)
			}
		}
	case map[any]any:
		for k, child := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			if next := join(ks); next != "" {
				flattenConfigKeys(next, child, dest)
			}
		}
	default:
		// 列表与标量都视为叶子
		if prefix != "" {
			dest.mark(prefix)
		}
	}
}
