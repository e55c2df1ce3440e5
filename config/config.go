package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Redis  RedisConfig  `yaml:"redis"`
	Log    LogConfig    `yaml:"log"`
	LLM    LLMConfig    `yaml:"llm"`
	MMM    MMMConfig    `yaml:"mmm"`
}

type ServerConfig struct {
	Port            int    `yaml:"port"`
	DataDir         string `yaml:"data_dir"`
	ImageLibraryDir string `yaml:"image_library_dir"`
}

type DBConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Path string `yaml:"path"`
}

type LLMConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	Project  string `yaml:"project"`
	Location string `yaml:"location"`
}

type MMMConfig struct {
	QueueName string `yaml:"queue_name"`
	Warmup    int    `yaml:"warmup"`
	Samples   int    `yaml:"samples"`
	Chains    int    `yaml:"chains"`
}

var AppConfig *Config

func InitConfig() error {
	data, err := os.ReadFile("config/config.yaml")
	if err != nil {
		return fmt.Errorf("read config file failed: %v", err)
	}

	AppConfig = &Config{}
	err = yaml.Unmarshal(data, AppConfig)
	if err != nil {
		return fmt.Errorf("unmarshal config failed: %v", err)
	}

	applyDefaults(AppConfig)
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if strings.TrimSpace(cfg.Server.DataDir) == "" {
		cfg.Server.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.Server.ImageLibraryDir) == "" {
		cfg.Server.ImageLibraryDir = "./image_library"
	}
	if strings.TrimSpace(cfg.MMM.QueueName) == "" {
		cfg.MMM.QueueName = "mmm"
	}
	if cfg.MMM.Warmup == 0 {
		cfg.MMM.Warmup = 1000
	}
	if cfg.MMM.Samples == 0 {
		cfg.MMM.Samples = 1000
	}
	if cfg.MMM.Chains == 0 {
		cfg.MMM.Chains = 2
	}
	if strings.TrimSpace(cfg.LLM.Model) == "" {
		cfg.LLM.Model = "gemini-2.5-pro"
	}
	if strings.TrimSpace(cfg.LLM.Location) == "" {
		cfg.LLM.Location = "us-central1"
	}
}

// DataDir 返回数据目录；配置未初始化时退回默认值
func DataDir() string {
	if AppConfig == nil {
		return "./data"
	}
	return AppConfig.Server.DataDir
}

func ImageLibraryDir() string {
	if AppConfig == nil {
		return "./image_library"
	}
	return AppConfig.Server.ImageLibraryDir
}
