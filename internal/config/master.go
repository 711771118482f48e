package config

import "os"

type AppConfig struct {
	DebugMode      bool
	TCPConfig      *TCPConfig
	DatabaseConfig *DatabaseConfig
	RedisConfig    *RedisConfig
	HTTPConfig     *HTTPConfig
	ScheduleSvcCfg *ScheduleSvcCfg
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:      os.Getenv("DEBUG_MODE") == "true",
		TCPConfig:      NewTCPConfig(),
		DatabaseConfig: NewDatabaseConfig(),
		RedisConfig:    NewRedisConfig(),
		HTTPConfig:     NewHTTPConfig(),
		ScheduleSvcCfg: NewScheduleSvcCfg(),
	}
}
