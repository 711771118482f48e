package config

import (
	"os"
	"strconv"
	"time"
)

type ScheduleSvcCfg struct {
	ActiveCollectorsInterval time.Duration
}

func NewScheduleSvcCfg() *ScheduleSvcCfg {
	activeCollectorsIntervalSec := os.Getenv("COLLECTOR_STATS_INTERVAL_SEC")
	varInt, err := strconv.Atoi(activeCollectorsIntervalSec)
	if err != nil || varInt <= 0 {
		varInt = 15
	}
	return &ScheduleSvcCfg{
		ActiveCollectorsInterval: time.Duration(varInt) * time.Second,
	}
}
