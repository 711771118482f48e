package domain

import "time"

// CollectorStatus is the last known state of a reporting collector
type CollectorStatus struct {
	ID          string    `msgpack:"id" json:"id"`
	RemoteAddr  string    `msgpack:"remote_addr" json:"remote_addr"`
	LastSeen    time.Time `msgpack:"last_seen" json:"last_seen"`
	Received    int64     `msgpack:"received" json:"received"`
	TotalMemory int64     `msgpack:"total_memory" json:"total_memory"`
	UsedMemory  int64     `msgpack:"used_memory" json:"used_memory"`
	AverageCPU  float32   `msgpack:"average_cpu" json:"average_cpu"`
}
