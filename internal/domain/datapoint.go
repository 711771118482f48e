package domain

// DataPoint is one persisted metrics sample.
type DataPoint struct {
	ID          int64   `db:"id"`
	CollectorID string  `db:"collector_id"`
	Received    int64   `db:"received"`
	TotalMemory int64   `db:"total_memory"`
	UsedMemory  int64   `db:"used_memory"`
	AverageCPU  float32 `db:"average_cpu"`
}
