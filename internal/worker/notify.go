package worker

// ArchiveNotifyMessage 是通过 Redis Pub/Sub 推送给仪表盘的归档结果。
// 注意：这里的字段名与前端解析保持一致。
type ArchiveNotifyMessage struct {
	Status          string   `json:"status"`
	ArchiveID       uint     `json:"archive_id,omitempty"`
	CorrelationID   string   `json:"correlation_id"`
	ErrorCode       int      `json:"error_code"`
	ErrorMessage    string   `json:"error_message"`
	Pages           int      `json:"pages,omitempty"`
	FallbackSources []string `json:"fallback_sources,omitempty"`
}

const (
	StatusCompleted = "completed"
	StatusError     = "error"
)
