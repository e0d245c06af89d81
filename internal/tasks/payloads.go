package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeCVArchive = "cv:archive"
)

// CVArchivePayload 描述一次简历归档请求。
type CVArchivePayload struct {
	RequestedBy   string `json:"requested_by"`
	CorrelationID string `json:"correlation_id"`
	WebsiteURL    string `json:"website_url"`
}

// NewCVArchiveTask 构造简历归档任务，最多重试 3 次。
func NewCVArchiveTask(p CVArchivePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCVArchive, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	), nil
}

// NotifyChannel 是推送给某个用户的 Redis 频道名，worker 发布、WebSocket 订阅。
func NotifyChannel(subject string) string {
	return fmt.Sprintf("cv_notify:%s", subject)
}
