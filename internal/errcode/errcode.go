package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如内容回退到静态数据但流程可继续）
// - 5xxx：系统错误（需要中断流程）
const (
	OK              = 0
	ContentFallback = 4004
	SystemError     = 5000
	RenderFailed    = 5001
	StorageFailed   = 5002
)
