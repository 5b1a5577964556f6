package errors

import "errors"

// ErrOptimisticLock 版本号不匹配：时间段在读取后已被其他请求修改（含启停）
var ErrOptimisticLock = errors.New("时间段已被其他操作修改，请刷新后重试")
