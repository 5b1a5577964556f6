package validate

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterBindings 向 gin 的绑定校验器注册自定义标签，启动时调用一次
func RegisterBindings() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("gin 绑定校验器不是 validator/v10")
	}
	if err := v.RegisterValidation("clock", validateClock); err != nil {
		return fmt.Errorf("注册 clock 校验失败: %w", err)
	}
	return nil
}

// validateClock 时刻字段："HH:MM"，兼容数据库 TIME 列返回的 "HH:MM:00"
func validateClock(fl validator.FieldLevel) bool {
	return IsClock(fl.Field().String())
}

// IsClock 判断字符串是否为合法的 24 小时制时刻
func IsClock(s string) bool {
	if _, err := time.Parse("15:04", s); err == nil {
		return true
	}
	t, err := time.Parse("15:04:05", s)
	return err == nil && t.Second() == 0
}
