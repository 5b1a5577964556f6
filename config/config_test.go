package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Auth:     AuthConfig{JWTSecret: "test-secret-key-for-unit-tests"},
		Slot:     SlotConfig{MinMinutes: 15, MaxMinutes: 240, MaxNameLength: 20},
		Schedule: ScheduleConfig{ConflictPolicy: ConflictPolicyReject},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"合法配置", func(c *Config) {}, false},
		{"缺少密钥", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"密钥过短", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, true},
		{"时长上下限倒置", func(c *Config) { c.Slot.MaxMinutes = 10 }, true},
		{"名称长度为 0", func(c *Config) { c.Slot.MaxNameLength = 0 }, true},
		{"未知冲突策略", func(c *Config) { c.Schedule.ConflictPolicy = "ignore" }, true},
		{"warn 策略", func(c *Config) { c.Schedule.ConflictPolicy = ConflictPolicyWarn }, false},
		{"启用 mq 但无地址", func(c *Config) { c.MQ.Enabled = true }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
auth:
  jwt_secret: "file-secret-key-0123456789"
slot:
  max_minutes: 120
schedule:
  conflict_policy: warn
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	t.Setenv("TIMETABLE_SERVER_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("环境变量应覆盖端口，实际 %d", cfg.Server.Port)
	}
	if cfg.Slot.MaxMinutes != 120 || cfg.Slot.MinMinutes != 15 {
		t.Errorf("配置文件与默认值合并不符: %+v", cfg.Slot)
	}
	if cfg.Schedule.ConflictPolicy != ConflictPolicyWarn {
		t.Errorf("冲突策略应为 warn，实际 %q", cfg.Schedule.ConflictPolicy)
	}
	if cfg.Server.UploadLimit != 6<<20 || cfg.Server.BodyLimit != 1<<20 {
		t.Errorf("请求体上限默认值不符: %+v", cfg.Server)
	}
	if cfg.Schedule.BlockedSampleSize != 5 || cfg.Feature.LegacyFailOpenDelete {
		t.Errorf("默认值不符: %+v %+v", cfg.Schedule, cfg.Feature)
	}
}
