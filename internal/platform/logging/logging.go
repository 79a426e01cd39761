package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Setup 配置全局logrus实例：完整时间戳的文本格式，级别来自配置
func Setup(level string) {
	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithError(err).Warnf("无效的日志级别 %q，使用 info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
