package apperr

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Respond 把错误写成JSON响应。内部错误不向调用方暴露细节。
func Respond(c *gin.Context, err error) {
	status := HTTPStatus(err)
	kind := KindOf(err)
	if kind == KindInternal {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("请求处理失败")
		c.JSON(status, gin.H{"error": "服务器内部错误", "kind": kind})
		return
	}
	body := gin.H{"error": err.Error(), "kind": kind}
	if md := MetadataOf(err); len(md) > 0 {
		body["details"] = md
	}
	c.JSON(status, body)
}
