package api

import (
	"aistudio/internal/storage"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MountFiles 在本地存储且公共地址为相对路径时，直接由服务提供已转存的媒体文件。
// 返回是否挂载了静态目录。
func (h *HTTPHandler) MountFiles(r gin.IRoutes) bool {
	localProvider, ok := h.storage.(storage.LocalBaseDirProvider)
	if !ok {
		return false
	}
	prefix := h.storagePublicBase
	if strings.HasPrefix(prefix, "http://") || strings.HasPrefix(prefix, "https://") {
		return false
	}
	r.Static(prefix, localProvider.LocalBaseDir())
	logrus.WithFields(logrus.Fields{
		"prefix": prefix,
		"dir":    localProvider.LocalBaseDir(),
	}).Info("serving local media")
	return true
}
