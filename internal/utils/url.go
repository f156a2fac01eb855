package utils

import (
	"net/url"
	"path"
	"strings"
)

// ResolveURL 相对路径拼接到 baseURL 上，已经是完整 URL 的保持不变
func ResolveURL(baseURL, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base := strings.TrimRight(baseURL, "/")
	if ref == "" {
		return base
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}

// FilenameFromURL 取 URL 路径的最后一段
func FilenameFromURL(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	name := path.Base(strings.TrimRight(raw, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// IsUnder 判断 uri 是否由 baseURL 对应的后端托管
func IsUnder(uri, baseURL string) bool {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return false
	}
	return uri == base || strings.HasPrefix(uri, base+"/")
}
