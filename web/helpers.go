package web

import (
	"strconv"
	"strings"

	"goblog/config"
)

func parsePage(raw string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return n
	}
	return 1
}

func parseID(raw string) uint {
	if n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64); err == nil {
		return uint(n)
	}
	return 0
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func maxUploadBytes() int64 {
	return int64(config.Get().UploadMaxMB) * 1024 * 1024
}
