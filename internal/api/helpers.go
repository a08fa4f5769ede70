package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// flatten раскладывает результат entity.Model.Render в плоский объект:
// системные поля и поля данных на одном уровне.
func flatten(rendered map[string]any) map[string]any {
	out := make(map[string]any, len(rendered)+8)
	for k, v := range rendered {
		if k == "data" {
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = t.Format(time.RFC3339)
		}
		out[k] = v
	}
	data, _ := rendered["data"].(map[string]any)
	for k, v := range data {
		// поля пользователя не перетирают служебные
		if _, clash := out[k]; clash {
			out["data."+k] = v
			continue
		}
		out[k] = v
	}
	return out
}

// getClientVersion: ожидаемая версия из If-Match или body.version.
func getClientVersion(c *gin.Context, body map[string]any) (int64, bool) {
	// приоритет: заголовок
	if h := strings.Trim(strings.TrimSpace(c.GetHeader("If-Match")), `"`); h != "" {
		if v, err := strconv.ParseInt(h, 10, 64); err == nil {
			return v, true
		}
	}
	if body != nil {
		if f, ok := body["version"]; ok {
			switch t := f.(type) {
			case float64:
				return int64(t), true
			case string:
				if v, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
					return v, true
				}
			}
		}
	}
	return 0, false
}
