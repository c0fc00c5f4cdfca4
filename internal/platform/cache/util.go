package cache

import (
	"strings"
	"time"
)

// TimeUntilNextUTCMidnight は次の UTC 0時までの残り時間を返します。
// 銘柄名エントリは UTC の日付で管理されるため、鮮度はこの境界でのみ変わります。
func TimeUntilNextUTCMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return next.Sub(now)
}

// capTTL はエントリが当日（UTC）を越えて残らないよう ttl を短縮します。
func capTTL(ttl time.Duration, now time.Time) time.Duration {
	if left := TimeUntilNextUTCMidnight(now); left < ttl {
		return left
	}
	return ttl
}

// safe は Redis キーで問題となる文字をエスケープします。
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
