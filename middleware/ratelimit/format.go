// utilitário pequeno para formatação de valores numéricos em headers.

package ratelimit

import (
	"strconv"
	"time"
)

// formatSeconds formata d em segundos inteiros (Retry-After), arredondando para cima.
func formatSeconds(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	return strconv.FormatInt(int64((d+time.Second-1)/time.Second), 10)
}
