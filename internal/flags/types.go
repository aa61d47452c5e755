package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("switch not found")

// KeyTradingEnabled is the master kill switch. Absent means enabled: the
// engine must keep trading through a cold or flushed Redis.
const KeyTradingEnabled = "trading.enabled"

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
