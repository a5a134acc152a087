//go:build unit || e2e

package testutil

import (
	"encoding/json"
	"testing"
	"time"
)

// a helper function for dynamically modifying map fields in tests
func Field(key string, value any) func(m map[string]any) {
	return func(m map[string]any) {
		if value == nil {
			delete(m, key)
		} else {
			m[key] = value
		}
	}
}

func DtoMap(t *testing.T, v any, muts ...func(map[string]any)) map[string]any {
	t.Helper()
	b, _ := json.Marshal(v)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	for _, f := range muts {
		f(m)
	}
	return m
}

// Monday 2025-03-03 is the reference week for calendar tests.
var Monday = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

// At returns Monday plus days at hh:mm UTC.
func At(days, hh, mm int) time.Time {
	return Monday.AddDate(0, 0, days).Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}
