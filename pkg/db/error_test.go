package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":      {err: nil, want: false},
		"gorm":     {err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		"postgres": {err: errors.New(`ERROR: duplicate key value violates unique constraint "idx_platforms_api_key"`), want: true},
		"mysql":    {err: errors.New("Error 1062 (23000): Duplicate entry"), want: true},
		"sqlite":   {err: errors.New("UNIQUE constraint failed: platforms.api_key"), want: true},
		"other":    {err: errors.New("connection refused"), want: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}
