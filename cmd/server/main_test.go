package main

import (
	"context"
	"testing"
	"time"

	"github.com/lychee-technology/labdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResultArchiverDisabled(t *testing.T) {
	a, err := newResultArchiver(context.Background(), labdb.ArchiveConfig{S3Bucket: "lab-archive"}, nil)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestNewResultArchiverEnabled(t *testing.T) {
	cfg := labdb.ArchiveConfig{
		S3Bucket:   "lab-archive",
		S3Endpoint: "http://127.0.0.1:9000",
		WorkDir:    t.TempDir(),
		Interval:   time.Hour,
	}
	a, err := newResultArchiver(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, a)

	cfg.S3Bucket = ""
	_, err = newResultArchiver(context.Background(), cfg, nil)
	assert.True(t, labdb.IsValidation(err))
}
