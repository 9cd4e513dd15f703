package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]zerolog.Level{
		"TRACE":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"Warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	} {
		assert.Equal(t, want, parseLevel(s), s)
	}
}

func TestWithoutExt(t *testing.T) {
	assert.Equal(t, "dir/motion", withoutExt("dir/motion.vmd"))
	assert.Equal(t, "motion", withoutExt("motion"))
}
