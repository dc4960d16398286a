package apiversion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
)

const cwapiHeader = `// Copyright (C) Cadwork. All rights reserved.

#pragma once

#include <cstdint>

namespace CwAPI3D
{
  const uint32_t versionMajor = 30;  // Do not increment without review.
  const uint32_t versionMinor = 573; // Build number + 1.
}
`

func TestParseHeader(t *testing.T) {
	v, err := ParseHeader(strings.NewReader(cwapiHeader))
	require.NoError(t, err)

	assert.Equal(t, uint32(30), v.Major)
	assert.Equal(t, uint32(573), v.Minor)
	assert.Equal(t, "30", v.Release())
	assert.Equal(t, "30.573", v.String())
}

func TestParseHeaderVariants(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"constexpr with suffix", "static constexpr std::uint32_t versionMajor = 31u;\n", "31"},
		{"major only", "const int versionMajor=7;", "7"},
		{"commented out is ignored", "// const uint32_t versionMajor = 1;\nconst uint32_t versionMajor = 2;", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseHeader(strings.NewReader(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestParseHeaderWithoutMajor(t *testing.T) {
	_, err := ParseHeader(strings.NewReader("const uint32_t versionMinor = 1;\n"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestParseHeaderOverflow(t *testing.T) {
	_, err := ParseHeader(strings.NewReader("const uint64_t versionMajor = 99999999999;\n"))
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CwAPI3DVersion.h")
	require.NoError(t, os.WriteFile(path, []byte(cwapiHeader), 0o644))

	v, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "30", v.Release())

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.h"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}
