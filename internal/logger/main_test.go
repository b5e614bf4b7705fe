package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farah699/Users-Permissions-Backend/internal/logger"
)

func TestInit(t *testing.T) {
	type testCase struct {
		name         string
		cfg          logger.Log
		wantErr      error
		anyErr       bool
		wantOutput   bool
		outputIsJSON bool
	}

	testCases := []testCase{
		{
			name:    "missing service name",
			cfg:     logger.Log{LogLevel: "info", AppName: "test"},
			wantErr: logger.ErrServiceNameIsEmpty,
		},
		{
			name:    "missing app name",
			cfg:     logger.Log{LogLevel: "info", ServiceName: "test"},
			wantErr: logger.ErrAppNameIsEmpty,
		},
		{
			name:   "unknown level",
			cfg:    logger.Log{LogLevel: "loud", ServiceName: "test", AppName: "test"},
			anyErr: true,
		},
		{
			name: "nothing enabled",
			cfg:  logger.Log{LogLevel: "info", ServiceName: "test", AppName: "test"},
		},
		{
			name: "console writer",
			cfg: logger.Log{
				LogLevel:    "info",
				ServiceName: "test",
				AppName:     "test",
				Console:     logger.Console{Enabled: true, UseConsoleWriter: true},
			},
			wantOutput: true,
		},
		{
			name: "console json",
			cfg: logger.Log{
				LogLevel:    "info",
				ServiceName: "test",
				AppName:     "test",
				Console:     logger.Console{Enabled: true},
			},
			wantOutput:   true,
			outputIsJSON: true,
		},
		{
			name: "console json trace with caller",
			cfg: logger.Log{
				LogLevel:     "trace",
				ServiceName:  "test",
				AppName:      "test",
				ReportCaller: true,
				Console:      logger.Console{Enabled: true},
			},
			wantOutput:   true,
			outputIsJSON: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := captureInit(t, tc.cfg)

			switch {
			case tc.wantErr != nil:
				require.ErrorIs(t, err, tc.wantErr)
				return
			case tc.anyErr:
				require.Error(t, err)
				return
			}

			require.NoError(t, err)

			if !tc.wantOutput {
				assert.Empty(t, out)
				return
			}

			require.NotEmpty(t, out)

			if tc.outputIsJSON {
				for _, line := range strings.Split(out, "\n") {
					if line == "" {
						continue
					}

					var decoded map[string]any
					require.NoError(t, json.Unmarshal([]byte(line), &decoded), line)
					assert.Equal(t, "test", decoded["app"])
				}
			}
		})
	}
}

func TestLevelWriter(t *testing.T) {
	var info, warn, errs, trace bytes.Buffer

	lw := &logger.LevelWriter{InfoWriter: &info, WarnWriter: &warn, ErrorWriter: &errs, TraceWriter: &trace}

	l := zerolog.New(lw).Level(zerolog.TraceLevel)
	l.Debug().Msg("debug")
	l.Info().Msg("info")
	l.Warn().Msg("warn")
	l.Error().Msg("error")
	l.Trace().Msg("trace")

	assert.Contains(t, info.String(), `"debug"`)
	assert.Contains(t, info.String(), `"info"`)
	assert.Contains(t, warn.String(), `"warn"`)
	assert.Contains(t, errs.String(), `"error"`)
	assert.Contains(t, trace.String(), `"trace"`)
	assert.NotContains(t, info.String(), `"error"`)
}

func TestNewAuditWriter(t *testing.T) {
	t.Run("discard when nothing is enabled", func(t *testing.T) {
		assert.Equal(t, io.Discard, logger.NewAuditWriter(logger.Log{}))
	})

	t.Run("stdout with console", func(t *testing.T) {
		assert.Equal(t, os.Stdout, logger.NewAuditWriter(logger.Log{Console: logger.Console{Enabled: true}}))
	})

	t.Run("rolling file", func(t *testing.T) {
		dir := t.TempDir()

		w := logger.NewAuditWriter(logger.Log{File: logger.LogFile{Enabled: true, Path: dir}})

		_, err := w.Write([]byte("{\"action\":\"login\"}\n"))
		require.NoError(t, err)

		if c, ok := w.(io.Closer); ok {
			require.NoError(t, c.Close())
		}

		content, err := os.ReadFile(filepath.Join(dir, "audit.log"))
		require.NoError(t, err)
		assert.Contains(t, string(content), "login")
	})
}

func captureInit(t *testing.T, cfg logger.Log) (string, error) {
	t.Helper()

	stdout, stderr := os.Stdout, os.Stderr

	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout, os.Stderr = w, w

	initErr := logger.Init(cfg)
	if initErr == nil {
		log.Info().Msg("this info message should be seen...")
		log.Error().Err(errors.New("a test error")).Msg("this err message should be seen...") //nolint:err113
	}

	outC := make(chan string)

	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	_ = w.Close()
	os.Stdout, os.Stderr = stdout, stderr

	return <-outC, initErr
}
