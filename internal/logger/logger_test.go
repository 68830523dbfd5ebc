package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(false, buf)
	t.Cleanup(func() { Init(false, nil) })

	Log().Debug("hidden")
	WithFields(map[string]interface{}{"resource": "vehicles"}).Info("created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "created", line["msg"])
	assert.Equal(t, "vehicles", line["resource"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestInit_Debug(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(true, buf)
	t.Cleanup(func() { Init(false, nil) })

	Log().Debug("visible")
	assert.Contains(t, buf.String(), "level=debug")
	assert.Contains(t, buf.String(), "msg=visible")
}
