package script

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, files map[string]string) *Service {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("scripts", 0o755))
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "scripts/"+name, []byte(content), 0o644))
	}
	svc := NewService(fs, "scripts", time.Second)
	require.NoError(t, svc.Load())
	return svc
}

func TestLoadDiscoversScripts(t *testing.T) {
	svc := newTestService(t, map[string]string{
		"ping.tengo":   `output := "pong"`,
		"notes.txt":    "not a script",
		"uptime.tengo": `output := "ok"`,
	})

	assert.Equal(t, []string{"ping", "uptime"}, svc.List())
}

func TestLoadMissingDirIsNotAnError(t *testing.T) {
	svc := NewService(afero.NewMemMapFs(), "nowhere", 0)
	require.NoError(t, svc.Load())
	assert.Empty(t, svc.List())
}

func TestRunReturnsOutputVariable(t *testing.T) {
	svc := newTestService(t, map[string]string{
		"greet.tengo": `output := "hello " + who`,
	})

	out, err := svc.Run(context.Background(), "greet", map[string]interface{}{"who": "operator"})
	require.NoError(t, err)
	assert.Equal(t, "hello operator", out)
}

func TestRunUnknownScript(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Run(context.Background(), "ghost", nil)
	assert.Error(t, err)
}

func TestRunScriptError(t *testing.T) {
	svc := newTestService(t, map[string]string{
		"broken.tengo": `x := undefined_name + 1`,
	})
	_, err := svc.Run(context.Background(), "broken", nil)
	assert.Error(t, err)
}
