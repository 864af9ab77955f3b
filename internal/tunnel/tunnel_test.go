package tunnel

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte("server_host: tunnel.example\nkey: 1234\n"))
	require.NoError(t, err)
	assert.Equal(t, &Config{
		ServerHost:     "tunnel.example",
		LocalSOCKSPort: DefaultLocalSOCKSPort,
		Key:            intPtr(1234),
		Mode:           ModeProxy,
	}, cfg)
	assert.Equal(t, "tunnel.example", cfg.ServerAddress())

	cfg, err = ParseConfig([]byte(`
server_host: 10.0.0.1
server_port: 4455
local_socks_port: 1090
encrypt_mode: aes256
encrypt_key: secret
`))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:4455", cfg.ServerAddress())
	assert.Equal(t, 1090, cfg.LocalSOCKSPort)
	assert.Nil(t, cfg.Key)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{name: "missing_host", yaml: "key: 1\n", wantErr: ErrMissingServerHost},
		{name: "blank_host", yaml: "server_host: '  '\nkey: 1\n", wantErr: ErrMissingServerHost},
		{name: "missing_key", yaml: "server_host: a\n", wantErr: ErrMissingKey},
		{name: "missing_encrypt_key", yaml: "server_host: a\nencrypt_mode: aes128\n", wantErr: ErrMissingEncryptKey},
		{name: "vpn_mode", yaml: "server_host: a\nkey: 1\nmode: vpn\n", wantErr: ErrUnsupportedMode},
		{name: "bad_local_port", yaml: "server_host: a\nkey: 1\nlocal_socks_port: 0\n"},
		{name: "bad_server_port", yaml: "server_host: a\nkey: 1\nserver_port: 70000\n"},
		{name: "unknown_field", yaml: "server_host: a\nkey: 1\ntun_device: tun0\n"},
		{name: "not_yaml", yaml: "server_host: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunnel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_host: a.example\nkey: 7\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "a.example", cfg.ServerHost)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestArgs(t *testing.T) {
	args, err := Args("/opt/pingtunnel", &Config{
		ServerHost:     "tunnel.example",
		LocalSOCKSPort: 1080,
		Key:            intPtr(42),
		Mode:           ModeProxy,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/opt/pingtunnel", "-type", "client", "-l", ":1080",
		"-s", "tunnel.example", "-sock5", "1", "-key", "42",
	}, args)

	args, err = Args("pingtunnel", &Config{
		ServerHost:     "10.0.0.1",
		ServerPort:     intPtr(4455),
		LocalSOCKSPort: 1090,
		Key:            intPtr(42),
		Mode:           ModeProxy,
		EncryptMode:    "aes256",
		EncryptKey:     "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"pingtunnel", "-type", "client", "-l", ":1090",
		"-s", "10.0.0.1:4455", "-sock5", "1",
		"-encrypt", "aes256", "-encrypt-key", "secret",
	}, args)

	_, err = Args("pingtunnel", &Config{ServerHost: "a", LocalSOCKSPort: 1080, Mode: ModeProxy, EncryptMode: "aes128"})
	require.ErrorIs(t, err, ErrMissingEncryptKey)
}

// syncBuffer is a bytes.Buffer safe for the logger goroutine and the test to
// share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestProcessStreamsOutputAndStops(t *testing.T) {
	requireShell(t)

	var out syncBuffer
	p, err := Start(context.Background(), zerolog.New(&out), "child",
		[]string{"sh", "-c", "echo out-line; echo; echo err-line >&2; exec sleep 30"}, t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, p.Pid())

	require.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, `"message":"out-line"`) && strings.Contains(s, `"message":"err-line"`)
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), `"proc":"child"`)
	assert.Contains(t, out.String(), `"pid":`+strconv.Itoa(p.Pid()))
	assert.NotContains(t, out.String(), `"message":""`)

	start := time.Now()
	p.Stop()
	assert.Less(t, time.Since(start), KillDelay)

	select {
	case <-p.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}

	// Idempotent.
	p.Stop()
}

func TestProcessKilledAfterDelay(t *testing.T) {
	requireShell(t)

	var out syncBuffer
	p, err := Start(context.Background(), zerolog.New(&out), "stubborn",
		[]string{"sh", "-c", "trap '' TERM; echo ready; while :; do sleep 0.1; done"}, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"message":"ready"`)
	}, 5*time.Second, 10*time.Millisecond)

	start := time.Now()
	p.Stop()
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, KillDelay)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestProcessExitsOnItsOwn(t *testing.T) {
	requireShell(t)

	p, err := Start(context.Background(), zerolog.Nop(), "short", []string{"sh", "-c", "exit 3"}, "")
	require.NoError(t, err)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	var exitErr *exec.ExitError
	require.ErrorAs(t, p.Err(), &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())

	p.Stop()
}

func TestProcessStoppedByContext(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	p, err := Start(ctx, zerolog.Nop(), "ctx", []string{"sh", "-c", "exec sleep 30"}, "")
	require.NoError(t, err)

	cancel()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after cancel")
	}
}

func TestStartErrors(t *testing.T) {
	_, err := Start(context.Background(), zerolog.Nop(), "none", nil, "")
	require.Error(t, err)

	_, err = Start(context.Background(), zerolog.Nop(), "missing",
		[]string{filepath.Join(t.TempDir(), "no-such-binary")}, "")
	require.Error(t, err)
}
