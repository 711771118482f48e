package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/sysmon-2025.net/internal/adapter/logging"
	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

func TestFileStore_CreatesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "uuid")
	store := NewFileStore(path, logging.NewNopLogger())

	first, err := store.LoadOrCreate()
	require.NoError(t, err)
	assert.False(t, first.IsZero())

	second, err := store.LoadOrCreate()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first.String()+"\n", string(contents))
}

func TestFileStore_LegacyDecimal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uuid")
	// 2^64 + 1234
	require.NoError(t, os.WriteFile(path, []byte("18446744073709552850"), 0o600))

	id, err := NewFileStore(path, logging.NewNopLogger()).LoadOrCreate()
	require.NoError(t, err)
	assert.Equal(t, wire.CollectorID{Hi: 1, Lo: 1234}, id)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    wire.CollectorID
		wantErr bool
	}{
		{name: "uuid", input: "00000000-0000-0001-0000-0000000004d2", want: wire.CollectorID{Hi: 1, Lo: 1234}},
		{name: "decimal zero", input: "0", want: wire.CollectorID{}},
		{name: "32 digits", input: "12345678901234567890123456789012", want: wire.CollectorID{Hi: 669260594276, Lo: 6432227781800638996}},
		{name: "decimal max", input: "340282366920938463463374607431768211455", want: wire.CollectorID{Hi: ^uint64(0), Lo: ^uint64(0)}},
		{name: "decimal overflow", input: "340282366920938463463374607431768211456", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "garbage", input: "collector-1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIdentity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileStore_CorruptFileIsNotReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uuid")
	require.NoError(t, os.WriteFile(path, []byte("not an id"), 0o600))

	_, err := NewFileStore(path, logging.NewNopLogger()).LoadOrCreate()
	require.ErrorIs(t, err, ErrInvalidIdentity)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not an id", string(contents))
}
