package transcode_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfe/internal/domain"
	"nfe/internal/transcode"
)

// "DESCRIÇÃO" in ISO-8859-1.
var latin1Descricao = []byte{'D', 'E', 'S', 'C', 'R', 'I', 0xC7, 0xC3, 'O'}

func TestBytes_Latin1(t *testing.T) {
	tc, err := transcode.New("")
	require.NoError(t, err)
	assert.Equal(t, transcode.Latin1, tc.Name())

	out, err := tc.Bytes(latin1Descricao)
	require.NoError(t, err)
	assert.Equal(t, "DESCRIÇÃO", string(out))
}

func TestBytes_AlreadyUTF8IsUnchanged(t *testing.T) {
	tc, err := transcode.New(transcode.Latin1)
	require.NoError(t, err)

	in := []byte("RAZÃO SOCIAL")
	out, err := tc.Bytes(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBytes_UTF8ModeRejectsInvalid(t *testing.T) {
	tc, err := transcode.New("utf8")
	require.NoError(t, err)

	_, err = tc.Bytes(latin1Descricao)
	assert.ErrorIs(t, err, domain.ErrEncoding)
}

func TestNew_Unknown(t *testing.T) {
	_, err := transcode.New("ebcdic")
	assert.Error(t, err)
}

func TestFile_InPlaceAndRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "202401_NFs_Itens.csv")
	require.NoError(t, os.WriteFile(path, latin1Descricao, 0o644))

	tc, err := transcode.New(transcode.Windows1252)
	require.NoError(t, err)
	require.NoError(t, tc.File(path))
	require.NoError(t, tc.File(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "DESCRIÇÃO", string(got))
}

func TestFile_Missing(t *testing.T) {
	tc, err := transcode.New("")
	require.NoError(t, err)
	err = tc.File(filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, domain.ErrDataSource)
}
