package badger

import (
	"net/url"
	"testing"

	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/stores/utxo/tests"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/stretchr/testify/require"
)

func TestBadgerInMemory(t *testing.T) {
	tests.RunConformance(t, func(t *testing.T) utxo.Store {
		storeURL, err := url.Parse("badger://memory")
		require.NoError(t, err)

		s, err := New(ulogger.TestLogger{}, settings.NewTestSettings(), storeURL)
		require.NoError(t, err)

		return s
	})
}

func TestBadgerOnDisk(t *testing.T) {
	tSettings := settings.NewTestSettings()
	tSettings.DataFolder = t.TempDir()

	storeURL, err := url.Parse("badger:///utxo")
	require.NoError(t, err)

	s, err := New(ulogger.TestLogger{}, tSettings, storeURL)
	require.NoError(t, err)

	tests.Reopen(t, s, func() utxo.Store {
		reopened, err := New(ulogger.TestLogger{}, tSettings, storeURL)
		require.NoError(t, err)

		return reopened
	})
}
