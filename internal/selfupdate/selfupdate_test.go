package selfupdate

import (
	"testing"

	"github.com/blang/semver/v4"
	"github.com/stretchr/testify/require"
)

func TestResultAvailableWhenCurrentOlder(t *testing.T) {
	current := semver.MustParse("1.2.0")
	latest := semver.MustParse("1.3.0")
	require.True(t, current.Compare(latest) < 0)
}

func TestResultNotAvailableWhenCurrentNewerOrEqual(t *testing.T) {
	current := semver.MustParse("1.3.0")
	latest := semver.MustParse("1.3.0")
	require.False(t, current.Compare(latest) < 0)

	newer := semver.MustParse("2.0.0")
	require.False(t, newer.Compare(latest) < 0)
}

func TestCheckReturnsUnavailableForUnparsableCurrentVersion(t *testing.T) {
	res, err := Check("dev-build-not-semver")
	require.NoError(t, err)
	require.False(t, res.Available)
}
