package watch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProbeFetcher struct {
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func (f *fakeProbeFetcher) Fetch(_ context.Context, url string) (FetchResult, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return FetchResult{}, err
	}
	return FetchResult{URL: url, StatusCode: 200, Body: []byte(f.bodies[url])}, nil
}

func TestProbeReturnsFirstAccepting(t *testing.T) {
	t.Parallel()

	primary := "https://docs.example.com/forms/abc123"
	alts := AlternateLocators(primary)
	require.NotEmpty(t, alts)

	fetcher := &fakeProbeFetcher{
		bodies: map[string]string{
			alts[0]: "please sign in",
			alts[1]: "<form><button>Submit</button></form>",
		},
	}
	prober := NewProber(fetcher, zap.NewNop())

	snap := prober.Probe(context.Background(), primary)
	require.NotNil(t, snap)
	require.Equal(t, VerdictAccepting, snap.Verdict)
	require.Equal(t, alts[1], snap.Source)
	// The probe short-circuits; later alternates are never fetched.
	require.Equal(t, []string{alts[0], alts[1]}, fetcher.calls)
}

func TestProbeSkipsFailedAlternates(t *testing.T) {
	t.Parallel()

	primary := "https://docs.example.com/forms/abc123"
	alts := AlternateLocators(primary)

	fetcher := &fakeProbeFetcher{
		bodies: map[string]string{},
		errs:   map[string]error{alts[0]: errors.New("connection refused")},
	}
	for _, alt := range alts[1:] {
		fetcher.bodies[alt] = "you need permission"
	}
	prober := NewProber(fetcher, zap.NewNop())

	require.Nil(t, prober.Probe(context.Background(), primary))
	require.Len(t, fetcher.calls, len(alts))
}

func TestAlternateLocators(t *testing.T) {
	t.Parallel()

	primary := "https://docs.example.com/forms/abc123"
	alts := AlternateLocators(primary)

	seen := map[string]bool{}
	for _, alt := range alts {
		require.NotEqual(t, primary, alt)
		require.False(t, seen[alt], "duplicate locator %s", alt)
		seen[alt] = true
	}
	require.Contains(t, alts, "https://docs.example.com/forms/abc123?embedded=true")
	require.Contains(t, alts, "https://docs.example.com/forms/abc123/viewform")
}

func TestAlternateLocatorsViewformSuffixNotDuplicated(t *testing.T) {
	t.Parallel()

	alts := AlternateLocators("https://docs.example.com/forms/abc123/viewform")
	for _, alt := range alts {
		require.NotContains(t, alt, "viewform/viewform")
	}
}
