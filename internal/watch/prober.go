package watch

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Prober retries a blocked form through alternate representations of
// the same URL. Only an explicit accepting verdict short-circuits, so
// the probe can reduce false negatives without risking a false
// positive.
type Prober struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// NewProber constructs a Prober.
func NewProber(fetcher Fetcher, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{fetcher: fetcher, logger: logger}
}

// Probe fetches and classifies each alternate locator in turn and
// returns the first accepting snapshot. Per-alternative failures are
// logged and skipped. Returns nil when no alternative is accepting.
func (p *Prober) Probe(ctx context.Context, primary string) *Snapshot {
	for _, alt := range AlternateLocators(primary) {
		res, err := p.fetcher.Fetch(ctx, alt)
		if err != nil {
			p.logger.Warn("alternate fetch failed", zap.String("url", alt), zap.Error(err))
			continue
		}
		snap := Classify(alt, res.Body)
		if snap.Verdict == VerdictAccepting {
			p.logger.Info("alternate source accepting",
				zap.String("url", alt),
				zap.String("reason", snap.ReasonCode),
			)
			return &snap
		}
	}
	return nil
}

// AlternateLocators derives a deduplicated set of equivalent URLs for
// the watched form via mechanical transformations: the embedded view
// and known share-link query parameters.
func AlternateLocators(primary string) []string {
	parsed, err := url.Parse(primary)
	if err != nil {
		return nil
	}

	var candidates []string

	withQuery := func(key, value string) string {
		u := *parsed
		q := u.Query()
		q.Set(key, value)
		u.RawQuery = q.Encode()
		return u.String()
	}
	candidates = append(candidates,
		withQuery("embedded", "true"),
		withQuery("usp", "sf_link"),
		withQuery("usp", "send_form"),
	)

	// Path variant: responder pages are sometimes reachable under
	// /viewform when the bare form URL is walled.
	if !strings.HasSuffix(parsed.Path, "/viewform") {
		u := *parsed
		u.Path = strings.TrimSuffix(u.Path, "/") + "/viewform"
		candidates = append(candidates, u.String())
	}

	seen := map[string]bool{primary: true}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
