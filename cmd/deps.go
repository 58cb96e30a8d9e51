package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/carlot/internal/config"
	"github.com/sells-group/carlot/internal/fetcher"
	"github.com/sells-group/carlot/internal/inventory"
	"github.com/sells-group/carlot/internal/money"
	"github.com/sells-group/carlot/internal/store"
	"github.com/sells-group/carlot/pkg/exrate"
	"github.com/sells-group/carlot/pkg/relay"
	"github.com/sells-group/carlot/pkg/telegram"
	"github.com/sells-group/carlot/pkg/translate"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func newFetcher(feed config.FeedConfig) fetcher.Fetcher {
	web := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    feed.UserAgent,
		Timeout:      feed.Timeout(),
		MaxRetries:   feed.MaxRetries,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
	ftp := fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: feed.Timeout()})
	return fetcher.NewMultiFetcher(web, ftp)
}

// newLoader builds the inventory loader. rec may be nil to skip ingest audit.
func newLoader(feed config.FeedConfig, rec inventory.Recorder) *inventory.Loader {
	return inventory.NewLoader(newFetcher(feed), inventory.LoaderOptions{
		Sources:  feed.Sources,
		CacheTTL: feed.CacheTTL(),
		Normalizer: inventory.Normalizer{
			MinorCurrencyRate: feed.MinorCurrencyRate,
			DescriptionLimit:  feed.DescriptionLimit,
			DefaultTrim:       feed.DefaultTrim,
		},
		Recorder: rec,
	})
}

func defaultCurrency(rc config.RatesConfig) money.Currency {
	if c, ok := money.ParseCurrency(rc.Currency); ok {
		return c
	}
	return money.Reference
}

// rateDefaults overlays configured fallback rates on the built-in table.
func rateDefaults(rc config.RatesConfig) money.Table {
	t := money.DefaultTable()
	for code, r := range rc.Defaults {
		if c, ok := money.ParseCurrency(code); ok && r > 0 {
			t[c] = r
		}
	}
	return t
}

func newRates(rc config.RatesConfig) *exrate.Cache {
	client := exrate.NewClient(exrate.WithBaseURL(rc.BaseURL))
	return exrate.NewCache(client, rc.TTL(), rateDefaults(rc))
}

func newRelay(rc config.RelayConfig) relay.Client {
	opts := []relay.Option{
		relay.WithBreaker(relay.NewBreaker(rc.FailureThreshold, time.Duration(rc.ResetTimeoutSecs)*time.Second)),
	}
	if rc.BaseURL != "" {
		opts = append(opts, relay.WithBaseURL(rc.BaseURL))
	}
	if rc.Path != "" {
		opts = append(opts, relay.WithPath(rc.Path))
	}
	if rc.TimeoutSecs > 0 {
		opts = append(opts, relay.WithHTTPClient(&http.Client{Timeout: time.Duration(rc.TimeoutSecs) * time.Second}))
	}
	return relay.NewClient(opts...)
}

func newVerifier(tc config.TelegramConfig) *telegram.Verifier {
	return telegram.NewVerifier(tc.BotToken, time.Duration(tc.InitDataMaxAge)*time.Second)
}

func newTranslator(tc config.TranslateConfig) translate.Translator {
	if !tc.Enabled {
		return translate.Passthrough{}
	}
	client := translate.NewClient(
		translate.WithBaseURL(tc.BaseURL),
		translate.WithLanguages(tc.Source, tc.Target),
	)
	return translate.NewCached(client, tc.CacheSize, time.Duration(tc.CacheTTLH)*time.Hour)
}
