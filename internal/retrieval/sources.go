package retrieval

import (
	"github.com/wonny/marketlens/internal/provider"
	"github.com/wonny/marketlens/internal/provider/eastmoney"
	"github.com/wonny/marketlens/internal/provider/localfile"
	"github.com/wonny/marketlens/internal/provider/sina"
	"github.com/wonny/marketlens/internal/provider/tencent"
	"github.com/wonny/marketlens/pkg/config"
	"github.com/wonny/marketlens/pkg/httputil"
	"github.com/wonny/marketlens/pkg/logger"
)

// DefaultSources wires the production adapters in priority order:
//
//	boards:       eastmoney → sina
//	history:      eastmoney → tencent → sina
//	fundamentals: eastmoney → tencent → sina
//	universe:     eastmoney → sina → local CSV backup
func DefaultSources(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) Sources {
	em := eastmoney.NewClient(httpClient, cfg, log)
	tc := tencent.NewClient(httpClient, cfg, log)
	sn := sina.NewClient(httpClient, cfg, log)
	backup := localfile.NewBackup(cfg.Providers.UniverseBackup)

	return Sources{
		Boards:       []provider.BoardSource{em, sn},
		History:      []provider.HistorySource{em, tc, sn},
		Fundamentals: []provider.FundamentalSource{em, tc, sn},
		Universe:     []provider.UniverseSource{em, sn, backup},
		Backup:       backup,
	}
}
