package sqlite

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"cryptocandles/internal/logger"
	"cryptocandles/internal/pkg/randx"
	"cryptocandles/internal/store"
	"cryptocandles/internal/store/model"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type SeedProvider struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	AvatarURL    string  `yaml:"avatar_url"`
	WinRate      float64 `yaml:"win_rate"`
	Followers    int     `yaml:"followers"`
	TotalSignals int     `yaml:"total_signals"`
}

// SeedData 是首次启动时写入的演示数据。
type SeedData struct {
	Providers      []SeedProvider `yaml:"providers"`
	Pairs          []string       `yaml:"pairs"`
	Timeframes     []string       `yaml:"timeframes"`
	Justifications []string       `yaml:"justifications"`
}

func DefaultSeedData() SeedData {
	return SeedData{
		Providers: []SeedProvider{
			{ID: "sp1", Name: "CryptoWhale", AvatarURL: "https://picsum.photos/seed/whale/100/100", WinRate: 85, Followers: 12500, TotalSignals: 342},
			{ID: "sp2", Name: "Bullrun Master", AvatarURL: "https://picsum.photos/seed/bull/100/100", WinRate: 78, Followers: 8900, TotalSignals: 210},
			{ID: "sp3", Name: "Altcoin Sniper", AvatarURL: "https://picsum.photos/seed/sniper/100/100", WinRate: 92, Followers: 21300, TotalSignals: 512},
			{ID: "sp4", Name: "Satoshi's Ghost", AvatarURL: "https://picsum.photos/seed/ghost/100/100", WinRate: 72, Followers: 5400, TotalSignals: 150},
		},
		Pairs:      []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "ADA/USDT", "DOGE/USDT", "XRP/USDT"},
		Timeframes: []string{"15m", "1H", "4H", "1D"},
		Justifications: []string{
			"Engolfo de alta no suporte chave.",
			"RSI sobrevendido com divergência.",
			"Rompimento de triângulo ascendente.",
			"Rejeição na média móvel de 200 períodos.",
			"Padrão de bandeira de alta confirmado.",
			"Estrela da noite na resistência.",
			"Cruzamento da morte (Death Cross) iminente.",
		},
	}
}

func (d SeedData) validate() error {
	if len(d.Providers) == 0 {
		return fmt.Errorf("seed: providers 不能为空")
	}
	seen := make(map[string]bool, len(d.Providers))
	for _, p := range d.Providers {
		id := strings.TrimSpace(p.ID)
		if id == "" || strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("seed: provider 缺少 id 或 name")
		}
		if seen[id] {
			return fmt.Errorf("seed: provider %s 重复", id)
		}
		seen[id] = true
	}
	if len(d.Pairs) == 0 || len(d.Timeframes) == 0 || len(d.Justifications) == 0 {
		return fmt.Errorf("seed: pairs/timeframes/justifications 不能为空")
	}
	return nil
}

// LoadSeedFile 读取 YAML 种子文件，未知字段视为错误。
func LoadSeedFile(path string) (SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedData{}, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var data SeedData
	if err := dec.Decode(&data); err != nil {
		return SeedData{}, fmt.Errorf("seed %s: %w", path, err)
	}
	if err := data.validate(); err != nil {
		return SeedData{}, err
	}
	return data, nil
}

type SeedOptions struct {
	Data    SeedData
	Signals int
	Rand    randx.Source
}

// Seed 仅在 provider 表为空时写入演示数据，返回是否写入。
func (s *SqliteStore) Seed(ctx context.Context, opts SeedOptions) (bool, error) {
	data := opts.Data
	if len(data.Providers) == 0 {
		data = DefaultSeedData()
	}
	if err := data.validate(); err != nil {
		return false, err
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = randx.NewTimeSeeded()
	}
	n, err := NewProviderRepo(s.db).Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	now := s.now()
	err = s.inTx(ctx, func(uow store.UnitOfWork) error {
		for _, p := range data.Providers {
			if err := uow.Providers().Save(ctx, &model.ProviderModel{
				ID:            strings.TrimSpace(p.ID),
				Name:          p.Name,
				AvatarURL:     p.AvatarURL,
				WinRate:       p.WinRate,
				Followers:     p.Followers,
				TotalSignals:  p.TotalSignals,
				CreatedAtUnix: now.Unix(),
			}); err != nil {
				return err
			}
		}
		for i := 0; i < opts.Signals; i++ {
			row := generateSignal(data, rnd, now, i)
			if err := uow.Signals().Insert(ctx, &row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	logger.Infof("种子数据已写入: providers=%d signals=%d", len(data.Providers), opts.Signals)
	return true, nil
}

func pick[T any](rnd randx.Source, items []T) T {
	idx := int(rnd.Float64() * float64(len(items)))
	if idx >= len(items) {
		idx = len(items) - 1
	}
	return items[idx]
}

func price(rnd randx.Source, scale float64) string {
	return decimal.NewFromFloat(rnd.Float64() * scale).StringFixed(2)
}

func generateSignal(data SeedData, rnd randx.Source, now time.Time, i int) model.SignalModel {
	provider := pick(rnd, data.Providers)
	typ := "BAIXA"
	if rnd.Float64() > 0.5 {
		typ = "ALTA"
	}
	row := model.SignalModel{
		ID:         fmt.Sprintf("sig%d", i+1),
		ProviderID: strings.TrimSpace(provider.ID),
		Pair:       pick(rnd, data.Pairs),
		Type:       typ,
		Timeframe:  pick(rnd, data.Timeframes),
		Entry:      price(rnd, 1000),
		Target:     price(rnd, 1200),
		Stop:       price(rnd, 900),
	}
	row.Justification = pick(rnd, data.Justifications)
	if rnd.Float64() > 0.7 {
		row.ImageURL = fmt.Sprintf("https://picsum.photos/seed/chart%d/400/200", i)
	}
	hoursAgo := int(rnd.Float64()*24) + 1
	row.CreatedAtUnix = now.Add(-time.Duration(hoursAgo) * time.Hour).Unix()
	return row
}
