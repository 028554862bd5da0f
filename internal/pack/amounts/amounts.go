package amounts

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sokobiz/sokobiz/pkg/money"
)

// AmountEntry maps one exact price point to a pack code.
type AmountEntry struct {
	Pack     string `mapstructure:"pack"`
	Currency string `mapstructure:"currency"`
	Amount   string `mapstructure:"amount"`
}

func DefaultAmountEntries() []AmountEntry {
	return []AmountEntry{
		{Pack: "STARTER_20", Currency: "USD", Amount: "3.00"},
		{Pack: "GROWTH_60", Currency: "USD", Amount: "8.00"},
		{Pack: "SCALE_150", Currency: "USD", Amount: "18.00"},
	}
}

// Table resolves an incoming payment amount to a pack code. The
// mapping is loaded from packs.yml and hot-reloaded on file change.
type Table struct {
	current atomic.Value // holds map[string]string
}

func New() (*Table, error) {
	v := viper.New()

	v.SetConfigName("packs")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/sokobiz/config")
	v.AddConfigPath("/etc/sokobiz")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SOKOBIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		v.SetDefault("packs.amounts", DefaultAmountEntries())
	}

	var entries []AmountEntry
	if err := v.UnmarshalKey("packs.amounts", &entries); err != nil {
		return nil, err
	}
	compiled, err := compileAmountEntries(entries)
	if err != nil {
		return nil, err
	}

	table := &Table{}
	table.current.Store(compiled)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated []AmountEntry
		if err := v.UnmarshalKey("packs.amounts", &updated); err != nil {
			zap.L().Warn("pack amount table reload failed", zap.Error(err))
			return
		}
		recompiled, err := compileAmountEntries(updated)
		if err != nil {
			zap.L().Warn("pack amount table invalid, keeping previous", zap.Error(err))
			return
		}
		table.current.Store(recompiled)
		zap.L().Info("pack amount table reloaded", zap.String("file", e.Name))
	})

	return table, nil
}

// NewFromEntries builds a table from fixed entries, without config
// discovery or file watching.
func NewFromEntries(entries []AmountEntry) (*Table, error) {
	compiled, err := compileAmountEntries(entries)
	if err != nil {
		return nil, err
	}
	table := &Table{}
	table.current.Store(compiled)
	return table, nil
}

// Resolve returns the pack code registered for the exact amount.
func (t *Table) Resolve(m money.Money) (string, bool) {
	table := t.current.Load().(map[string]string)
	code, ok := table[amountKey(m.Currency, m.Value)]
	return code, ok
}

func compileAmountEntries(entries []AmountEntry) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, errors.New("packs.amounts cannot be empty")
	}
	compiled := make(map[string]string, len(entries))
	for _, entry := range entries {
		pack := strings.TrimSpace(entry.Pack)
		if pack == "" {
			return nil, errors.New("packs.amounts entry missing pack code")
		}
		amount, err := money.Parse(entry.Currency, entry.Amount)
		if err != nil {
			return nil, err
		}
		key := amountKey(amount.Currency, amount.Value)
		if existing, dup := compiled[key]; dup && existing != pack {
			return nil, errors.New("packs.amounts maps one amount to multiple packs")
		}
		compiled[key] = pack
	}
	return compiled, nil
}

func amountKey(currency string, value decimal.Decimal) string {
	return currency + "|" + value.String()
}
