package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipMatchResolver_Resolve(t *testing.T) {
	resolver := NewSkipMatchResolver()

	t.Run("crossed books netted down to first uncrossed levels", func(t *testing.T) {
		sell := mustBook(t, SideSell,
			lvl("817", "590", 2), lvl("818", "120", 1), lvl("820", "100", 1),
			lvl("821", "1010", 2), lvl("830", "3000", 1), lvl("840", "200", 1),
		)
		buy := mustBook(t, SideBuy,
			lvl("818", "500", 2), lvl("817", "50", 1), lvl("816", "623", 2),
			lvl("815", "9", 1), lvl("810", "5000", 1), lvl("800", "3000", 1),
		)
		sellBefore := sell.ActiveTotalAmount()
		buyBefore := buy.ActiveTotalAmount()

		require.NoError(t, resolver.Resolve(sell, buy))

		// 卖侧 817 档被吃掉 550，剩 40；买侧前两档整档清零
		sellTop, ok := sell.Top()
		require.True(t, ok)
		assert.True(t, sellTop.Price.Equal(d("817")))
		assert.True(t, sellTop.Amount.Equal(d("40")))

		buyActive, ok := buy.BestActivePrice()
		require.True(t, ok)
		assert.True(t, buyActive.Equal(d("816")))

		assert.True(t, sell.HasMatch())
		assert.True(t, buy.HasMatch())
		assert.Equal(t, 0, sell.Skips())
		assert.Equal(t, 2, buy.Skips())

		// 两侧净掉的量必须相等
		sellRemoved := sellBefore.Sub(sell.ActiveTotalAmount())
		buyRemoved := buyBefore.Sub(buy.ActiveTotalAmount())
		assert.True(t, sellRemoved.Equal(buyRemoved))
		assert.True(t, sellRemoved.Equal(d("550")))

		// 净额前的最优价不受影响
		best, _ := sell.BestPrice()
		assert.True(t, best.Equal(d("817")))
		best, _ = buy.BestPrice()
		assert.True(t, best.Equal(d("818")))

		// 买侧最后跳过的价格
		skipped, ok := buy.LastSkippedPrice()
		require.True(t, ok)
		assert.True(t, skipped.Equal(d("817")))
	})

	t.Run("equal prices with equal amounts clear both levels", func(t *testing.T) {
		sell := mustBook(t, SideSell, lvl("100", "10", 1), lvl("101", "5", 1))
		buy := mustBook(t, SideBuy, lvl("100", "10", 1), lvl("99", "5", 1))

		require.NoError(t, resolver.Resolve(sell, buy))

		assert.Equal(t, 1, sell.Skips())
		assert.Equal(t, 1, buy.Skips())
		sellActive, _ := sell.BestActivePrice()
		buyActive, _ := buy.BestActivePrice()
		assert.True(t, sellActive.Equal(d("101")))
		assert.True(t, buyActive.Equal(d("99")))
	})

	t.Run("uncrossed books untouched", func(t *testing.T) {
		sell := mustBook(t, SideSell, lvl("101", "10", 1))
		buy := mustBook(t, SideBuy, lvl("100", "10", 1))

		require.NoError(t, resolver.Resolve(sell, buy))

		assert.False(t, sell.HasMatch())
		assert.False(t, buy.HasMatch())
		sellActive, _ := sell.BestActivePrice()
		sellBest, _ := sell.BestPrice()
		assert.True(t, sellActive.Equal(sellBest))
	})

	t.Run("one side consumed entirely", func(t *testing.T) {
		sell := mustBook(t, SideSell, lvl("100", "5", 1))
		buy := mustBook(t, SideBuy, lvl("102", "3", 1), lvl("101", "2", 1), lvl("99", "7", 1))

		require.NoError(t, resolver.Resolve(sell, buy))

		assert.Equal(t, 0, sell.ActiveLen())
		assert.Equal(t, 1, sell.Skips())
		buyActive, ok := buy.BestActivePrice()
		require.True(t, ok)
		assert.True(t, buyActive.Equal(d("99")))
	})

	t.Run("empty books are a no-op", func(t *testing.T) {
		sell := mustBook(t, SideSell)
		buy := mustBook(t, SideBuy, lvl("100", "1", 1))

		require.NoError(t, resolver.Resolve(sell, buy))
		assert.False(t, buy.HasMatch())
	})

	t.Run("wrong side order rejected", func(t *testing.T) {
		sell := mustBook(t, SideSell, lvl("100", "1", 1))
		buy := mustBook(t, SideBuy, lvl("99", "1", 1))
		assert.Error(t, resolver.Resolve(buy, sell))
	})

	t.Run("published views never cross", func(t *testing.T) {
		sell := mustBook(t, SideSell,
			lvl("95", "10", 1), lvl("97", "30", 1), lvl("99", "50", 1),
		)
		buy := mustBook(t, SideBuy,
			lvl("98", "25", 1), lvl("96", "20", 1), lvl("94", "40", 1),
		)

		require.NoError(t, resolver.Resolve(sell, buy))

		sellActive, sellOK := sell.BestActivePrice()
		buyActive, buyOK := buy.BestActivePrice()
		if sellOK && buyOK {
			assert.True(t, sellActive.GreaterThan(buyActive),
				"best active sell %s must exceed best active buy %s", sellActive, buyActive)
		}
	})
}

func TestSkipMatchResolver_Conservation(t *testing.T) {
	resolver := NewSkipMatchResolver()

	cases := []struct {
		name string
		sell []PriceLevel
		buy  []PriceLevel
	}{
		{
			name: "deep cross",
			sell: []PriceLevel{lvl("10", "1", 1), lvl("11", "2", 1), lvl("12", "4", 1)},
			buy:  []PriceLevel{lvl("12", "3", 1), lvl("11", "3", 1), lvl("9", "1", 1)},
		},
		{
			name: "single level overlap",
			sell: []PriceLevel{lvl("10", "100", 1)},
			buy:  []PriceLevel{lvl("10", "1", 1)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sell, err := NewOrderBook(SideSell, "ETHUSDT", tc.sell)
			require.NoError(t, err)
			buy, err := NewOrderBook(SideBuy, "ETHUSDT", tc.buy)
			require.NoError(t, err)

			sellBefore := sell.ActiveTotalAmount()
			buyBefore := buy.ActiveTotalAmount()

			require.NoError(t, resolver.Resolve(sell, buy))

			sellRemoved := sellBefore.Sub(sell.ActiveTotalAmount())
			buyRemoved := buyBefore.Sub(buy.ActiveTotalAmount())
			assert.True(t, sellRemoved.Equal(buyRemoved),
				"removed %s from sell but %s from buy", sellRemoved, buyRemoved)
			assert.True(t, sellRemoved.GreaterThanOrEqual(decimal.Zero))
		})
	}
}
