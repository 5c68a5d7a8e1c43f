package client

import "github.com/newthinker/quantview/internal/core"

// FallbackStrategies returns the built-in sample strategies shown when the
// service is unreachable. Each call returns a fresh copy.
func FallbackStrategies() []core.Strategy {
	return []core.Strategy{
		{
			ID:          1,
			Name:        "双均线金叉死叉",
			Description: "基于短期和长期移动平均线的交叉信号进行交易",
			Params: map[string]float64{
				"short_window": 50,
				"long_window":  200,
			},
		},
		{
			ID:          2,
			Name:        "RSI超卖反转",
			Description: "当RSI指标低于超卖阈值后反弹时买入，高于超买阈值后回落时卖出",
			Params: map[string]float64{
				"rsi_period": 14,
				"overbought": 70,
				"oversold":   30,
			},
		},
		{
			ID:          3,
			Name:        "布林带突破",
			Description: "基于价格突破布林带上下轨的信号进行交易",
			Params: map[string]float64{
				"window":  20,
				"num_std": 2,
			},
		},
	}
}
