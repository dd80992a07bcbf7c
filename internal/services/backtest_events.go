package services

import (
	"time"

	"github.com/sentinelfi/risk-engine/internal/models"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// CuratedEvents returns the fixed historical crisis datasets replayed by
// the backtester. TVLs and prices are hand-curated daily approximations
// from public aggregators; stablecoin prices are only present for the
// coins whose peg was actually in play.
func CuratedEvents() []models.HistoricalEvent {
	return []models.HistoricalEvent{
		terraUSTCollapse(),
		stETHDepegAnd3AC(),
		ftxCollapse(),
		usdcSVBDepeg(),
	}
}

// terraUSTCollapse: May 2022. The UST algorithmic stablecoin lost its peg
// and collapsed to near zero within days, erasing ~$40B and dragging the
// broader DeFi market down with it.
func terraUSTCollapse() models.HistoricalEvent {
	return models.HistoricalEvent{
		Slug:          "terra-ust-2022",
		Name:          "Terra/UST collapse",
		Description:   "Algorithmic stablecoin death spiral; UST depegged from $0.985 to $0.30 in four days",
		EventDate:     day(2022, time.May, 11),
		ActualLossUSD: 40e9,
		Snapshots: []models.DailySnapshot{
			{
				Date: day(2022, time.May, 1), DaysBeforeEvent: 10,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 12.0e9, models.ProtocolCompound: 6.5e9, models.ProtocolMaker: 9.5e9,
				},
				ReferencePrice:   2830,
				StablecoinPrices: map[string]float64{"UST": 1.0005},
			},
			{
				Date: day(2022, time.May, 4), DaysBeforeEvent: 7,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 11.6e9, models.ProtocolCompound: 6.3e9, models.ProtocolMaker: 9.2e9,
				},
				ReferencePrice:   2780,
				StablecoinPrices: map[string]float64{"UST": 0.9995},
			},
			{
				Date: day(2022, time.May, 7), DaysBeforeEvent: 4,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 11.2e9, models.ProtocolCompound: 6.0e9, models.ProtocolMaker: 8.9e9,
				},
				ReferencePrice:   2640,
				StablecoinPrices: map[string]float64{"UST": 0.998},
				Notes:            "large UST withdrawals from Anchor begin",
			},
			{
				Date: day(2022, time.May, 8), DaysBeforeEvent: 3,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 10.8e9, models.ProtocolCompound: 5.8e9, models.ProtocolMaker: 8.6e9,
				},
				ReferencePrice:   2520,
				StablecoinPrices: map[string]float64{"UST": 0.985},
				Notes:            "first sustained peg break",
			},
			{
				Date: day(2022, time.May, 9), DaysBeforeEvent: 2,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 10.1e9, models.ProtocolCompound: 5.4e9, models.ProtocolMaker: 8.1e9,
				},
				ReferencePrice:   2240,
				StablecoinPrices: map[string]float64{"UST": 0.91},
				Notes:            "LFG deploys reserves; peg not recovering",
			},
			{
				Date: day(2022, time.May, 10), DaysBeforeEvent: 1,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 9.2e9, models.ProtocolCompound: 4.9e9, models.ProtocolMaker: 7.4e9,
				},
				ReferencePrice:   2080,
				StablecoinPrices: map[string]float64{"UST": 0.67},
			},
			{
				Date: day(2022, time.May, 11), DaysBeforeEvent: 0,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 8.3e9, models.ProtocolCompound: 4.4e9, models.ProtocolMaker: 6.8e9,
				},
				ReferencePrice:   1960,
				StablecoinPrices: map[string]float64{"UST": 0.30},
				Notes:            "death spiral; LUNA hyperinflation",
			},
			{
				Date: day(2022, time.May, 12), DaysBeforeEvent: -1,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 7.8e9, models.ProtocolCompound: 4.1e9, models.ProtocolMaker: 6.4e9,
				},
				ReferencePrice:   1940,
				StablecoinPrices: map[string]float64{"UST": 0.12, "USDT": 0.997},
			},
		},
	}
}

// stETHDepegAnd3AC: June 2022. stETH traded at a widening discount to ETH,
// forcing leveraged positions (Celsius, Three Arrows Capital) into
// liquidation as ETH fell below $900.
func stETHDepegAnd3AC() models.HistoricalEvent {
	return models.HistoricalEvent{
		Slug:          "steth-3ac-2022",
		Name:          "stETH discount / 3AC insolvency",
		Description:   "Leveraged staked-ETH unwind; cascading liquidations across lending markets",
		EventDate:     day(2022, time.June, 18),
		ActualLossUSD: 5e9,
		Snapshots: []models.DailySnapshot{
			{
				Date: day(2022, time.June, 8), DaysBeforeEvent: 10,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 7.2e9, models.ProtocolCompound: 4.0e9, models.ProtocolMaker: 8.1e9,
				},
				ReferencePrice: 1810,
			},
			{
				Date: day(2022, time.June, 10), DaysBeforeEvent: 8,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 6.9e9, models.ProtocolCompound: 3.8e9, models.ProtocolMaker: 7.8e9,
				},
				ReferencePrice: 1660,
			},
			{
				Date: day(2022, time.June, 12), DaysBeforeEvent: 6,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 6.2e9, models.ProtocolCompound: 3.4e9, models.ProtocolMaker: 7.2e9,
				},
				ReferencePrice: 1430,
				Notes:          "Celsius halts withdrawals",
			},
			{
				Date: day(2022, time.June, 13), DaysBeforeEvent: 5,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 5.6e9, models.ProtocolCompound: 3.1e9, models.ProtocolMaker: 6.8e9,
				},
				ReferencePrice:   1200,
				StablecoinPrices: map[string]float64{"DAI": 0.999},
			},
			{
				Date: day(2022, time.June, 14), DaysBeforeEvent: 4,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 5.2e9, models.ProtocolCompound: 3.0e9, models.ProtocolMaker: 6.5e9,
				},
				ReferencePrice: 1100,
			},
			{
				Date: day(2022, time.June, 15), DaysBeforeEvent: 3,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 5.0e9, models.ProtocolCompound: 2.9e9, models.ProtocolMaker: 6.3e9,
				},
				ReferencePrice: 1050,
				Notes:          "3AC margin calls reported",
			},
			{
				Date: day(2022, time.June, 16), DaysBeforeEvent: 2,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.8e9, models.ProtocolCompound: 2.9e9, models.ProtocolMaker: 6.2e9,
				},
				ReferencePrice: 1070,
			},
			{
				Date: day(2022, time.June, 17), DaysBeforeEvent: 1,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.6e9, models.ProtocolCompound: 2.8e9, models.ProtocolMaker: 6.1e9,
				},
				ReferencePrice: 995,
			},
			{
				Date: day(2022, time.June, 18), DaysBeforeEvent: 0,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.4e9, models.ProtocolCompound: 2.7e9, models.ProtocolMaker: 5.9e9,
				},
				ReferencePrice: 880,
				Notes:          "ETH bottoms below $900; forced liquidations peak",
			},
		},
	}
}

// ftxCollapse: November 2022. The FTX exchange failed over a week,
// triggering broad deleveraging and a brief USDT wobble.
func ftxCollapse() models.HistoricalEvent {
	return models.HistoricalEvent{
		Slug:          "ftx-2022",
		Name:          "FTX collapse",
		Description:   "Exchange insolvency; system-wide deleveraging and stablecoin outflows",
		EventDate:     day(2022, time.November, 8),
		ActualLossUSD: 8e9,
		Snapshots: []models.DailySnapshot{
			{
				Date: day(2022, time.October, 30), DaysBeforeEvent: 9,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 5.6e9, models.ProtocolCompound: 2.9e9, models.ProtocolMaker: 6.9e9,
				},
				ReferencePrice: 1590,
			},
			{
				Date: day(2022, time.November, 2), DaysBeforeEvent: 6,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 5.5e9, models.ProtocolCompound: 2.9e9, models.ProtocolMaker: 6.8e9,
				},
				ReferencePrice: 1520,
				Notes:          "Alameda balance sheet leak",
			},
			{
				Date: day(2022, time.November, 6), DaysBeforeEvent: 2,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 5.2e9, models.ProtocolCompound: 2.7e9, models.ProtocolMaker: 6.5e9,
				},
				ReferencePrice: 1570,
				Notes:          "CZ announces FTT sale; withdrawals accelerate",
			},
			{
				Date: day(2022, time.November, 7), DaysBeforeEvent: 1,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.9e9, models.ProtocolCompound: 2.5e9, models.ProtocolMaker: 6.2e9,
				},
				ReferencePrice: 1510,
			},
			{
				Date: day(2022, time.November, 8), DaysBeforeEvent: 0,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.4e9, models.ProtocolCompound: 2.3e9, models.ProtocolMaker: 5.9e9,
				},
				ReferencePrice:   1330,
				StablecoinPrices: map[string]float64{"USDT": 0.996},
				Notes:            "FTX halts withdrawals",
			},
			{
				Date: day(2022, time.November, 9), DaysBeforeEvent: -1,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.0e9, models.ProtocolCompound: 2.1e9, models.ProtocolMaker: 5.6e9,
				},
				ReferencePrice:   1100,
				StablecoinPrices: map[string]float64{"USDT": 0.985},
			},
			{
				Date: day(2022, time.November, 10), DaysBeforeEvent: -2,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.1e9, models.ProtocolCompound: 2.1e9, models.ProtocolMaker: 5.7e9,
				},
				ReferencePrice:   1290,
				StablecoinPrices: map[string]float64{"USDT": 0.993},
			},
		},
	}
}

// usdcSVBDepeg: March 2023. Circle disclosed reserves stuck at Silicon
// Valley Bank; USDC traded to $0.88 over a weekend and dragged DAI (then
// heavily USDC-collateralized) with it.
func usdcSVBDepeg() models.HistoricalEvent {
	return models.HistoricalEvent{
		Slug:          "usdc-svb-2023",
		Name:          "USDC/SVB depeg",
		Description:   "Reserve-bank failure; fiat-backed peg break propagating into DAI",
		EventDate:     day(2023, time.March, 11),
		ActualLossUSD: 3.3e9,
		Snapshots: []models.DailySnapshot{
			{
				Date: day(2023, time.March, 6), DaysBeforeEvent: 5,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.7e9, models.ProtocolCompound: 1.9e9, models.ProtocolMaker: 7.4e9,
				},
				ReferencePrice:   1560,
				StablecoinPrices: map[string]float64{"USDC": 1.0001, "DAI": 0.9999},
			},
			{
				Date: day(2023, time.March, 9), DaysBeforeEvent: 2,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.6e9, models.ProtocolCompound: 1.9e9, models.ProtocolMaker: 7.3e9,
				},
				ReferencePrice:   1530,
				StablecoinPrices: map[string]float64{"USDC": 0.9995, "DAI": 0.9996},
				Notes:            "SVB stock collapses; deposit run begins",
			},
			{
				Date: day(2023, time.March, 10), DaysBeforeEvent: 1,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.5e9, models.ProtocolCompound: 1.8e9, models.ProtocolMaker: 7.1e9,
				},
				ReferencePrice:   1430,
				StablecoinPrices: map[string]float64{"USDC": 0.98, "DAI": 0.985},
				Notes:            "Circle confirms $3.3B at SVB",
			},
			{
				Date: day(2023, time.March, 11), DaysBeforeEvent: 0,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.2e9, models.ProtocolCompound: 1.7e9, models.ProtocolMaker: 6.7e9,
				},
				ReferencePrice:   1440,
				StablecoinPrices: map[string]float64{"USDC": 0.88, "DAI": 0.90},
				Notes:            "USDC bottoms at $0.88",
			},
			{
				Date: day(2023, time.March, 13), DaysBeforeEvent: -2,
				ProtocolTVLs: map[models.Protocol]float64{
					models.ProtocolAave: 4.5e9, models.ProtocolCompound: 1.8e9, models.ProtocolMaker: 7.0e9,
				},
				ReferencePrice:   1600,
				StablecoinPrices: map[string]float64{"USDC": 0.999, "DAI": 0.998},
				Notes:            "Fed backstop announced; pegs recover",
			},
		},
	}
}
