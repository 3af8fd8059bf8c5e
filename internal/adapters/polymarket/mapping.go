package polymarket

import (
	"strings"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// mapGammaMarket convierte un gammaMarket DTO a domain.MarketMetadata.
func mapGammaMarket(gm gammaMarket) domain.MarketMetadata {
	md := domain.EmptyMetadata(gm.Slug)

	for _, t := range gm.Tags {
		if label := strings.TrimSpace(t.Label); label != "" {
			md.Tags = append(md.Tags, label)
		}
	}

	if gm.GameStartTime != "" {
		if t := domain.ParseTime(gm.GameStartTime); !t.IsZero() {
			md.StartTime = &t
		}
	}

	if v, ok := domain.ToFloat(gm.Volume); ok {
		md.Volume = &v
	}
	return md
}

// mapDataTrade convierte un trade de la Data API a domain.Fill.
// Timestamps en milisegundos se normalizan a segundos.
func mapDataTrade(rt rawDataTrade) (domain.Fill, bool) {
	price, okPrice := domain.ToFloat(rt.Price)
	size, okSize := domain.ToFloat(rt.Size)
	ts, okTS := domain.ToFloat(rt.Timestamp)
	if !okPrice || !okSize || !okTS || rt.ConditionID == "" {
		return domain.Fill{}, false
	}
	return domain.Fill{
		ConditionID: rt.ConditionID,
		Asset:       rt.Asset,
		Price:       price,
		Size:        size,
		Timestamp:   domain.UnixTime(ts),
	}, true
}

// mapUserBalance aplana un balance del subgraph.
func mapUserBalance(ub userBalance) domain.SubgraphPosition {
	balance := ub.Balance
	if balance == "" {
		balance = "0"
	}
	return domain.SubgraphPosition{
		ID:           ub.ID,
		User:         ub.User,
		Balance:      balance,
		TokenID:      ub.Asset.ID,
		ConditionID:  ub.Asset.Condition.ID,
		OutcomeIndex: domain.Canonical(ub.Asset.OutcomeIndex),
	}
}
