package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRecord(t *testing.T, raw string) Record {
	t.Helper()
	var r Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r
}

func TestParseActivityType(t *testing.T) {
	assert.Equal(t, ActivityTrade, ParseActivityType("TRADE"))
	assert.Equal(t, ActivityRedeem, ParseActivityType("REDEEM"))
	assert.Equal(t, ActivityUnknown, ParseActivityType("trade"))
	assert.Equal(t, ActivityUnknown, ParseActivityType(""))
	assert.False(t, ActivityUnknown.IsKnown())
}

func TestDedupKeyOf_IdenticalFieldsCollapse(t *testing.T) {
	a := decodeRecord(t, `{"transactionHash":"0xabc","logIndex":3,"id":"t1","timestamp":1700000000,"type":"TRADE","side":"BUY","price":0.42,"size":10}`)
	b := decodeRecord(t, `{"transactionHash":"0xabc","logIndex":3,"id":"t1","timestamp":1700000000,"type":"TRADE","side":"BUY","price":0.42,"size":99}`)

	assert.Equal(t, DedupKeyOf(a), DedupKeyOf(b), "size is not part of the key")
}

func TestDedupKeyOf_Aliases(t *testing.T) {
	a := decodeRecord(t, `{"txHash":"0xabc","log_index":1,"tradeId":"x","time":"2024-01-01T00:00:00Z"}`)
	k := DedupKeyOf(a)

	assert.Equal(t, "0xabc", k.TxHash)
	assert.Equal(t, "1", k.LogIndex)
	assert.Equal(t, "x", k.ID)
	assert.Equal(t, "2024-01-01T00:00:00Z", k.Timestamp)
	assert.Equal(t, "", k.Side)
	assert.Equal(t, "", k.Price)
}

func TestDedupKeyOf_NumericRenderingIsStable(t *testing.T) {
	fromFloat := Record{"timestamp": float64(1700000000), "price": 0.5}
	fromNumber := Record{"timestamp": json.Number("1700000000"), "price": json.Number("0.5")}

	assert.Equal(t, DedupKeyOf(fromFloat), DedupKeyOf(fromNumber))
	assert.Equal(t, "1700000000", DedupKeyOf(fromFloat).Timestamp)
}

func TestSeenSet(t *testing.T) {
	s := NewSeenSet()
	k := DedupKeyOf(Record{"id": "1"})

	assert.True(t, s.Add(k))
	assert.False(t, s.Add(k))
	assert.True(t, s.Has(k))
	assert.Equal(t, 1, s.Len())
}

func TestProxyWallet(t *testing.T) {
	assert.Equal(t, "0x1", Record{"proxyWallet": "0x1", "proxy": "0x2"}.ProxyWallet())
	assert.Equal(t, "0x2", Record{"proxy_wallet": "", "proxy": "0x2"}.ProxyWallet())
	assert.Equal(t, "", Record{"proxy": 12}.ProxyWallet())
}

func TestNotionalValue(t *testing.T) {
	assert.InDelta(t, 12.5, NotionalValue(Record{"usdcSize": 12.5, "price": 0.5, "size": 100}), 1e-9)
	assert.InDelta(t, 7.0, NotionalValue(Record{"value": "7"}), 1e-9)
	assert.InDelta(t, 4.0, NotionalValue(Record{"usdSize": "bad", "price": 0.4, "size": 10}), 1e-9)
	assert.Equal(t, 0.0, NotionalValue(Record{}))
}

func TestToFloat(t *testing.T) {
	f, ok := ToFloat("0.25")
	require.True(t, ok)
	assert.Equal(t, 0.25, f)

	_, ok = ToFloat("abc")
	assert.False(t, ok)
	_, ok = ToFloat(nil)
	assert.False(t, ok)
}
