package fee

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vietddude/sweeper/internal/core/domain"
)

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func TestEstimate_Legacy(t *testing.T) {
	data := &domain.FeeData{GasPrice: gwei(10)}

	quote, reserve, err := Estimate(data, decimal.NewFromInt(2), 50000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	legacy, ok := quote.(domain.LegacyQuote)
	if !ok {
		t.Fatalf("expected legacy quote, got %T", quote)
	}
	if legacy.GasPrice.Cmp(gwei(20)) != 0 {
		t.Errorf("expected 20 gwei, got %s", legacy.GasPrice)
	}
	// 50000 * 20 gwei = 0.001 ETH
	if reserve.String() != "1000000000000000" {
		t.Errorf("expected reserve 1e15, got %s", reserve)
	}
}

func TestEstimate_ZeroBaseFeeIsLegacy(t *testing.T) {
	data := &domain.FeeData{
		GasPrice:             gwei(5),
		LastBaseFeePerGas:    big.NewInt(0),
		MaxFeePerGas:         gwei(9),
		MaxPriorityFeePerGas: gwei(1),
	}

	quote, _, err := Estimate(data, decimal.NewFromInt(1), 21000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Market() != domain.MarketLegacy {
		t.Errorf("expected legacy market, got %s", quote.Market())
	}
}

func TestEstimate_Dynamic(t *testing.T) {
	data := &domain.FeeData{
		GasPrice:             gwei(12),
		LastBaseFeePerGas:    gwei(10),
		MaxFeePerGas:         gwei(22),
		MaxPriorityFeePerGas: gwei(2),
	}

	quote, reserve, err := Estimate(data, decimal.NewFromInt(3), 50000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dyn, ok := quote.(domain.DynamicQuote)
	if !ok {
		t.Fatalf("expected dynamic quote, got %T", quote)
	}
	if dyn.MaxFeePerGas.Cmp(gwei(66)) != 0 {
		t.Errorf("expected max fee 66 gwei, got %s", dyn.MaxFeePerGas)
	}
	if dyn.MaxPriorityFeePerGas.Cmp(gwei(6)) != 0 {
		t.Errorf("expected priority 6 gwei, got %s", dyn.MaxPriorityFeePerGas)
	}

	want := new(big.Int).Mul(big.NewInt(50000), gwei(72))
	if reserve.Cmp(want) != 0 {
		t.Errorf("expected reserve %s, got %s", want, reserve)
	}
}

func TestEstimate_FractionalMultiplierIsExact(t *testing.T) {
	m := decimal.RequireFromString("1.1")
	// 0.1 * 3 in floating point is not 0.3; decimal scaling must be exact.
	data := &domain.FeeData{GasPrice: big.NewInt(3_000_000_000)}

	quote, reserve, err := Estimate(data, m, 21000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.PerGas().String() != "3300000000" {
		t.Errorf("expected 3300000000, got %s", quote.PerGas())
	}
	if reserve.String() != "69300000000000" {
		t.Errorf("expected 69300000000000, got %s", reserve)
	}
}

func TestEstimate_RoundsUpSubUnit(t *testing.T) {
	data := &domain.FeeData{GasPrice: big.NewInt(7)}

	quote, _, err := Estimate(data, decimal.RequireFromString("1.5"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10.5 rounds up so the reserve never undershoots
	if quote.PerGas().Int64() != 11 {
		t.Errorf("expected 11, got %s", quote.PerGas())
	}
}

func TestEstimate_FeeUnavailable(t *testing.T) {
	tests := []struct {
		name string
		data *domain.FeeData
	}{
		{"nil snapshot", nil},
		{"no gas price", &domain.FeeData{}},
		{"zero gas price", &domain.FeeData{GasPrice: big.NewInt(0)}},
		{"dynamic without caps", &domain.FeeData{LastBaseFeePerGas: gwei(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Estimate(tt.data, decimal.NewFromInt(1), 21000)
			if !errors.Is(err, domain.ErrFeeUnavailable) {
				t.Errorf("expected ErrFeeUnavailable, got %v", err)
			}
		})
	}
}

func TestEstimate_RejectsNonPositiveMultiplier(t *testing.T) {
	data := &domain.FeeData{GasPrice: gwei(1)}
	if _, _, err := Estimate(data, decimal.Zero, 21000); err == nil {
		t.Fatal("expected error for zero multiplier")
	}
}

func TestFormatEther(t *testing.T) {
	wei, _ := new(big.Int).SetString("999000000000000000", 10)
	if got := FormatEther(wei); got != "0.999" {
		t.Errorf("expected 0.999, got %s", got)
	}
}
