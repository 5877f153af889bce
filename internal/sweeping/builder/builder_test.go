package builder

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/sweeping/fee"
)

var (
	deposit = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	vault   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func ether(s string) *big.Int {
	return decimal.RequireFromString(s).Shift(18).BigInt()
}

func TestBuild_EndToEndLegacy(t *testing.T) {
	data := &domain.FeeData{GasPrice: big.NewInt(10_000_000_000)}
	quote, reserve, err := fee.Estimate(data, decimal.NewFromInt(2), 50000)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}

	tx, err := Build(Params{
		From:     deposit,
		Vault:    vault,
		Balance:  ether("1"),
		Reserve:  reserve,
		Nonce:    3,
		ChainID:  domain.ChainIDSepolia,
		GasLimit: 50000,
		Quote:    quote,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tx.Value.Cmp(ether("0.999")) != 0 {
		t.Errorf("expected 0.999 ETH, got %s", fee.FormatEther(tx.Value))
	}
	if tx.To != vault || tx.From != deposit || tx.Nonce != 3 {
		t.Errorf("unexpected tx %+v", tx)
	}
	if tx.MaxCost().Cmp(ether("1")) != 0 {
		t.Errorf("value plus reserve must equal balance, got %s", tx.MaxCost())
	}
}

func TestBuild_ExactRemainder(t *testing.T) {
	cases := []struct{ balance, reserve int64 }{
		{1_000_000, 1_000_000},
		{1_000_001, 1_000_000},
		{987_654_321, 123_456_789},
	}

	for _, c := range cases {
		tx, err := Build(Params{
			Balance:  big.NewInt(c.balance),
			Reserve:  big.NewInt(c.reserve),
			GasLimit: 21000,
			Quote:    domain.LegacyQuote{GasPrice: big.NewInt(1)},
		})
		if err != nil {
			t.Fatalf("balance %d reserve %d: %v", c.balance, c.reserve, err)
		}
		if tx.Value.Int64() != c.balance-c.reserve {
			t.Errorf("expected %d, got %s", c.balance-c.reserve, tx.Value)
		}
	}
}

func TestBuild_InsufficientBalance(t *testing.T) {
	tx, err := Build(Params{
		Balance: big.NewInt(999),
		Reserve: big.NewInt(1000),
		Quote:   domain.LegacyQuote{GasPrice: big.NewInt(1)},
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if tx != nil {
		t.Error("no transaction must be produced")
	}
}

func TestToTransaction_Dynamic(t *testing.T) {
	sweep := &domain.SweepTransaction{
		From:     deposit,
		To:       vault,
		Nonce:    1,
		Value:    big.NewInt(100),
		ChainID:  domain.ChainIDEthereum,
		GasLimit: 50000,
		Fee: domain.DynamicQuote{
			MaxFeePerGas:         big.NewInt(30),
			MaxPriorityFeePerGas: big.NewInt(2),
		},
	}

	tx := ToTransaction(sweep)
	if tx.Type() != types.DynamicFeeTxType {
		t.Fatalf("expected dynamic fee tx, got type %d", tx.Type())
	}
	if tx.GasFeeCap().Int64() != 30 || tx.GasTipCap().Int64() != 2 {
		t.Errorf("fee fields not copied: cap %s tip %s", tx.GasFeeCap(), tx.GasTipCap())
	}
	if tx.ChainId().Int64() != 1 || *tx.To() != vault || tx.Gas() != 50000 {
		t.Errorf("unexpected tx fields")
	}
}

func TestToTransaction_Legacy(t *testing.T) {
	sweep := &domain.SweepTransaction{
		To:       vault,
		Value:    big.NewInt(100),
		ChainID:  domain.ChainIDEthereum,
		GasLimit: 21000,
		Fee:      domain.LegacyQuote{GasPrice: big.NewInt(20)},
	}

	tx := ToTransaction(sweep)
	if tx.Type() != types.LegacyTxType {
		t.Fatalf("expected legacy tx, got type %d", tx.Type())
	}
	if tx.GasPrice().Int64() != 20 || tx.Value().Int64() != 100 {
		t.Errorf("unexpected tx fields")
	}
}
