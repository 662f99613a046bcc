package tron

import (
	"github.com/shopspring/decimal"
)

// USDTDecimals USDT-TRC20 精度
const USDTDecimals int32 = 6

// ToBaseUnits 把人类可读金额换算成最小单位的整数字符串，四舍五入到整数
func ToBaseUnits(amount decimal.Decimal, decimals int32) string {
	return amount.Shift(decimals).Round(0).String()
}

// FromBaseUnits 最小单位转回人类可读金额
func FromBaseUnits(value string, decimals int32) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Shift(-decimals), nil
}
