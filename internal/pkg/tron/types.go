package tron

// TokenInfo TRC20 代币信息
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	Name     string `json:"name"`
}

// Transfer TronGrid 返回的 TRC20 转账
type Transfer struct {
	TransactionID  string    `json:"transaction_id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	Value          string    `json:"value"`
	Type           string    `json:"type"`
	BlockTimestamp int64     `json:"block_timestamp"`
	TokenInfo      TokenInfo `json:"token_info"`
}

type transfersResponse struct {
	Data    []Transfer `json:"data"`
	Success bool       `json:"success"`
}

// DepositAccount 新生成的充值账户
type DepositAccount struct {
	Address    string
	PrivateKey string
}
