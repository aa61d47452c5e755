package rpc

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// AccountInfo is a decoded getAccountInfo result
type AccountInfo struct {
	Data     []byte
	Owner    string
	Lamports uint64
	Slot     uint64
}

// AccountInfoResponse is the raw response from getAccountInfo
type AccountInfoResponse struct {
	Result struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value *struct {
			Data     []string `json:"data"`
			Owner    string   `json:"owner"`
			Lamports uint64   `json:"lamports"`
		} `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// TokenBalanceResponse is the raw response from getTokenAccountBalance
type TokenBalanceResponse struct {
	Result struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Amount   string `json:"amount"`
			Decimals uint8  `json:"decimals"`
		} `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// SignatureInfo represents a transaction signature from getSignaturesForAddress
type SignatureInfo struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	Err       interface{} `json:"err"`
	BlockTime int64       `json:"blockTime"`
}

// SignaturesResponse is the response from getSignaturesForAddress
type SignaturesResponse struct {
	Result []SignatureInfo `json:"result"`
	Error  *RPCError       `json:"error"`
}

// TransactionResponse is the response from getTransaction (json encoding)
type TransactionResponse struct {
	Result *struct {
		Slot        int64 `json:"slot"`
		BlockTime   int64 `json:"blockTime"`
		Transaction struct {
			Message struct {
				AccountKeys []string `json:"accountKeys"`
			} `json:"message"`
		} `json:"transaction"`
		Meta *struct {
			Err         interface{} `json:"err"`
			LogMessages []string    `json:"logMessages"`
		} `json:"meta"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}
