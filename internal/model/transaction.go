package model

// TxStatus is the lifecycle state of a multisig transaction as seen by the gateway.
type TxStatus string

const (
	// TxStatusProposed: accepted by the gateway, not yet listed by the indexer.
	TxStatusProposed TxStatus = "PROPOSED"
	// TxStatusQueued: listed in the indexer queue, awaiting execution.
	TxStatusQueued TxStatus = "QUEUED"
	// TxStatusExecuted: listed in the indexer history. Terminal.
	TxStatusExecuted TxStatus = "EXECUTED"
	// TxStatusRemoved: deleted before execution. Terminal.
	TxStatusRemoved TxStatus = "REMOVED"
)

// Terminal reports whether no further transition is possible.
func (s TxStatus) Terminal() bool {
	return s == TxStatusExecuted || s == TxStatusRemoved
}

// Live reports whether the status holds its nonce.
func (s TxStatus) Live() bool {
	return s == TxStatusProposed || s == TxStatusQueued || s == TxStatusExecuted
}

type Operation int

const (
	OperationCall         Operation = 0
	OperationDelegateCall Operation = 1
)

type Confirmation struct {
	Signer      string
	Signature   string
	SubmittedAt int64
}

type Transaction struct {
	SafeTxHash     string
	Safe           string
	ChainID        string
	Nonce          uint64
	To             string
	Value          string
	Data           string
	Operation      Operation
	SafeTxGas      string
	BaseGas        string
	GasPrice       string
	GasToken       string
	RefundReceiver string
	Proposer       string
	Origin         *string
	Confirmations  []Confirmation
	Status         TxStatus
	SubmittedAt    int64
	ExecutedAt     *int64
	TxHash         *string
}

// Confirmed reports whether signer already confirmed the transaction.
func (t Transaction) Confirmed(signer string) bool {
	for _, c := range t.Confirmations {
		if c.Signer == signer {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with t.
func (t Transaction) Clone() Transaction {
	out := t
	out.Confirmations = append([]Confirmation(nil), t.Confirmations...)
	return out
}

type Nonces struct {
	CurrentNonce     uint64
	RecommendedNonce uint64
}
