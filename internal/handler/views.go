package handler

import "safe-gateway-lite/internal/model"

type accountView struct {
	ID        string  `json:"id"`
	GroupID   *string `json:"groupId"`
	Address   string  `json:"address"`
	Name      *string `json:"name"`
	CreatedAt int64   `json:"createdAt"`
}

func newAccountView(a model.Account) accountView {
	return accountView{ID: a.ID, GroupID: a.GroupID, Address: a.Address, Name: a.Name, CreatedAt: a.CreatedAt}
}

type dataTypeView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"isActive"`
}

type dataSettingView struct {
	DataTypeID int  `json:"dataTypeId"`
	Enabled    bool `json:"enabled"`
}

func newDataSettingViews(settings []model.AccountDataSetting) []dataSettingView {
	out := make([]dataSettingView, 0, len(settings))
	for _, s := range settings {
		out = append(out, dataSettingView{DataTypeID: s.DataTypeID, Enabled: s.Enabled})
	}
	return out
}

type addressBookItemView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type addressBookView struct {
	ID        string                `json:"id"`
	AccountID string                `json:"accountId"`
	ChainID   string                `json:"chainId"`
	Data      []addressBookItemView `json:"data"`
}

func newAddressBookItemView(it model.AddressBookItem) addressBookItemView {
	return addressBookItemView{ID: it.ID, Name: it.Name, Address: it.Address}
}

func newAddressBookView(b model.AddressBook) addressBookView {
	out := addressBookView{ID: b.ID, AccountID: b.AccountID, ChainID: b.ChainID, Data: make([]addressBookItemView, 0, len(b.Items))}
	for _, it := range b.Items {
		out.Data = append(out.Data, newAddressBookItemView(it))
	}
	return out
}

type counterfactualSafeView struct {
	ChainID          string   `json:"chainId"`
	Creator          string   `json:"creator"`
	FallbackHandler  string   `json:"fallbackHandler"`
	Owners           []string `json:"owners"`
	PredictedAddress string   `json:"predictedAddress"`
	SaltNonce        string   `json:"saltNonce"`
	SingletonAddress string   `json:"singletonAddress"`
	Threshold        int      `json:"threshold"`
	CreatedAt        int64    `json:"createdAt"`
}

func newCounterfactualSafeView(s model.CounterfactualSafe) counterfactualSafeView {
	return counterfactualSafeView{
		ChainID:          s.ChainID,
		Creator:          s.Creator,
		FallbackHandler:  s.FallbackHandler,
		Owners:           s.Owners,
		PredictedAddress: s.PredictedAddress,
		SaltNonce:        s.SaltNonce,
		SingletonAddress: s.SingletonAddress,
		Threshold:        s.Threshold,
		CreatedAt:        s.CreatedAt,
	}
}

type delegateView struct {
	Safe      *string `json:"safe"`
	Delegate  string  `json:"delegate"`
	Delegator string  `json:"delegator"`
	Label     string  `json:"label"`
	CreatedAt int64   `json:"createdAt"`
}

func newDelegateView(d model.Delegate) delegateView {
	return delegateView{Safe: d.Safe, Delegate: d.Delegate, Delegator: d.Delegator, Label: d.Label, CreatedAt: d.CreatedAt}
}

type confirmationView struct {
	Signer      string `json:"signer"`
	Signature   string `json:"signature"`
	SubmittedAt int64  `json:"submittedAt"`
}

type transactionView struct {
	SafeTxHash     string             `json:"safeTxHash"`
	Safe           string             `json:"safe"`
	ChainID        string             `json:"chainId"`
	Nonce          uint64             `json:"nonce"`
	To             string             `json:"to"`
	Value          string             `json:"value"`
	Data           string             `json:"data"`
	Operation      int                `json:"operation"`
	SafeTxGas      string             `json:"safeTxGas"`
	BaseGas        string             `json:"baseGas"`
	GasPrice       string             `json:"gasPrice"`
	GasToken       string             `json:"gasToken"`
	RefundReceiver string             `json:"refundReceiver"`
	Proposer       string             `json:"proposer"`
	Origin         *string            `json:"origin"`
	Confirmations  []confirmationView `json:"confirmations"`
	Status         model.TxStatus     `json:"txStatus"`
	SubmittedAt    int64              `json:"submittedAt"`
	ExecutedAt     *int64             `json:"executedAt"`
	TxHash         *string            `json:"txHash"`
}

func newTransactionView(tx model.Transaction) transactionView {
	out := transactionView{
		SafeTxHash:     tx.SafeTxHash,
		Safe:           tx.Safe,
		ChainID:        tx.ChainID,
		Nonce:          tx.Nonce,
		To:             tx.To,
		Value:          tx.Value,
		Data:           tx.Data,
		Operation:      int(tx.Operation),
		SafeTxGas:      tx.SafeTxGas,
		BaseGas:        tx.BaseGas,
		GasPrice:       tx.GasPrice,
		GasToken:       tx.GasToken,
		RefundReceiver: tx.RefundReceiver,
		Proposer:       tx.Proposer,
		Origin:         tx.Origin,
		Confirmations:  make([]confirmationView, 0, len(tx.Confirmations)),
		Status:         tx.Status,
		SubmittedAt:    tx.SubmittedAt,
		ExecutedAt:     tx.ExecutedAt,
		TxHash:         tx.TxHash,
	}
	for _, c := range tx.Confirmations {
		out.Confirmations = append(out.Confirmations, confirmationView{Signer: c.Signer, Signature: c.Signature, SubmittedAt: c.SubmittedAt})
	}
	return out
}

func newTransactionViews(txs []model.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, newTransactionView(tx))
	}
	return out
}
