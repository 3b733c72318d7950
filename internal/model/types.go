package model

import "strconv"

type Account struct {
	ID        string
	Address   string
	GroupID   *string
	Name      *string
	CreatedAt int64
}

type DataType struct {
	ID          int
	Name        string
	Description string
	IsActive    bool
}

const (
	DataTypeCounterfactualSafes = 1
	DataTypeAddressBook         = 2
	DataTypeWatchlist           = 3
)

// DataTypes is the fixed catalog of per-account data kinds.
var DataTypes = []DataType{
	{ID: DataTypeCounterfactualSafes, Name: "CounterfactualSafes", Description: "Counterfactual Safes", IsActive: true},
	{ID: DataTypeAddressBook, Name: "AddressBook", Description: "Address Book", IsActive: true},
	{ID: DataTypeWatchlist, Name: "Watchlist", Description: "Watchlist", IsActive: false},
}

func LookupDataType(id int) (DataType, bool) {
	for _, dt := range DataTypes {
		if dt.ID == id {
			return dt, true
		}
	}
	return DataType{}, false
}

type AccountDataSetting struct {
	AccountID  string
	DataTypeID int
	Enabled    bool
}

type AddressBook struct {
	ID        string
	AccountID string
	ChainID   string
	Items     []AddressBookItem
}

type AddressBookItem struct {
	ID      string
	Name    string
	Address string
}

type CounterfactualSafe struct {
	ID               string
	Creator          string
	ChainID          string
	PredictedAddress string
	Owners           []string
	Threshold        int
	SingletonAddress string
	FallbackHandler  string
	SaltNonce        string
	CreatedAt        int64
}

type Delegate struct {
	ChainID   string
	Safe      *string
	Delegator string
	Delegate  string
	Label     string
	CreatedAt int64
}

// ValidChainID reports whether s is a positive decimal chain id.
func ValidChainID(s string) bool {
	if s == "" || s[0] == '0' {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
